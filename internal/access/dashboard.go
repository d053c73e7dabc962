package access

// View identifiers handed to the render collaborator
const (
	ViewAdminDashboard    = "dashboard/admin"
	ViewVendorDashboard   = "dashboard/vendor"
	ViewStaffDashboard    = "dashboard/staff"
	ViewCustomerDashboard = "dashboard/customer"
)

var dashboardViews = map[Role]string{
	Admin:   ViewAdminDashboard,
	Vendor:  ViewVendorDashboard,
	Staff:   ViewStaffDashboard,
	Student: ViewCustomerDashboard,
	Faculty: ViewCustomerDashboard,
	Guest:   ViewCustomerDashboard,
}

// DashboardView selects the dashboard for a capability role. Roles missing
// from the table get the customer view.
func DashboardView(capability Role) string {
	if view, ok := dashboardViews[capability]; ok {
		return view
	}
	return ViewCustomerDashboard
}

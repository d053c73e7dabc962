package access

// Set is a declared group of roles allowed to perform an operation
type Set []Role

// Allowed reports whether role is a member of set
func Allowed(role Role, set Set) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}

// Strings returns the set as plain strings, used by the role middleware
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

var (
	// OrderOperators may drive orders forward, cancel them and record counter payments
	OrderOperators = Set{Admin, Vendor, Staff}
	// SelfServiceTier may cancel their own early orders
	SelfServiceTier = Set{Student, Faculty, Guest}
	// MenuManagers may edit the catalog (checked against the capability role)
	MenuManagers = Set{Admin, Vendor}
	// UserManagers may list profiles and change roles (checked against the capability role)
	UserManagers = Set{Admin}
)

// OrderScope describes which orders a capability role may see
type OrderScope int

const (
	// ScopeOwn limits results to the caller's own orders
	ScopeOwn OrderScope = iota
	// ScopeOpen adds every non-terminal order to the caller's own
	ScopeOpen
	// ScopeAll shows every order
	ScopeAll
)

// OrderScopeFor returns the order visibility of a capability role
func OrderScopeFor(capability Role) OrderScope {
	switch capability {
	case Admin, Vendor:
		return ScopeAll
	case Staff:
		return ScopeOpen
	default:
		return ScopeOwn
	}
}

// SeesInactiveItems reports whether hidden menu items are listed for a capability role
func SeesInactiveItems(capability Role) bool {
	return Allowed(capability, MenuManagers)
}

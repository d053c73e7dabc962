package services

import (
	"context"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// lowStockThreshold marks items worth restocking on staff dashboards
const lowStockThreshold = 5

// Dashboard is a view id plus the data the view renders
type Dashboard struct {
	View string
	Data map[string]interface{}
}

type DashboardService interface {
	// Build assembles the dashboard matching the caller's capability role
	Build(ctx context.Context, actor access.Identity) (*Dashboard, error)
}

type dashboardLoader func(ctx context.Context, db *gorm.DB, actor access.Identity, data map[string]interface{}) error

// dashboardLoaders is closed over the view ids of the access package
var dashboardLoaders = map[string]dashboardLoader{
	access.ViewAdminDashboard:    loadAdminDashboard,
	access.ViewVendorDashboard:   loadVendorDashboard,
	access.ViewStaffDashboard:    loadStaffDashboard,
	access.ViewCustomerDashboard: loadCustomerDashboard,
}

type dashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) DashboardService {
	return &dashboardService{db: db}
}

func (s *dashboardService) Build(ctx context.Context, actor access.Identity) (*Dashboard, error) {
	view := access.DashboardView(actor.Capability)
	loader, ok := dashboardLoaders[view]
	if !ok {
		view, loader = access.ViewCustomerDashboard, loadCustomerDashboard
	}
	data := map[string]interface{}{
		"role":            actor.Displayed,
		"capability_role": actor.Capability,
	}
	if err := loader(ctx, s.db.WithContext(ctx), actor, data); err != nil {
		return nil, err
	}
	return &Dashboard{View: view, Data: data}, nil
}

type statusCount struct {
	Status models.OrderStatus
	Count  int64
}

func ordersByStatus(db *gorm.DB) (map[models.OrderStatus]int64, error) {
	var rows []statusCount
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[models.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func lowStockItems(db *gorm.DB) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := db.Where("stock < ?", lowStockThreshold).Order("stock ASC, name ASC").Limit(20).Find(&items).Error
	return items, err
}

func paidRevenue(db *gorm.DB) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := db.Model(&models.Payment{}).Where("status = ?", models.PaymentStatusPaid).Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

func loadAdminDashboard(ctx context.Context, db *gorm.DB, actor access.Identity, data map[string]interface{}) error {
	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	counts, err := ordersByStatus(db)
	if err != nil {
		return err
	}
	revenue, err := paidRevenue(db)
	if err != nil {
		return err
	}
	lowStock, err := lowStockItems(db)
	if err != nil {
		return err
	}
	var recent []models.Order
	if err := db.Preload("Payment").Order("created_at DESC, id DESC").Limit(10).Find(&recent).Error; err != nil {
		return err
	}
	data["user_count"] = users
	data["orders_by_status"] = counts
	data["revenue"] = revenue.StringFixed(2)
	data["low_stock"] = lowStock
	data["recent_orders"] = recent
	return nil
}

func loadVendorDashboard(ctx context.Context, db *gorm.DB, actor access.Identity, data map[string]interface{}) error {
	var items int64
	if err := db.Model(&models.MenuItem{}).Count(&items).Error; err != nil {
		return err
	}
	counts, err := ordersByStatus(db)
	if err != nil {
		return err
	}
	lowStock, err := lowStockItems(db)
	if err != nil {
		return err
	}
	var topRated []models.MenuItem
	if err := db.Where("rating_count > 0").Order("rating_avg DESC, rating_count DESC").Limit(5).Find(&topRated).Error; err != nil {
		return err
	}
	data["menu_item_count"] = items
	data["orders_by_status"] = counts
	data["low_stock"] = lowStock
	data["top_rated"] = topRated
	return nil
}

func loadStaffDashboard(ctx context.Context, db *gorm.DB, actor access.Identity, data map[string]interface{}) error {
	var queue []models.Order
	err := db.Preload("Items.MenuItem", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Payment").
		Where("status NOT IN ?", []models.OrderStatus{models.OrderCompleted, models.OrderCancelled}).
		Order("created_at ASC, id ASC").
		Find(&queue).Error
	if err != nil {
		return err
	}
	data["queue"] = queue
	return nil
}

func loadCustomerDashboard(ctx context.Context, db *gorm.DB, actor access.Identity, data map[string]interface{}) error {
	var recent []models.Order
	if err := db.Preload("Payment").Where("user_id = ?", actor.UserID).
		Order("created_at DESC, id DESC").Limit(10).Find(&recent).Error; err != nil {
		return err
	}
	var reviews int64
	if err := db.Model(&models.Review{}).Where("user_id = ?", actor.UserID).Count(&reviews).Error; err != nil {
		return err
	}
	data["recent_orders"] = recent
	data["review_count"] = reviews
	return nil
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemFilter narrows a menu listing
type ItemFilter struct {
	CategoryID      *uint
	Search          string
	PopularOnly     bool
	IncludeInactive bool
	// Sort is one of name, price, -price, rating, newest
	Sort string
}

// ItemInput carries the writable fields of a menu item. Nil fields are left untouched on update.
type ItemInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	CategoryID  *uint            `json:"category_id"`
	IsActive    *bool            `json:"is_active"`
	IsPopular   *bool            `json:"is_popular"`
}

// CatalogService manages menu items and categories
type CatalogService interface {
	// ListItems returns menu items matching the filter
	ListItems(ctx context.Context, filter ItemFilter) ([]models.MenuItem, error)
	// GetItem retrieves a menu item by its ID
	GetItem(ctx context.Context, id uint, includeInactive bool) (*models.MenuItem, error)
	// CreateItem adds a menu item
	CreateItem(ctx context.Context, input ItemInput) (*models.MenuItem, error)
	// UpdateItem changes the given fields of a menu item; stock is changed through Restock
	UpdateItem(ctx context.Context, id uint, input ItemInput) (*models.MenuItem, error)
	// DeleteItem hides a menu item while keeping order history intact
	DeleteItem(ctx context.Context, id uint) error
	// Restock adds delta (possibly negative) to an item's stock without going below zero
	Restock(ctx context.Context, id uint, delta int) (*models.MenuItem, error)
	// ListCategories returns every category by name
	ListCategories(ctx context.Context) ([]models.Category, error)
	// CreateCategory adds a category
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	// DeleteCategory removes a category; its items become uncategorized
	DeleteCategory(ctx context.Context, id uint) error
}

// catalogService is the implementation of the CatalogService interface
type catalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(db *gorm.DB) CatalogService {
	return &catalogService{db: db}
}

var itemSorts = map[string]string{
	"":       "name ASC",
	"name":   "name ASC",
	"price":  "price ASC",
	"-price": "price DESC",
	"rating": "rating_avg DESC, rating_count DESC",
	"newest": "created_at DESC",
}

func (s *catalogService) ListItems(ctx context.Context, filter ItemFilter) ([]models.MenuItem, error) {
	order, ok := itemSorts[filter.Sort]
	if !ok {
		return nil, invalid("sort", "unknown sort order")
	}

	query := s.db.WithContext(ctx).Preload("Category")
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.PopularOnly {
		query = query.Where("is_popular = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	var items []models.MenuItem
	if err := query.Order(order).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *catalogService) GetItem(ctx context.Context, id uint, includeInactive bool) (*models.MenuItem, error) {
	query := s.db.WithContext(ctx).Preload("Category")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var item models.MenuItem
	if err := query.First(&item, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *catalogService) CreateItem(ctx context.Context, input ItemInput) (*models.MenuItem, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, invalid("name", "is required")
	}
	if input.Price == nil {
		return nil, invalid("price", "is required")
	}
	item := models.MenuItem{IsActive: true}
	if err := applyItemInput(&item, input); err != nil {
		return nil, err
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, invalid("stock", "cannot be negative")
		}
		item.Stock = *input.Stock
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCategory(tx, item.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		// gorm swaps a false is_active for the column default on insert
		if !item.IsActive {
			return tx.Model(&item).UpdateColumn("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *catalogService) UpdateItem(ctx context.Context, id uint, input ItemInput) (*models.MenuItem, error) {
	if input.Stock != nil {
		return nil, invalid("stock", "use the restock endpoint to change stock")
	}
	var item models.MenuItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, id).Error; err != nil {
			return notFound(err)
		}
		if err := applyItemInput(&item, input); err != nil {
			return err
		}
		if err := checkCategory(tx, item.CategoryID); err != nil {
			return err
		}
		// Select skips the stock column so concurrent checkouts are not overwritten
		return tx.Model(&item).
			Select("name", "description", "price", "category_id", "is_active", "is_popular").
			Updates(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *catalogService) DeleteItem(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.MenuItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *catalogService) Restock(ctx context.Context, id uint, delta int) (*models.MenuItem, error) {
	if delta == 0 {
		return nil, invalid("quantity", "must not be zero")
	}
	var item models.MenuItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, id).Error; err != nil {
			return notFound(err)
		}
		result := tx.Model(&models.MenuItem{}).
			Where("id = ? AND stock + ? >= 0", id, delta).
			UpdateColumn("stock", gorm.Expr("stock + ?", delta))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &StockError{MenuItemID: item.ID, Name: item.Name, Available: item.Stock, Requested: -delta}
		}
		return tx.First(&item, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	category := models.Category{Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Category{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return invalid("name", "category already exists")
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Model(&models.MenuItem{}).Where("category_id = ?", id).
			UpdateColumn("category_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Category{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func applyItemInput(item *models.MenuItem, input ItemInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return invalid("name", "cannot be empty")
		}
		item.Name = name
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return invalid("price", "must be greater than zero")
		}
		item.Price = input.Price.Round(2)
	}
	if input.CategoryID != nil {
		if *input.CategoryID == 0 {
			item.CategoryID = nil
		} else {
			categoryID := *input.CategoryID
			item.CategoryID = &categoryID
		}
		item.Category = nil
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}
	if input.IsPopular != nil {
		item.IsPopular = *input.IsPopular
	}
	return nil
}

func checkCategory(tx *gorm.DB, id *uint) error {
	if id == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return invalid("category_id", "unknown category")
	}
	return nil
}

// notFound maps gorm's missing-record error onto ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

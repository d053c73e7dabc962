package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups menu items by food type
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:120;not null" json:"name" binding:"required"`
	CreatedAt time.Time `json:"created_at"`
}

// MenuItem represents a dish sold by the canteen.
// RatingAvg and RatingCount are a cache rebuilt from the item's reviews.
type MenuItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:120;not null" json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CategoryID  *uint           `gorm:"index" json:"category_id"`
	Category    *Category       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"category,omitempty"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
	IsPopular   bool            `gorm:"not null;default:false" json:"is_popular"`
	RatingAvg   float64         `gorm:"not null;default:0" json:"rating_avg"`
	RatingCount int             `gorm:"not null;default:0" json:"rating_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

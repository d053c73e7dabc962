package models

import "time"

// Review is a user's feedback on a menu item, at most one per user and item
type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_review_user_item" json:"user_id"`
	MenuItemID uint      `gorm:"not null;uniqueIndex:idx_review_user_item;index" json:"menu_item_id"`
	Rating     *int      `json:"rating"`
	Comment    string    `json:"comment"`
	IsVisible  bool      `gorm:"not null;default:true" json:"is_visible"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

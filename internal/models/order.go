package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderAccepted  OrderStatus = "accepted"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// PaymentState mirrors the settlement of the order's payment
type PaymentState string

const (
	PaymentUnpaid PaymentState = "unpaid"
	PaymentPaid   PaymentState = "paid"
)

// Order is a checked-out cart. TotalPrice is fixed at creation time.
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	User          *User           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Address       string          `json:"address"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Status        OrderStatus     `gorm:"size:20;not null;default:pending;index" json:"status"`
	PaymentStatus PaymentState    `gorm:"size:20;not null;default:unpaid" json:"payment_status"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	Items         []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payment       *Payment        `gorm:"constraint:OnDelete:CASCADE" json:"payment,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsTerminal reports whether no further transition may leave the status
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// OrderItem is one cart line frozen at checkout
type OrderItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index" json:"order_id"`
	MenuItemID uint            `gorm:"not null;index" json:"menu_item_id"`
	MenuItem   *MenuItem       `json:"menu_item,omitempty"`
	Quantity   int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"unit_price"`
}

// LineTotal returns unit price times quantity
func (oi OrderItem) LineTotal() decimal.Decimal {
	return oi.UnitPrice.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentMethod selects how an order is settled
type PaymentMethod string

const (
	MethodCash       PaymentMethod = "cash"
	MethodMockCard   PaymentMethod = "mock_card"
	MethodStripe     PaymentMethod = "stripe"
	MethodSSLCommerz PaymentMethod = "sslcommerz"
)

// IsValid reports whether m is a supported method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodMockCard, MethodStripe, MethodSSLCommerz:
		return true
	}
	return false
}

// IsGateway reports whether settlement happens through an external gateway
func (m PaymentMethod) IsGateway() bool {
	return m == MethodStripe || m == MethodSSLCommerz
}

// PaymentStatus is the state of a payment record
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Payment is the single payment record of an order
type Payment struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderID        uint            `gorm:"uniqueIndex;not null" json:"order_id"`
	Method         PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status         PaymentStatus   `gorm:"size:20;not null;default:pending" json:"status"`
	TransactionID  string          `gorm:"size:191;index" json:"transaction_id"`
	PaidAt         *time.Time      `json:"paid_at"`
	GatewayPayload datatypes.JSON  `json:"gateway_payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Package events publishes order lifecycle events for downstream consumers
// such as kitchen displays.
package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// OrderEvent describes a change of an order's status or payment
type OrderEvent struct {
	OrderID       uint      `json:"order_id"`
	UserID        uint      `json:"user_id"`
	OldStatus     string    `json:"old_status,omitempty"`
	NewStatus     string    `json:"new_status"`
	PaymentStatus string    `json:"payment_status"`
	ChangedBy     uint      `json:"changed_by"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher delivers order events
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// LogPublisher writes events to the log
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event OrderEvent) error {
	log.WithFields(logrus.Fields{
		"order_id":       event.OrderID,
		"old_status":     event.OldStatus,
		"new_status":     event.NewStatus,
		"payment_status": event.PaymentStatus,
		"changed_by":     event.ChangedBy,
	}).Info("Order event")
	return nil
}

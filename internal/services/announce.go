package services

import (
	"fmt"

	"github.com/franciscosanchezn/campus-canteen-api/internal/events"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
)

// Notifier delivers best-effort messages to users
type Notifier interface {
	Notify(recipient, subject, body string)
}

// EventEmitter delivers best-effort order events
type EventEmitter interface {
	Emit(event events.OrderEvent)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, string) {}

type nopEmitter struct{}

func (nopEmitter) Emit(events.OrderEvent) {}

// announcer fans order changes out to the notifier and the event stream.
// It is only called after the owning transaction committed.
type announcer struct {
	notes   Notifier
	emitter EventEmitter
}

func newAnnouncer(notes Notifier, emitter EventEmitter) announcer {
	if notes == nil {
		notes = nopNotifier{}
	}
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return announcer{notes: notes, emitter: emitter}
}

func (a announcer) orderPlaced(order *models.Order, email string) {
	a.emitter.Emit(events.OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		NewStatus:     string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		ChangedBy:     order.UserID,
	})
	a.notes.Notify(email,
		fmt.Sprintf("Order #%d Received", order.ID),
		fmt.Sprintf("We received your order of %s paid by %s.", order.TotalPrice.StringFixed(2), order.PaymentMethod))
}

func (a announcer) orderChanged(order *models.Order, old models.OrderStatus, changedBy uint, email string) {
	a.emitter.Emit(events.OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		OldStatus:     string(old),
		NewStatus:     string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		ChangedBy:     changedBy,
	})
	a.notes.Notify(email,
		fmt.Sprintf("Order #%d is now %s", order.ID, order.Status),
		fmt.Sprintf("Your order moved from %s to %s.", old, order.Status))
}

func (a announcer) paymentSettled(order *models.Order, payment *models.Payment, changedBy uint, email string) {
	a.emitter.Emit(events.OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		OldStatus:     string(order.Status),
		NewStatus:     string(order.Status),
		PaymentStatus: string(models.PaymentPaid),
		ChangedBy:     changedBy,
	})
	a.notes.Notify(email,
		fmt.Sprintf("Payment Confirmed for Order #%d", order.ID),
		fmt.Sprintf("Amount %s via %s. Txn: %s", payment.Amount.StringFixed(2), payment.Method, payment.TransactionID))
}

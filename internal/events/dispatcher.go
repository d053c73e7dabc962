package events

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher publishes events in the background. Publish failures are logged
// and never reach the operation that produced the event.
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewDispatcher wraps a Publisher; a nil publisher logs events instead
func NewDispatcher(publisher Publisher, timeout time.Duration) *Dispatcher {
	if publisher == nil {
		publisher = LogPublisher{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{publisher: publisher, timeout: timeout}
}

// Emit queues an event for publishing
func (d *Dispatcher) Emit(event OrderEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{"panic": r, "order_id": event.OrderID}).Error("Order event publisher panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.publisher.Publish(ctx, event); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"order_id":   event.OrderID,
				"new_status": event.NewStatus,
			}).Warn("Failed to publish order event")
		}
	}()
}

// Wait blocks until queued events are published
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

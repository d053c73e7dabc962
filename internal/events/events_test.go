package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type memoryPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (p *memoryPublisher) Publish(ctx context.Context, event OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "order.accepted", RoutingKey(OrderEvent{NewStatus: "accepted"}))
}

func TestDispatcherStampsAndPublishes(t *testing.T) {
	pub := &memoryPublisher{}
	d := NewDispatcher(pub, time.Second)

	d.Emit(OrderEvent{OrderID: 3, NewStatus: "ready"})
	d.Wait()

	assert.Len(t, pub.events, 1)
	assert.Equal(t, uint(3), pub.events[0].OrderID)
	assert.False(t, pub.events[0].Timestamp.IsZero())
}

func TestDispatcherIgnoresPublishErrors(t *testing.T) {
	pub := &memoryPublisher{err: errors.New("broker gone")}
	d := NewDispatcher(pub, time.Second)

	assert.NotPanics(t, func() {
		d.Emit(OrderEvent{OrderID: 1, NewStatus: "cancelled"})
		d.Wait()
	})
}

type panickingPublisher struct{}

func (panickingPublisher) Publish(ctx context.Context, event OrderEvent) error {
	panic("channel closed")
}

func TestDispatcherSurvivesPublisherPanic(t *testing.T) {
	d := NewDispatcher(panickingPublisher{}, time.Second)

	// a panic in the goroutine would abort the test binary
	d.Emit(OrderEvent{OrderID: 2, NewStatus: "accepted"})
	d.Wait()

	pub := &memoryPublisher{}
	d = NewDispatcher(pub, time.Second)
	d.Emit(OrderEvent{OrderID: 2, NewStatus: "preparing"})
	d.Wait()
	assert.Len(t, pub.events, 1)
}

func TestNilPublisherFallsBackToLog(t *testing.T) {
	d := NewDispatcher(nil, 0)
	d.Emit(OrderEvent{OrderID: 1, NewStatus: "pending"})
	d.Wait()
}

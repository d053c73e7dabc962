package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	mu       sync.Mutex
	subjects []string
	err      error
	block    time.Duration
}

func (s *recordingSender) Send(ctx context.Context, recipient, subject, body string) error {
	if s.block > 0 {
		select {
		case <-time.After(s.block):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = append(s.subjects, subject)
	return s.err
}

func TestDispatcherDeliversInBackground(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, time.Second)

	d.Notify("student@campus.edu", "Order #1 accepted", "body")
	d.Notify("student@campus.edu", "Order #1 ready", "body")
	d.Wait()

	assert.ElementsMatch(t, []string{"Order #1 accepted", "Order #1 ready"}, sender.subjects)
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(sender, time.Second)

	assert.NotPanics(t, func() {
		d.Notify("student@campus.edu", "Payment confirmed", "body")
		d.Wait()
	})
	assert.Len(t, sender.subjects, 1)
}

func TestDispatcherTimesOutSlowSenders(t *testing.T) {
	sender := &recordingSender{block: time.Minute}
	d := NewDispatcher(sender, 20*time.Millisecond)

	start := time.Now()
	d.Notify("student@campus.edu", "slow", "body")
	d.Wait()

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, sender.subjects)
}

func TestDispatcherSkipsEmptyRecipient(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, time.Second)

	d.Notify("", "nobody", "body")
	d.Wait()

	assert.Empty(t, sender.subjects)
}

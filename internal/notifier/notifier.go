// Package notifier delivers best-effort notifications to canteen users.
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// Sender delivers one message to one recipient
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogSender writes messages to the log instead of delivering them
type LogSender struct{}

func (LogSender) Send(ctx context.Context, recipient, subject, body string) error {
	log.WithFields(logrus.Fields{
		"recipient": recipient,
		"subject":   subject,
	}).Info(body)
	return nil
}

// Dispatcher sends notifications in the background and never reports
// failures to the caller
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher wraps a Sender. A zero timeout means 10 seconds.
func NewDispatcher(sender Sender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout}
}

// Notify queues a message. Empty recipients are skipped.
func (d *Dispatcher) Notify(recipient, subject, body string) {
	if recipient == "" {
		log.WithField("subject", subject).Debug("Skipping notification without recipient")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Notification sender panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, recipient, subject, body); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"recipient": recipient,
				"subject":   subject,
			}).Warn("Failed to deliver notification")
		}
	}()
}

// Wait blocks until every queued notification has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

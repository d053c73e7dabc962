// Package gateway talks to external card payment providers.
//
// Callbacks are acknowledged without verifying their authenticity. A
// production deployment must check provider signatures (Stripe-Signature
// header, SSLCommerz validation API) before trusting a settlement.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// ErrMalformedCallback is returned when a callback payload cannot be read
var ErrMalformedCallback = errors.New("malformed gateway callback")

// InitRequest describes the payment session to open
type InitRequest struct {
	OrderID uint
	// AmountMinor is the amount in the currency's minor unit
	AmountMinor   int64
	Currency      string
	SuccessURL    string
	FailureURL    string
	CustomerEmail string
}

// Session is an opened payment session
type Session struct {
	Reference   string
	RedirectURL string
	Raw         []byte
}

// Acknowledgement is what a callback tells us about a payment
type Acknowledgement struct {
	Reference string
	// OrderID is set when the provider echoes our order reference back
	OrderID uint
	Settled bool
	// Failed is set when the provider reports the payment as declined or
	// abandoned. A callback can be neither settled nor failed.
	Failed bool
}

// Gateway is an external payment provider
type Gateway interface {
	Initialize(ctx context.Context, req InitRequest) (*Session, error)
	Acknowledge(payload []byte, contentType string) (*Acknowledgement, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// readResponse returns the body of a 2xx response or an error describing the failure
func readResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gateway responded with status %d", resp.StatusCode)
	}
	return body, nil
}

// formatMinor renders a minor-unit amount as a two decimal string
func formatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

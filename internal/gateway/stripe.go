package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultStripeURL is the Stripe API base
const DefaultStripeURL = "https://api.stripe.com"

// Stripe opens Stripe Checkout sessions
type Stripe struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewStripe creates a Stripe gateway. An empty baseURL means the public API.
func NewStripe(baseURL, secretKey string, timeout time.Duration) *Stripe {
	if baseURL == "" {
		baseURL = DefaultStripeURL
	}
	return &Stripe{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    newHTTPClient(timeout),
	}
}

type stripeSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (s *Stripe) Initialize(ctx context.Context, req InitRequest) (*Session, error) {
	if s.secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is not configured")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.FailureURL)
	form.Set("client_reference_id", strconv.FormatUint(uint64(req.OrderID), 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("Canteen order #%d", req.OrderID))
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	var session stripeSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decoding stripe session: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("stripe session response is missing id or url")
	}
	return &Session{Reference: session.ID, RedirectURL: session.URL, Raw: body}, nil
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			PaymentStatus     string `json:"payment_status"`
		} `json:"object"`
	} `json:"data"`
}

// Acknowledge reads a Stripe webhook event. The Stripe-Signature header is
// not verified.
func (s *Stripe) Acknowledge(payload []byte, contentType string) (*Acknowledgement, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	obj := event.Data.Object
	if obj.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedCallback)
	}
	log.WithField("session_id", obj.ID).Warn("Accepting unverified Stripe callback")

	ack := &Acknowledgement{Reference: obj.ID}
	switch event.Type {
	case "checkout.session.completed":
		// delayed methods complete the session unpaid and settle later
		ack.Settled = obj.PaymentStatus != "unpaid"
	case "checkout.session.async_payment_succeeded":
		ack.Settled = true
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		ack.Failed = true
	}
	if id, err := strconv.ParseUint(obj.ClientReferenceID, 10, 64); err == nil {
		ack.OrderID = uint(id)
	}
	return ack, nil
}

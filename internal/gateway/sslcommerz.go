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

	"github.com/google/uuid"
)

// DefaultSSLCommerzURL is the SSLCommerz sandbox base
const DefaultSSLCommerzURL = "https://sandbox.sslcommerz.com"

// SSLCommerz opens SSLCommerz hosted payment sessions
type SSLCommerz struct {
	baseURL   string
	storeID   string
	storePass string
	client    *http.Client
}

// NewSSLCommerz creates an SSLCommerz gateway. An empty baseURL means the sandbox.
func NewSSLCommerz(baseURL, storeID, storePass string, timeout time.Duration) *SSLCommerz {
	if baseURL == "" {
		baseURL = DefaultSSLCommerzURL
	}
	return &SSLCommerz{
		baseURL:   strings.TrimRight(baseURL, "/"),
		storeID:   storeID,
		storePass: storePass,
		client:    newHTTPClient(timeout),
	}
}

type sslcommerzSession struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

func (s *SSLCommerz) Initialize(ctx context.Context, req InitRequest) (*Session, error) {
	if s.storeID == "" || s.storePass == "" {
		return nil, fmt.Errorf("sslcommerz store credentials are not configured")
	}

	// tran_id is echoed back in the IPN, so it doubles as our reference
	tranID := fmt.Sprintf("SSL-%d-%s", req.OrderID, uuid.New().String()[:8])

	form := url.Values{}
	form.Set("store_id", s.storeID)
	form.Set("store_passwd", s.storePass)
	form.Set("total_amount", formatMinor(req.AmountMinor))
	form.Set("currency", strings.ToUpper(req.Currency))
	form.Set("tran_id", tranID)
	form.Set("success_url", req.SuccessURL)
	form.Set("fail_url", req.FailureURL)
	form.Set("cancel_url", req.FailureURL)
	form.Set("value_a", strconv.FormatUint(uint64(req.OrderID), 10))
	form.Set("product_name", fmt.Sprintf("Canteen order #%d", req.OrderID))
	form.Set("product_category", "food")
	form.Set("product_profile", "general")
	form.Set("shipping_method", "NO")
	form.Set("cus_email", req.CustomerEmail)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/gwprocess/v4/api.php", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sslcommerz request failed: %w", err)
	}
	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	var session sslcommerzSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decoding sslcommerz session: %w", err)
	}
	if !strings.EqualFold(session.Status, "SUCCESS") || session.GatewayPageURL == "" {
		return nil, fmt.Errorf("sslcommerz session rejected: %s", session.FailedReason)
	}
	return &Session{Reference: tranID, RedirectURL: session.GatewayPageURL, Raw: body}, nil
}

// Acknowledge reads an SSLCommerz IPN. The payload is not checked against
// the SSLCommerz validation API.
func (s *SSLCommerz) Acknowledge(payload []byte, contentType string) (*Acknowledgement, error) {
	fields := map[string]string{}
	if strings.HasPrefix(contentType, "application/json") {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
	} else {
		values, err := url.ParseQuery(string(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
		for k := range values {
			fields[k] = values.Get(k)
		}
	}

	tranID := fields["tran_id"]
	if tranID == "" {
		return nil, fmt.Errorf("%w: missing tran_id", ErrMalformedCallback)
	}
	log.WithField("tran_id", tranID).Warn("Accepting unverified SSLCommerz IPN")

	status := strings.ToUpper(fields["status"])
	ack := &Acknowledgement{
		Reference: tranID,
		Settled:   status == "VALID" || status == "VALIDATED",
		Failed:    status == "FAILED" || status == "CANCELLED" || status == "EXPIRED",
	}
	if id, err := strconv.ParseUint(fields["value_a"], 10, 64); err == nil {
		ack.OrderID = uint(id)
	}
	return ack, nil
}

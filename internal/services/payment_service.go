package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/gateway"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CardDetails is the mock card input. Empty fields are allowed at checkout
// and make the payment fail.
type CardDetails struct {
	Number string `json:"card_number"`
	CVC    string `json:"cvc"`
}

func (c *CardDetails) complete() bool {
	return c != nil && c.Number != "" && c.CVC != ""
}

// normalize strips separators and checks the shape of the fields that are present
func (c *CardDetails) normalize() error {
	if c == nil {
		return nil
	}
	c.Number = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(c.Number))
	c.CVC = strings.TrimSpace(c.CVC)
	if c.Number != "" && (!allDigits(c.Number) || len(c.Number) < 12 || len(c.Number) > 19) {
		return invalid("card_number", "must be 12 to 19 digits")
	}
	if c.CVC != "" && (!allDigits(c.CVC) || len(c.CVC) < 3 || len(c.CVC) > 4) {
		return invalid("cvc", "must be 3 or 4 digits")
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// PaymentSettings configures gateway sessions
type PaymentSettings struct {
	Currency   string
	SuccessURL string
	FailureURL string
	Timeout    time.Duration
}

type PaymentService interface {
	// ApplyMethod runs the method branch for a freshly created payment inside
	// the checkout transaction
	ApplyMethod(tx *gorm.DB, order *models.Order, payment *models.Payment, card *CardDetails) error
	// InitializeGateway opens a provider session for the caller's pending order
	InitializeGateway(ctx context.Context, actor access.Identity, orderID uint) (*gateway.Session, error)
	// AcknowledgeCallback records a provider callback and settles the payment when it reports success
	AcknowledgeCallback(ctx context.Context, method models.PaymentMethod, payload []byte, contentType string) (*models.Payment, error)
	// PayWithCard retries a mock card payment of the caller's order
	PayWithCard(ctx context.Context, actor access.Identity, orderID uint, card CardDetails) (*models.Payment, error)
	// MarkPaid settles a payment taken at the counter
	MarkPaid(ctx context.Context, actor access.Identity, orderID uint) (*models.Payment, error)
	// GetForOrder returns the payment of an order visible to the caller
	GetForOrder(ctx context.Context, actor access.Identity, orderID uint) (*models.Payment, error)
	Settings() PaymentSettings
}

type paymentService struct {
	db       *gorm.DB
	gateways map[models.PaymentMethod]gateway.Gateway
	settings PaymentSettings
	announcer
}

func NewPaymentService(db *gorm.DB, gateways map[models.PaymentMethod]gateway.Gateway, settings PaymentSettings, notes Notifier, emitter EventEmitter) PaymentService {
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	if settings.Currency == "" {
		settings.Currency = "BDT"
	}
	return &paymentService{
		db:        db,
		gateways:  gateways,
		settings:  settings,
		announcer: newAnnouncer(notes, emitter),
	}
}

func (s *paymentService) Settings() PaymentSettings {
	return s.settings
}

func transactionID(method models.PaymentMethod, orderID uint) string {
	return fmt.Sprintf("%s-%d-%d", strings.ToUpper(string(method)), orderID, time.Now().Unix())
}

func (s *paymentService) ApplyMethod(tx *gorm.DB, order *models.Order, payment *models.Payment, card *CardDetails) error {
	switch payment.Method {
	case models.MethodCash:
		return settle(tx, order, payment, transactionID(payment.Method, order.ID))
	case models.MethodMockCard:
		if card.complete() {
			return settle(tx, order, payment, transactionID(payment.Method, order.ID))
		}
		log.WithField("order_id", order.ID).Info("Mock card details missing, payment failed")
		return markFailed(tx, payment)
	case models.MethodStripe, models.MethodSSLCommerz:
		return nil
	default:
		return invalid("payment_method", "unsupported payment method")
	}
}

// settle marks a pending or failed payment paid and mirrors it onto the order
func settle(tx *gorm.DB, order *models.Order, payment *models.Payment, txnID string) error {
	now := time.Now().UTC()
	result := tx.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", payment.ID, []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusFailed}).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusPaid,
			"paid_at":        now,
			"transaction_id": txnID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentNotPending
	}
	if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("payment_status", models.PaymentPaid).Error; err != nil {
		return err
	}
	payment.Status = models.PaymentStatusPaid
	payment.PaidAt = &now
	payment.TransactionID = txnID
	order.PaymentStatus = models.PaymentPaid
	return nil
}

func markFailed(tx *gorm.DB, payment *models.Payment) error {
	if err := tx.Model(&models.Payment{}).Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed).Error; err != nil {
		return err
	}
	payment.Status = models.PaymentStatusFailed
	return nil
}

func awaitingSettlement(order *models.Order, payment *models.Payment) bool {
	if order.Status == models.OrderCancelled || order.PaymentStatus == models.PaymentPaid {
		return false
	}
	return payment.Status == models.PaymentStatusPending || payment.Status == models.PaymentStatusFailed
}

// loadOwnOrder loads an order with its payment and owner, hiding other users' orders
func loadOwnOrder(tx *gorm.DB, actor access.Identity, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.Preload("Payment").Preload("User").
		Where("id = ? AND user_id = ?", orderID, actor.UserID).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	if order.Payment == nil {
		return nil, ErrNotFound
	}
	return &order, nil
}

func (s *paymentService) InitializeGateway(ctx context.Context, actor access.Identity, orderID uint) (*gateway.Session, error) {
	order, err := loadOwnOrder(s.db.WithContext(ctx), actor, orderID)
	if err != nil {
		return nil, err
	}
	payment := order.Payment
	if !payment.Method.IsGateway() {
		return nil, invalid("payment_method", "order is not paid through a gateway")
	}
	if !awaitingSettlement(order, payment) {
		return nil, ErrPaymentNotPending
	}
	gw, ok := s.gateways[payment.Method]
	if !ok || gw == nil {
		return nil, fmt.Errorf("%w: %s is not configured", ErrGatewayUnavailable, payment.Method)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()
	session, err := gw.Initialize(callCtx, gateway.InitRequest{
		OrderID:       order.ID,
		AmountMinor:   payment.Amount.Shift(2).Round(0).IntPart(),
		Currency:      s.settings.Currency,
		SuccessURL:    s.settings.SuccessURL,
		FailureURL:    s.settings.FailureURL,
		CustomerEmail: ownerEmail(order),
	})
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{"order_id": order.ID, "method": payment.Method}).
			Warn("Gateway initialization failed")
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	updates := map[string]interface{}{"transaction_id": session.Reference}
	if len(session.Raw) > 0 {
		updates["gateway_payload"] = datatypes.JSON(session.Raw)
	}
	err = s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status IN ?", payment.ID, []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusFailed}).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"order_id": order.ID, "reference": session.Reference}).Info("Gateway session opened")
	return session, nil
}

func (s *paymentService) AcknowledgeCallback(ctx context.Context, method models.PaymentMethod, payload []byte, contentType string) (*models.Payment, error) {
	gw, ok := s.gateways[method]
	if !ok || gw == nil {
		return nil, fmt.Errorf("%w: %s is not configured", ErrGatewayUnavailable, method)
	}
	ack, err := gw.Acknowledge(payload, contentType)
	if err != nil {
		if errors.Is(err, gateway.ErrMalformedCallback) {
			return nil, invalid("payload", err.Error())
		}
		return nil, err
	}

	var order models.Order
	var payment models.Payment
	settled := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findCallbackPayment(tx, method, ack, &payment); err != nil {
			return err
		}
		if err := tx.Preload("User").First(&order, payment.OrderID).Error; err != nil {
			return notFound(err)
		}
		if len(payload) > 0 && json.Valid(payload) {
			if err := tx.Model(&payment).Update("gateway_payload", datatypes.JSON(payload)).Error; err != nil {
				return err
			}
		}
		if !ack.Settled {
			if ack.Failed && payment.Status == models.PaymentStatusPending {
				return markFailed(tx, &payment)
			}
			return nil
		}
		if !awaitingSettlement(&order, &payment) {
			// already settled or cancelled; acknowledging twice is harmless
			return nil
		}
		reference := payment.TransactionID
		if ack.Reference != "" {
			reference = ack.Reference
		}
		if err := settle(tx, &order, &payment, reference); err != nil {
			return err
		}
		settled = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"order_id": payment.OrderID,
		"method":   method,
		"settled":  ack.Settled,
	}).Warn("Gateway callback accepted without signature verification")
	if settled {
		s.paymentSettled(&order, &payment, order.UserID, ownerEmail(&order))
	}
	return &payment, nil
}

// findCallbackPayment matches a callback by gateway reference first, then by the echoed order id
func findCallbackPayment(tx *gorm.DB, method models.PaymentMethod, ack *gateway.Acknowledgement, payment *models.Payment) error {
	if ack.Reference != "" {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("transaction_id = ? AND method = ?", ack.Reference, method).
			First(payment).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if ack.OrderID == 0 {
		return ErrNotFound
	}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND method = ?", ack.OrderID, method).
		First(payment).Error
	return notFound(err)
}

func (s *paymentService) PayWithCard(ctx context.Context, actor access.Identity, orderID uint, card CardDetails) (*models.Payment, error) {
	if err := card.normalize(); err != nil {
		return nil, err
	}
	if !card.complete() {
		return nil, invalid("card", "card number and CVC are required")
	}
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = loadOwnOrder(tx, actor, orderID)
		if err != nil {
			return err
		}
		if order.Payment.Method != models.MethodMockCard {
			return invalid("payment_method", "order is not paid by card")
		}
		if !awaitingSettlement(order, order.Payment) {
			return ErrPaymentNotPending
		}
		return settle(tx, order, order.Payment, transactionID(models.MethodMockCard, order.ID))
	})
	if err != nil {
		return nil, err
	}
	s.paymentSettled(order, order.Payment, actor.UserID, ownerEmail(order))
	return order.Payment, nil
}

func (s *paymentService) MarkPaid(ctx context.Context, actor access.Identity, orderID uint) (*models.Payment, error) {
	if !access.Allowed(actor.Displayed, access.OrderOperators) {
		return nil, ErrNotAuthorized
	}
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Payment").Preload("User").First(&order, orderID).Error; err != nil {
			return notFound(err)
		}
		if order.Payment == nil {
			return ErrNotFound
		}
		if !awaitingSettlement(&order, order.Payment) {
			return ErrPaymentNotPending
		}
		reference := order.Payment.TransactionID
		if reference == "" {
			reference = transactionID(order.Payment.Method, order.ID)
		}
		return settle(tx, &order, order.Payment, reference)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"order_id": order.ID, "by": actor.UserID}).Info("Payment marked as paid")
	s.paymentSettled(&order, order.Payment, actor.UserID, ownerEmail(&order))
	return order.Payment, nil
}

func (s *paymentService) GetForOrder(ctx context.Context, actor access.Identity, orderID uint) (*models.Payment, error) {
	var payment models.Payment
	err := scopeOrders(s.db.WithContext(ctx).Model(&models.Payment{}).
		Joins("JOIN orders ON orders.id = payments.order_id"), actor).
		Where("payments.order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func ownerEmail(order *models.Order) string {
	if order.User == nil {
		return ""
	}
	return order.User.Email
}

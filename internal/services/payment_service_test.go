package services

import (
	"context"
	"errors"
	"testing"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/gateway"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeGatewayStoresReference(t *testing.T) {
	f := newFixture(t)
	student := createUser(t, f.db, "s@campus.edu", access.Student)
	tea := createItem(t, f.db, "Tea", 12, 10)
	result := checkout(t, f, student, map[uint]int{tea.ID: 2}, models.MethodStripe)

	f.stripe.session = &gateway.Session{
		Reference:   "cs_test_1",
		RedirectURL: "https://checkout.example/pay/cs_test_1",
		Raw:         []byte(`{"id":"cs_test_1"}`),
	}
	session, err := f.payments.InitializeGateway(context.Background(), student, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/pay/cs_test_1", session.RedirectURL)
	assert.Equal(t, int64(2400), f.stripe.last.AmountMinor)
	assert.Equal(t, "BDT", f.stripe.last.Currency)
	assert.Equal(t, "s@campus.edu", f.stripe.last.CustomerEmail)

	var payment models.Payment
	require.NoError(t, f.db.Where("order_id = ?", result.Order.ID).First(&payment).Error)
	assert.Equal(t, "cs_test_1", payment.TransactionID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.JSONEq(t, `{"id":"cs_test_1"}`, string(payment.GatewayPayload))
}

func TestInitializeGatewayFailureLeavesPaymentUntouched(t *testing.T) {
	f := newFixture(t)
	student := createUser(t, f.db, "s@campus.edu", access.Student)
	tea := createItem(t, f.db, "Tea", 12, 10)
	result := checkout(t, f, student, map[uint]int{tea.ID: 1}, models.MethodStripe)

	f.stripe.err = errors.New("connection refused")
	_, err := f.payments.InitializeGateway(context.Background(), student, result.Order.ID)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	var payment models.Payment
	require.NoError(t, f.db.Where("order_id = ?", result.Order.ID).First(&payment).Error)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Empty(t, payment.TransactionID)
}

func TestInitializeGatewayGuards(t *testing.T) {
	f := newFixture(t)
	student := createUser(t, f.db, "s@campus.edu", access.Student)
	other := createUser(t, f.db, "o@campus.edu", access.Student)
	tea := createItem(t, f.db, "Tea", 12, 10)
	ctx := context.Background()

	gatewayOrder := checkout(t, f, student, map[uint]int{tea.ID: 1}, models.MethodStripe)
	_, err := f.payments.InitializeGateway(ctx, other, gatewayOrder.Order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	cashOrder := checkout(t, f, student, map[uint]int{tea.ID: 1}, models.MethodCash)
	_, err = f.payments.InitializeGateway(ctx, student, cashOrder.Order.ID)
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	sslOrder := checkout(t, f, student, map[uint]int{tea.ID: 1}, models.MethodSSLCommerz)
	_, err = f.payments.InitializeGateway(ctx, student, sslOrder.Order.ID)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	_, err = f.orders.SelfCancel(ctx, student, gatewayOrder.Order.ID)
	require.NoError(t, err)
	_, err = f.payments.InitializeGateway(ctx, student, gatewayOrder.Order.ID)
	assert.ErrorIs(t, err, ErrPaymentNotPending)
}

func TestAcknowledgeCallbackSettlesByReference(t *testing.T) {
	f := newFixture(t)
	student := createUser(t, f.db, "s@campus.edu", access.Student)
	tea := createItem(t, f.db, "Tea", 12, 10)
	result := checkout(t, f, student, map[uint]int{tea.ID: 1}, models.MethodStripe)
	f.stripe.session = &gateway.Session{Reference: "cs_test_2", RedirectURL: "https://x"}
	_, err := f.payments.InitializeGateway(context.Background(), student, result.Order.ID)
	require.NoError(t, err)

	f.stripe.ack = &gateway.Acknowledgement{Reference: "cs_test_2", Settled: true}
	payment, err := f.payments.AcknowledgeCallback(context.Background(), models.MethodStripe, []byte(`{"type":"checkout.session.completed"}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
	assert.Equal(t, "cs_test_2", payment.TransactionID)

	var order models.Order
	require.NoError(t, f.db.First(&order, result.Order.ID).Error)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	assert.Contains(t, f.notes.subjects, "Payment Confirmed for Order #1")

	// duplicate deliveries are acknowledged without settling twice
	_, err = f.payments.AcknowledgeCallback(context.Background(), models.MethodStripe, nil, "")
	require.NoError(t, err)
}

func TestAcknowledgeCallbackFallsBackToOrderID(t *testing.T) {
	f := newFixture(t)
	student := createUser(t, f.db, "s@campus.edu", access.Student)
	tea := createItem(t, f.db, "Tea", 12, 10)
	result := checkout(t, f, student, map[uint]int{tea.ID: 1}, models.MethodStripe)

	f.stripe.ack = &gateway.Acknowledgement{Reference: "unknown", OrderID: result.Order.ID, Failed: true}
	payment, err := f.payments.AcknowledgeCallback(context.Background(), models.MethodStripe, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	f.stripe.ack = &gateway.Acknowledgement{OrderID: 999, Settled: true}
	_, err = f.payments.AcknowledgeCallback(context.Background(), models.MethodStripe, nil, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcknowledgeCallbackKeepsDelayedPaymentPending(t *testing.T) {
	f := newFixture(t)
	student := createUser(t, f.db, "s@campus.edu", access.Student)
	tea := createItem(t, f.db, "Tea", 12, 10)
	result := checkout(t, f, student, map[uint]int{tea.ID: 1}, models.MethodStripe)
	f.stripe.session = &gateway.Session{Reference: "cs_test_3", RedirectURL: "https://x"}
	_, err := f.payments.InitializeGateway(context.Background(), student, result.Order.ID)
	require.NoError(t, err)

	// the session completes before a delayed payment method clears
	f.stripe.ack = &gateway.Acknowledgement{Reference: "cs_test_3"}
	payment, err := f.payments.AcknowledgeCallback(context.Background(), models.MethodStripe, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)

	f.stripe.ack = &gateway.Acknowledgement{Reference: "cs_test_3", Settled: true}
	payment, err = f.payments.AcknowledgeCallback(context.Background(), models.MethodStripe, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
}

func TestAcknowledgeCallbackRejectsMalformedPayload(t *testing.T) {
	f := newFixture(t)
	_, err := f.payments.AcknowledgeCallback(context.Background(), models.MethodStripe, []byte("garbage"), "text/plain")
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestPayWithCardRetriesFailedPayment(t *testing.T) {
	f := newFixture(t)
	student := createUser(t, f.db, "s@campus.edu", access.Student)
	tea := createItem(t, f.db, "Tea", 12, 10)
	c := checkoutCart(t, tea.ID, 1)
	result, err := f.orders.Checkout(context.Background(), student, c, CheckoutRequest{Method: models.MethodMockCard})
	require.NoError(t, err)
	require.True(t, result.PaymentFailed)

	_, err = f.payments.PayWithCard(context.Background(), student, result.Order.ID, CardDetails{Number: "4242424242424242"})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	payment, err := f.payments.PayWithCard(context.Background(), student, result.Order.ID, CardDetails{Number: "4242424242424242", CVC: "321"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)

	_, err = f.payments.PayWithCard(context.Background(), student, result.Order.ID, CardDetails{Number: "4242424242424242", CVC: "321"})
	assert.ErrorIs(t, err, ErrPaymentNotPending)
}

func TestMarkPaidRequiresOperator(t *testing.T) {
	f := newFixture(t)
	student := createUser(t, f.db, "s@campus.edu", access.Student)
	tea := createItem(t, f.db, "Tea", 12, 10)
	result := checkout(t, f, student, map[uint]int{tea.ID: 1}, models.MethodStripe)

	_, err := f.payments.MarkPaid(context.Background(), student, result.Order.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestGetForOrderIsScoped(t *testing.T) {
	f := newFixture(t)
	student := createUser(t, f.db, "s@campus.edu", access.Student)
	other := createUser(t, f.db, "o@campus.edu", access.Guest)
	admin := createUser(t, f.db, "a@campus.edu", access.Admin)
	tea := createItem(t, f.db, "Tea", 12, 10)
	result := checkout(t, f, student, map[uint]int{tea.ID: 1}, models.MethodCash)

	payment, err := f.payments.GetForOrder(context.Background(), student, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Payment.ID, payment.ID)

	_, err = f.payments.GetForOrder(context.Background(), other, result.Order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.payments.GetForOrder(context.Background(), admin, result.Order.ID)
	assert.NoError(t, err)
}

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/auth"
	"github.com/franciscosanchezn/campus-canteen-api/internal/cart"
	"github.com/franciscosanchezn/campus-canteen-api/internal/database"
	"github.com/franciscosanchezn/campus-canteen-api/internal/gateway"
	"github.com/franciscosanchezn/campus-canteen-api/internal/middleware"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-jwt-secret-key-32-characters"

type fakeGateway struct {
	ack *gateway.Acknowledgement
}

func (g *fakeGateway) Initialize(ctx context.Context, req gateway.InitRequest) (*gateway.Session, error) {
	ref := fmt.Sprintf("cs_%d", req.OrderID)
	return &gateway.Session{Reference: ref, RedirectURL: "https://pay.example/" + ref, Raw: []byte(`{"id":"` + ref + `"}`)}, nil
}

func (g *fakeGateway) Acknowledge(payload []byte, contentType string) (*gateway.Acknowledgement, error) {
	var body struct {
		Reference string `json:"reference"`
		Paid      bool   `json:"paid"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Reference == "" {
		return nil, gateway.ErrMalformedCallback
	}
	return &gateway.Acknowledgement{Reference: body.Reference, Settled: body.Paid}, nil
}

type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	tokens *auth.TokenIssuer
}

func setupTestAPI(t *testing.T) *testAPI {
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	render := JSONRenderer{}
	store := cart.NewSessionStore()
	users := services.NewUserService(db)
	catalog := services.NewCatalogService(db)
	reviews := services.NewReviewService(db)
	payments := services.NewPaymentService(db,
		map[models.PaymentMethod]gateway.Gateway{models.MethodStripe: &fakeGateway{}},
		services.PaymentSettings{SuccessURL: "http://app/success", FailureURL: "http://app/failure"},
		nil, nil)
	orders := services.NewOrderService(db, payments, nil, nil)
	tokens := auth.NewTokenIssuer([]byte(testSecret), time.Hour, users)

	router := gin.New()
	router.Use(sessions.Sessions("canteen_session", cookie.NewStore([]byte("session-secret"))))
	RegisterRoutes(router, Handlers{
		Auth:      NewAuthController(users, tokens, render),
		Catalog:   NewCatalogController(catalog, render),
		Cart:      NewCartController(store, catalog, render),
		Orders:    NewOrderController(orders, store, render, payments.Settings().FailureURL),
		Payments:  NewPaymentController(payments, render),
		Reviews:   NewReviewController(reviews, render),
		Dashboard: NewDashboardController(services.NewDashboardService(db), render),
		Admin:     NewAdminController(users, reviews, render),
	}, middleware.JWTAuth([]byte(testSecret), users))

	return &testAPI{t: t, db: db, router: router, tokens: tokens}
}

// client keeps a bearer token and the session cookie between requests
type client struct {
	api     *testAPI
	token   string
	cookies map[string]*http.Cookie
}

func (a *testAPI) anonymous() *client {
	return &client{api: a, cookies: map[string]*http.Cookie{}}
}

func (a *testAPI) userWithRole(email string, role access.Role) *client {
	user := models.User{Email: email, PasswordHash: "x"}
	require.NoError(a.t, a.db.Create(&user).Error)
	require.NoError(a.t, a.db.Create(&models.UserProfile{UserID: user.ID, Role: string(role)}).Error)
	token, err := a.tokens.Issue(context.Background(), user.ID)
	require.NoError(a.t, err)
	c := a.anonymous()
	c.token = token.AccessToken
	return c
}

func (a *testAPI) item(name string, price int64, stock int) models.MenuItem {
	item := models.MenuItem{Name: name, Price: decimal.NewFromInt(price), Stock: stock, IsActive: true}
	require.NoError(a.t, a.db.Create(&item).Error)
	return item
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.api.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.api.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (string, map[string]interface{}) {
	var env struct {
		View string                 `json:"view"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.View, env.Data
}

func TestRegisterLoginAndMe(t *testing.T) {
	api := setupTestAPI(t)
	anon := api.anonymous()

	w := anon.do(http.MethodPost, "/api/v1/auth/register", gin.H{"email": "first@campus.edu", "password": "secret1", "role": "student"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	w = anon.do(http.MethodPost, "/api/v1/auth/register", gin.H{"email": "first@campus.edu", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = anon.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "first@campus.edu", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = anon.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "first@campus.edu", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	_, data := decodeEnvelope(t, w)
	anon.token = data["access_token"].(string)

	w = anon.do(http.MethodGet, "/api/v1/protected/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, data = decodeEnvelope(t, w)
	// first account is promoted; admins work with the vendor capability set
	assert.Equal(t, "admin", data["displayed_role"])
	assert.Equal(t, "vendor", data["capability_role"])
	assert.Equal(t, access.ViewVendorDashboard, data["dashboard"])
}

func TestCartAndCashCheckout(t *testing.T) {
	api := setupTestAPI(t)
	student := api.userWithRole("s@campus.edu", access.Student)
	item := api.item("Khichuri", 100, 5)

	w := student.do(http.MethodPost, "/api/v1/public/cart/items", gin.H{"menu_item_id": item.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view, data := decodeEnvelope(t, w)
	assert.Equal(t, "cart/detail", view)
	assert.Equal(t, "200", data["total"])

	w = student.do(http.MethodPost, "/api/v1/protected/checkout", gin.H{"payment_method": "cash"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view, data = decodeEnvelope(t, w)
	assert.Equal(t, "orders/confirmation", view)
	assert.Equal(t, "paid", data["payment_status"])

	w = student.do(http.MethodGet, "/api/v1/public/cart", nil)
	_, data = decodeEnvelope(t, w)
	assert.Empty(t, data["lines"])

	var stored models.MenuItem
	require.NoError(t, api.db.First(&stored, item.ID).Error)
	assert.Equal(t, 3, stored.Stock)

	w = student.do(http.MethodPost, "/api/v1/protected/checkout", gin.H{"payment_method": "cash"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrEmptyCart)
}

func TestCheckoutOutOfStock(t *testing.T) {
	api := setupTestAPI(t)
	student := api.userWithRole("s@campus.edu", access.Student)
	item := api.item("Fuchka", 40, 1)

	student.do(http.MethodPost, "/api/v1/public/cart/items", gin.H{"menu_item_id": item.ID, "quantity": 3})
	w := student.do(http.MethodPost, "/api/v1/protected/checkout", gin.H{"payment_method": "cash"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrOutOfStock)
	assert.Contains(t, w.Body.String(), "Fuchka")

	// the cart survives a failed checkout
	w = student.do(http.MethodGet, "/api/v1/public/cart", nil)
	_, data := decodeEnvelope(t, w)
	assert.Len(t, data["lines"], 1)
}

func TestMockCardWithoutCVCRedirectsToFailure(t *testing.T) {
	api := setupTestAPI(t)
	student := api.userWithRole("s@campus.edu", access.Student)
	item := api.item("Tea", 10, 5)

	student.do(http.MethodPost, "/api/v1/public/cart/items", gin.H{"menu_item_id": item.ID})
	w := student.do(http.MethodPost, "/api/v1/protected/checkout", gin.H{"payment_method": "mock_card", "card_number": "4242424242424242"})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "http://app/failure?order_id=1", w.Header().Get("Location"))

	var payment models.Payment
	require.NoError(t, api.db.First(&payment).Error)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	w = student.do(http.MethodPost, "/api/v1/protected/orders/1/pay/card", gin.H{"card_number": "4242424242424242", "cvc": "123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, data := decodeEnvelope(t, w)
	assert.Equal(t, "paid", data["status"])
}

func TestGatewayPaymentFlow(t *testing.T) {
	api := setupTestAPI(t)
	student := api.userWithRole("s@campus.edu", access.Student)
	item := api.item("Tea", 10, 5)

	student.do(http.MethodPost, "/api/v1/public/cart/items", gin.H{"menu_item_id": item.ID})
	w := student.do(http.MethodPost, "/api/v1/protected/checkout", gin.H{"payment_method": "stripe"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view, data := decodeEnvelope(t, w)
	assert.Equal(t, "orders/awaiting_payment", view)
	assert.Equal(t, "/api/v1/protected/orders/1/pay", data["payment_url"])

	w = student.do(http.MethodPost, "/api/v1/protected/orders/1/pay", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "https://pay.example/cs_1", w.Header().Get("Location"))

	anon := api.anonymous()
	w = anon.do(http.MethodPost, "/api/v1/public/payments/stripe/callback", gin.H{"reference": "cs_1", "paid": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"payment_status":"paid"`)

	w = student.do(http.MethodGet, "/api/v1/protected/orders/1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"order_id":1,"order_status":"pending","payment_status":"paid","transaction_id":"cs_1"}`, w.Body.String())

	w = anon.do(http.MethodPost, "/api/v1/public/payments/paypal/callback", gin.H{})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = anon.do(http.MethodPost, "/api/v1/public/payments/stripe/callback", gin.H{"nothing": true})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGatewayUnavailableRedirectsToFailure(t *testing.T) {
	api := setupTestAPI(t)
	student := api.userWithRole("s@campus.edu", access.Student)
	item := api.item("Tea", 10, 5)

	student.do(http.MethodPost, "/api/v1/public/cart/items", gin.H{"menu_item_id": item.ID})
	student.do(http.MethodPost, "/api/v1/protected/checkout", gin.H{"payment_method": "sslcommerz"})

	w := student.do(http.MethodPost, "/api/v1/protected/orders/1/pay", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "http://app/failure?order_id=1", w.Header().Get("Location"))

	other := api.userWithRole("o@campus.edu", access.Student)
	w = other.do(http.MethodPost, "/api/v1/protected/orders/1/pay", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOperationsRequireOperatorRole(t *testing.T) {
	api := setupTestAPI(t)
	student := api.userWithRole("s@campus.edu", access.Student)
	staff := api.userWithRole("staff@campus.edu", access.Staff)
	item := api.item("Tea", 10, 5)

	student.do(http.MethodPost, "/api/v1/public/cart/items", gin.H{"menu_item_id": item.ID})
	student.do(http.MethodPost, "/api/v1/protected/checkout", gin.H{"payment_method": "stripe"})

	w := student.do(http.MethodPost, "/api/v1/operations/orders/1/accept", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not authorized")

	w = staff.do(http.MethodPost, "/api/v1/operations/orders/1/prepare", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, data := decodeEnvelope(t, w)
	assert.Equal(t, "preparing", data["status"])

	w = student.do(http.MethodPost, "/api/v1/protected/orders/1/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrInvalidTransition)

	w = staff.do(http.MethodPost, "/api/v1/operations/orders/1/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrPaymentRequired)

	w = staff.do(http.MethodPost, "/api/v1/operations/orders/1/mark-paid", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = staff.do(http.MethodPost, "/api/v1/operations/orders/1/complete", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = staff.do(http.MethodPost, "/api/v1/operations/orders/abc/accept", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestManagementUsesCapabilityRole(t *testing.T) {
	api := setupTestAPI(t)
	admin := api.userWithRole("admin@campus.edu", access.Admin)
	vendor := api.userWithRole("vendor@campus.edu", access.Vendor)
	staff := api.userWithRole("staff@campus.edu", access.Staff)

	w := admin.do(http.MethodPost, "/api/v1/manage/menu", gin.H{"name": "Tea", "price": "10.50", "stock": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = staff.do(http.MethodPost, "/api/v1/manage/menu", gin.H{"name": "Coffee", "price": "20"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// user management belongs to the admin capability, which displayed vendors hold
	w = vendor.do(http.MethodGet, "/api/v1/admin/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = admin.do(http.MethodGet, "/api/v1/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = vendor.do(http.MethodPut, "/api/v1/admin/users/3/role", gin.H{"role": "faculty"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the role change applies to the existing token at once
	w = staff.do(http.MethodGet, "/api/v1/protected/dashboard", nil)
	view, _ := decodeEnvelope(t, w)
	assert.Equal(t, access.ViewCustomerDashboard, view)

	w = vendor.do(http.MethodPost, "/api/v1/admin/ratings/rebuild", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, data := decodeEnvelope(t, w)
	assert.Equal(t, float64(1), data["items_processed"])
}

func TestDashboardViews(t *testing.T) {
	api := setupTestAPI(t)
	staff := api.userWithRole("staff@campus.edu", access.Staff)
	admin := api.userWithRole("admin@campus.edu", access.Admin)

	w := staff.do(http.MethodGet, "/api/v1/protected/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view, data := decodeEnvelope(t, w)
	assert.Equal(t, access.ViewStaffDashboard, view)
	assert.Contains(t, data, "queue")

	w = admin.do(http.MethodGet, "/api/v1/protected/dashboard", nil)
	view, _ = decodeEnvelope(t, w)
	assert.Equal(t, access.ViewVendorDashboard, view)

	w = api.anonymous().do(http.MethodGet, "/api/v1/protected/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReviewEndpoints(t *testing.T) {
	api := setupTestAPI(t)
	student := api.userWithRole("s@campus.edu", access.Student)
	staff := api.userWithRole("staff@campus.edu", access.Staff)
	item := api.item("Biryani", 180, 5)

	w := student.do(http.MethodPost, fmt.Sprintf("/api/v1/protected/menu/%d/reviews", item.ID), gin.H{"rating": 5})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrReviewNotAllowed)

	student.do(http.MethodPost, "/api/v1/public/cart/items", gin.H{"menu_item_id": item.ID})
	student.do(http.MethodPost, "/api/v1/protected/checkout", gin.H{"payment_method": "cash"})
	for _, step := range []string{"accept", "prepare", "ready", "deliver", "complete"} {
		w = staff.do(http.MethodPost, "/api/v1/operations/orders/1/"+step, nil)
		require.Equal(t, http.StatusOK, w.Code, step)
	}

	w = student.do(http.MethodPost, fmt.Sprintf("/api/v1/protected/menu/%d/reviews", item.ID), gin.H{"rating": 5, "comment": "superb"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = student.do(http.MethodPost, fmt.Sprintf("/api/v1/protected/menu/%d/reviews", item.ID), gin.H{"rating": 4})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.anonymous().do(http.MethodGet, fmt.Sprintf("/api/v1/public/menu/%d", item.ID), nil)
	_, data := decodeEnvelope(t, w)
	assert.Equal(t, float64(5), data["rating_avg"])
	assert.Equal(t, float64(1), data["rating_count"])

	w = api.anonymous().do(http.MethodGet, fmt.Sprintf("/api/v1/public/menu/%d/reviews", item.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "superb")
}

func TestPaymentLandingPages(t *testing.T) {
	api := setupTestAPI(t)
	w := api.anonymous().do(http.MethodGet, "/api/v1/public/payments/failure?order_id=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view, data := decodeEnvelope(t, w)
	assert.Equal(t, "payments/failure", view)
	assert.Equal(t, "7", data["order_id"])
}

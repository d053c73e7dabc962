package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/cart"
	"github.com/franciscosanchezn/campus-canteen-api/internal/database"
	"github.com/franciscosanchezn/campus-canteen-api/internal/events"
	"github.com/franciscosanchezn/campus-canteen-api/internal/gateway"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, role access.Role) access.Identity {
	user := models.User{Email: email, Name: email, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.UserProfile{UserID: user.ID, Role: string(role)}).Error)
	return access.NewIdentity(user.ID, string(role))
}

func createItem(t *testing.T, db *gorm.DB, name string, price int64, stock int) models.MenuItem {
	item := models.MenuItem{Name: name, Price: decimal.NewFromInt(price), Stock: stock, IsActive: true}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func stockOf(t *testing.T, db *gorm.DB, id uint) int {
	var item models.MenuItem
	require.NoError(t, db.Unscoped().First(&item, id).Error)
	return item.Stock
}

func setStatus(t *testing.T, db *gorm.DB, orderID uint, status models.OrderStatus) {
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", orderID).Update("status", status).Error)
}

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
}

func (n *recordingNotifier) Notify(recipient, subject, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subjects = append(n.subjects, subject)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (e *recordingEmitter) Emit(event events.OrderEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

type stubGateway struct {
	session *gateway.Session
	err     error
	ack     *gateway.Acknowledgement
	last    gateway.InitRequest
}

func (g *stubGateway) Initialize(ctx context.Context, req gateway.InitRequest) (*gateway.Session, error) {
	g.last = req
	return g.session, g.err
}

func (g *stubGateway) Acknowledge(payload []byte, contentType string) (*gateway.Acknowledgement, error) {
	if g.ack == nil {
		return nil, gateway.ErrMalformedCallback
	}
	return g.ack, nil
}

type fixture struct {
	db       *gorm.DB
	orders   OrderService
	payments PaymentService
	reviews  ReviewService
	notes    *recordingNotifier
	emitter  *recordingEmitter
	stripe   *stubGateway
}

func newFixture(t *testing.T) *fixture {
	db := setupTestDB(t)
	f := &fixture{
		db:      db,
		notes:   &recordingNotifier{},
		emitter: &recordingEmitter{},
		stripe:  &stubGateway{},
	}
	f.payments = NewPaymentService(db,
		map[models.PaymentMethod]gateway.Gateway{models.MethodStripe: f.stripe},
		PaymentSettings{Currency: "BDT", SuccessURL: "http://app/success", FailureURL: "http://app/failure"},
		f.notes, f.emitter)
	f.orders = NewOrderService(db, f.payments, f.notes, f.emitter)
	f.reviews = NewReviewService(db)
	return f
}

func checkoutCart(t *testing.T, itemID uint, qty int) *cart.Cart {
	c := cart.New()
	require.NoError(t, c.Add(itemID, qty))
	return c
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/cart"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckoutRequest is the checkout form
type CheckoutRequest struct {
	Method  models.PaymentMethod
	Address string
	Card    *CardDetails
}

// CheckoutResult tells the caller where to send the user next
type CheckoutResult struct {
	Order   *models.Order
	Payment *models.Payment
	// RequiresRedirect is set for gateway methods awaiting initialization
	RequiresRedirect bool
	// PaymentFailed is set when the payment branch failed but the order was kept
	PaymentFailed bool
}

// OrderStatusSnapshot is the polling view of an order
type OrderStatusSnapshot struct {
	OrderID       uint                 `json:"order_id"`
	OrderStatus   models.OrderStatus   `json:"order_status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	TransactionID string               `json:"transaction_id"`
}

// OrderFilter narrows order listings
type OrderFilter struct {
	Status models.OrderStatus
}

type OrderService interface {
	// Checkout turns the cart into an order, reserving stock and running the payment branch
	Checkout(ctx context.Context, actor access.Identity, c *cart.Cart, req CheckoutRequest) (*CheckoutResult, error)
	Accept(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error)
	Prepare(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error)
	MarkReady(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error)
	Deliver(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error)
	// Complete closes a delivered order; the payment must be settled
	Complete(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error)
	// Cancel is the operator cancel, allowed before delivery
	Cancel(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error)
	// SelfCancel lets a customer cancel their own order while it is pending or accepted
	SelfCancel(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error)
	Get(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error)
	List(ctx context.Context, actor access.Identity, filter OrderFilter) ([]models.Order, error)
	StatusSnapshot(ctx context.Context, actor access.Identity, orderID uint) (*OrderStatusSnapshot, error)
}

type orderService struct {
	db       *gorm.DB
	payments PaymentService
	announcer
}

func NewOrderService(db *gorm.DB, payments PaymentService, notes Notifier, emitter EventEmitter) OrderService {
	return &orderService{db: db, payments: payments, announcer: newAnnouncer(notes, emitter)}
}

// lifecycle ranks the forward states; cancelled sits outside the ladder
var lifecycle = map[models.OrderStatus]int{
	models.OrderPending:   0,
	models.OrderAccepted:  1,
	models.OrderPreparing: 2,
	models.OrderReady:     3,
	models.OrderDelivered: 4,
	models.OrderCompleted: 5,
}

func (s *orderService) Checkout(ctx context.Context, actor access.Identity, c *cart.Cart, req CheckoutRequest) (*CheckoutResult, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if !req.Method.IsValid() {
		return nil, invalid("payment_method", "unsupported payment method")
	}
	if err := req.Card.normalize(); err != nil {
		return nil, err
	}
	address := strings.TrimSpace(req.Address)
	if len(address) > 255 {
		return nil, invalid("address", "must be at most 255 characters")
	}

	order := models.Order{
		UserID:        actor.UserID,
		Address:       address,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentUnpaid,
		PaymentMethod: req.Method,
	}
	var payment models.Payment
	var email string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := c.Lines()
		items := make([]models.MenuItem, len(lines))
		total := decimal.Zero
		for i, line := range lines {
			if line.Quantity <= 0 {
				return invalid("quantity", fmt.Sprintf("quantity for menu item %d must be at least 1", line.MenuItemID))
			}
			err := tx.Where("is_active = ?", true).First(&items[i], line.MenuItemID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: menu item %d is no longer available", ErrNotFound, line.MenuItemID)
			}
			if err != nil {
				return err
			}
			if items[i].Stock < line.Quantity {
				return &StockError{MenuItemID: items[i].ID, Name: items[i].Name, Available: items[i].Stock, Requested: line.Quantity}
			}
			total = total.Add(items[i].Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		order.TotalPrice = total
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		orderItems := make([]models.OrderItem, len(lines))
		for i, line := range lines {
			result := tx.Model(&models.MenuItem{}).
				Where("id = ? AND stock >= ?", line.MenuItemID, line.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				// another checkout took the stock after the first read
				var current models.MenuItem
				if err := tx.Select("stock").First(&current, line.MenuItemID).Error; err != nil {
					return err
				}
				return &StockError{MenuItemID: items[i].ID, Name: items[i].Name, Available: current.Stock, Requested: line.Quantity}
			}
			orderItems[i] = models.OrderItem{
				OrderID:    order.ID,
				MenuItemID: line.MenuItemID,
				Quantity:   line.Quantity,
				UnitPrice:  items[i].Price,
			}
		}
		if err := tx.Create(&orderItems).Error; err != nil {
			return err
		}
		order.Items = orderItems

		payment = models.Payment{
			OrderID: order.ID,
			Method:  req.Method,
			Amount:  total,
			Status:  models.PaymentStatusPending,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if err := s.payments.ApplyMethod(tx, &order, &payment, req.Card); err != nil {
			return err
		}
		order.Payment = &payment

		var owner models.User
		if err := tx.Select("email").First(&owner, actor.UserID).Error; err != nil {
			return notFound(err)
		}
		email = owner.Email
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.Clear()
	log.WithFields(logrus.Fields{
		"order_id":       order.ID,
		"user_id":        actor.UserID,
		"total":          order.TotalPrice.StringFixed(2),
		"payment_status": payment.Status,
	}).Info("Order placed")

	s.orderPlaced(&order, email)
	if payment.Status == models.PaymentStatusPaid {
		s.paymentSettled(&order, &payment, actor.UserID, email)
	}

	return &CheckoutResult{
		Order:            &order,
		Payment:          &payment,
		RequiresRedirect: req.Method.IsGateway(),
		PaymentFailed:    payment.Status == models.PaymentStatusFailed,
	}, nil
}

func (s *orderService) Accept(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error) {
	return s.advance(ctx, actor, orderID, models.OrderAccepted)
}

func (s *orderService) Prepare(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error) {
	return s.advance(ctx, actor, orderID, models.OrderPreparing)
}

func (s *orderService) MarkReady(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error) {
	return s.advance(ctx, actor, orderID, models.OrderReady)
}

func (s *orderService) Deliver(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error) {
	return s.advance(ctx, actor, orderID, models.OrderDelivered)
}

func (s *orderService) Complete(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error) {
	return s.advance(ctx, actor, orderID, models.OrderCompleted)
}

// advance moves an order forward along the lifecycle. Writing the current
// status again is accepted and changes nothing else.
func (s *orderService) advance(ctx context.Context, actor access.Identity, orderID uint, to models.OrderStatus) (*models.Order, error) {
	if !access.Allowed(actor.Displayed, access.OrderOperators) {
		return nil, ErrNotAuthorized
	}
	var order models.Order
	var from models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(tx, orderID, &order); err != nil {
			return err
		}
		from = order.Status
		if from != to {
			if from.IsTerminal() {
				return &TransitionError{OrderID: order.ID, From: string(from), To: string(to), Reason: "the order is already " + string(from)}
			}
			if lifecycle[to] < lifecycle[from] {
				return &TransitionError{OrderID: order.ID, From: string(from), To: string(to), Reason: "orders cannot move backwards"}
			}
		}
		if to == models.OrderCompleted && order.PaymentStatus != models.PaymentPaid {
			return ErrPaymentRequired
		}
		return writeStatus(tx, &order, to)
	})
	if err != nil {
		return nil, err
	}
	if from != to {
		log.WithFields(logrus.Fields{"order_id": order.ID, "from": from, "to": to, "by": actor.UserID}).Info("Order status changed")
		s.orderChanged(&order, from, actor.UserID, ownerEmail(&order))
	}
	return &order, nil
}

func (s *orderService) Cancel(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error) {
	if !access.Allowed(actor.Displayed, access.OrderOperators) {
		return nil, ErrNotAuthorized
	}
	return s.cancel(ctx, actor, orderID, func(order *models.Order) error {
		switch order.Status {
		case models.OrderDelivered, models.OrderCompleted:
			return &TransitionError{OrderID: order.ID, From: string(order.Status), To: string(models.OrderCancelled), Reason: "delivered orders cannot be cancelled"}
		}
		return nil
	})
}

func (s *orderService) SelfCancel(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error) {
	if !access.Allowed(actor.Displayed, access.SelfServiceTier) {
		return nil, ErrNotAuthorized
	}
	return s.cancel(ctx, actor, orderID, func(order *models.Order) error {
		if order.UserID != actor.UserID {
			return ErrNotFound
		}
		switch order.Status {
		case models.OrderPending, models.OrderAccepted, models.OrderCancelled:
			return nil
		}
		return &TransitionError{OrderID: order.ID, From: string(order.Status), To: string(models.OrderCancelled), Reason: "the kitchen has already started on it"}
	})
}

// cancel runs the shared cancel path: status, stock restoration and payment
// voiding happen in one transaction. Cancelling a cancelled order is a no-op.
func (s *orderService) cancel(ctx context.Context, actor access.Identity, orderID uint, check func(*models.Order) error) (*models.Order, error) {
	var order models.Order
	var from models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(tx, orderID, &order); err != nil {
			return err
		}
		if err := check(&order); err != nil {
			return err
		}
		from = order.Status
		if from == models.OrderCancelled {
			return nil
		}
		if err := writeStatus(tx, &order, models.OrderCancelled); err != nil {
			return err
		}
		if err := restoreStock(tx, order.ID); err != nil {
			return err
		}
		return tx.Model(&models.Payment{}).
			Where("order_id = ? AND status IN ?", order.ID, []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusFailed}).
			Update("status", models.PaymentStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}
	if from != models.OrderCancelled {
		log.WithFields(logrus.Fields{"order_id": order.ID, "from": from, "by": actor.UserID}).Info("Order cancelled")
		s.orderChanged(&order, from, actor.UserID, ownerEmail(&order))
	}
	return &order, nil
}

func lockOrder(tx *gorm.DB, orderID uint, order *models.Order) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("User").First(order, orderID).Error
	return notFound(err)
}

// writeStatus updates the status only if nobody changed it since it was read
func writeStatus(tx *gorm.DB, order *models.Order, to models.OrderStatus) error {
	result := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &TransitionError{OrderID: order.ID, From: string(order.Status), To: string(to), Reason: "the order was changed by someone else"}
	}
	order.Status = to
	return nil
}

// restoreStock puts every line's quantity back, including soft-deleted items
func restoreStock(tx *gorm.DB, orderID uint) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		err := tx.Unscoped().Model(&models.MenuItem{}).
			Where("id = ?", item.MenuItemID).
			UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// scopeOrders limits an orders query to what the caller's capability role may see
func scopeOrders(query *gorm.DB, actor access.Identity) *gorm.DB {
	switch access.OrderScopeFor(actor.Capability) {
	case access.ScopeAll:
		return query
	case access.ScopeOpen:
		return query.Where("(orders.user_id = ? OR orders.status NOT IN ?)", actor.UserID,
			[]models.OrderStatus{models.OrderCompleted, models.OrderCancelled})
	default:
		return query.Where("orders.user_id = ?", actor.UserID)
	}
}

func preloadOrder(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Items.MenuItem", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Payment")
}

func (s *orderService) Get(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error) {
	var order models.Order
	err := preloadOrder(scopeOrders(s.db.WithContext(ctx).Model(&models.Order{}), actor)).
		Where("orders.id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (s *orderService) List(ctx context.Context, actor access.Identity, filter OrderFilter) ([]models.Order, error) {
	query := preloadOrder(scopeOrders(s.db.WithContext(ctx).Model(&models.Order{}), actor))
	if filter.Status != "" {
		if _, known := lifecycle[filter.Status]; !known && filter.Status != models.OrderCancelled {
			return nil, invalid("status", "unknown order status")
		}
		query = query.Where("orders.status = ?", filter.Status)
	}
	var orders []models.Order
	if err := query.Order("orders.created_at DESC, orders.id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *orderService) StatusSnapshot(ctx context.Context, actor access.Identity, orderID uint) (*OrderStatusSnapshot, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Payment").
		Where("id = ? AND user_id = ?", orderID, actor.UserID).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	snapshot := &OrderStatusSnapshot{OrderID: order.ID, OrderStatus: order.Status}
	if order.Payment != nil {
		snapshot.PaymentStatus = order.Payment.Status
		snapshot.TransactionID = order.Payment.TransactionID
	}
	return snapshot, nil
}

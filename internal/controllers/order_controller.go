package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/cart"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/gin-gonic/gin"
)

// OrderController exposes checkout and the order lifecycle
type OrderController struct {
	orders     services.OrderService
	store      cart.Store
	render     Renderer
	failureURL string
}

func NewOrderController(orders services.OrderService, store cart.Store, render Renderer, failureURL string) *OrderController {
	return &OrderController{orders: orders, store: store, render: render, failureURL: failureURL}
}

type checkoutRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
	Address       string               `json:"address"`
	CardNumber    string               `json:"card_number"`
	CVC           string               `json:"cvc"`
}

// Checkout godoc
// @Summary Check out the cart
// @Description Creates an order from the session cart. Cash and complete mock card details settle at once.
// @Description Gateway methods answer with the URL that opens the gateway session.
// @Description A failed mock card payment redirects to the failure page.
// @Tags orders
// @Accept json
// @Produce json
// @Param body body checkoutRequest true "Checkout form"
// @Success 201 {object} Envelope
// @Success 303
// @Failure 400 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Failure 422 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/checkout [post]
func (oc *OrderController) Checkout(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "payment_method is required")
		return
	}

	var card *services.CardDetails
	if req.PaymentMethod == models.MethodMockCard || req.CardNumber != "" || req.CVC != "" {
		card = &services.CardDetails{Number: req.CardNumber, CVC: req.CVC}
	}

	current := oc.store.Load(c)
	result, err := oc.orders.Checkout(c.Request.Context(), id, current, services.CheckoutRequest{
		Method:  req.PaymentMethod,
		Address: req.Address,
		Card:    card,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if err := oc.store.Save(c, current); err != nil {
		log.WithError(err).WithField("order_id", result.Order.ID).Error("Failed to clear cart after checkout")
	}

	switch {
	case result.PaymentFailed:
		if oc.failureURL != "" {
			c.Redirect(http.StatusSeeOther, withOrderID(oc.failureURL, result.Order.ID))
			return
		}
		c.JSON(http.StatusPaymentRequired, models.NewAPIError(models.ErrPaymentFailed,
			"Payment failed. Your order was kept and can be paid again.",
			map[string]interface{}{"order_id": result.Order.ID}))
	case result.RequiresRedirect:
		oc.render.Render(c, http.StatusCreated, "orders/awaiting_payment", gin.H{
			"order":       result.Order,
			"payment_url": fmt.Sprintf("/api/v1/protected/orders/%d/pay", result.Order.ID),
		})
	default:
		oc.render.Render(c, http.StatusCreated, "orders/confirmation", result.Order)
	}
}

// withOrderID appends the order id to a redirect target
func withOrderID(target string, orderID uint) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set("order_id", fmt.Sprint(orderID))
	u.RawQuery = q.Encode()
	return u.String()
}

// List godoc
// @Summary List orders
// @Description Own orders for customers, open orders for staff, every order for managers
// @Tags orders
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/protected/orders [get]
func (oc *OrderController) List(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	orders, err := oc.orders.List(c.Request.Context(), id, services.OrderFilter{Status: models.OrderStatus(c.Query("status"))})
	if err != nil {
		respondError(c, err)
		return
	}
	oc.render.Render(c, http.StatusOK, "orders/list", orders)
}

// Get godoc
// @Summary Get order
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} Envelope
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/orders/{id} [get]
func (oc *OrderController) Get(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := oc.orders.Get(c.Request.Context(), id, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	oc.render.Render(c, http.StatusOK, "orders/detail", order)
}

// Status godoc
// @Summary Poll order status
// @Description Order and payment status of the caller's own order
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} services.OrderStatusSnapshot
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/orders/{id}/status [get]
func (oc *OrderController) Status(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	snapshot, err := oc.orders.StatusSnapshot(c.Request.Context(), id, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// SelfCancel godoc
// @Summary Cancel own order
// @Description Allowed while the order is pending or accepted. Stock is restored.
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} Envelope
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/orders/{id}/cancel [post]
func (oc *OrderController) SelfCancel(c *gin.Context) {
	oc.transition(c, oc.orders.SelfCancel)
}

// Accept godoc
// @Summary Accept an order
// @Tags order-operations
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} Envelope
// @Failure 403 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/operations/orders/{id}/accept [post]
func (oc *OrderController) Accept(c *gin.Context) { oc.transition(c, oc.orders.Accept) }

// Prepare godoc
// @Summary Start preparing an order
// @Tags order-operations
// @Param id path int true "Order ID"
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/operations/orders/{id}/prepare [post]
func (oc *OrderController) Prepare(c *gin.Context) { oc.transition(c, oc.orders.Prepare) }

// MarkReady godoc
// @Summary Mark an order ready for pickup
// @Tags order-operations
// @Param id path int true "Order ID"
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/operations/orders/{id}/ready [post]
func (oc *OrderController) MarkReady(c *gin.Context) { oc.transition(c, oc.orders.MarkReady) }

// Deliver godoc
// @Summary Mark an order delivered
// @Tags order-operations
// @Param id path int true "Order ID"
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/operations/orders/{id}/deliver [post]
func (oc *OrderController) Deliver(c *gin.Context) { oc.transition(c, oc.orders.Deliver) }

// Complete godoc
// @Summary Complete an order
// @Description Requires a settled payment
// @Tags order-operations
// @Param id path int true "Order ID"
// @Success 200 {object} Envelope
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/operations/orders/{id}/complete [post]
func (oc *OrderController) Complete(c *gin.Context) { oc.transition(c, oc.orders.Complete) }

// Cancel godoc
// @Summary Cancel an order
// @Description Allowed before delivery. Stock is restored.
// @Tags order-operations
// @Param id path int true "Order ID"
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/operations/orders/{id}/cancel [post]
func (oc *OrderController) Cancel(c *gin.Context) { oc.transition(c, oc.orders.Cancel) }

type transitionFunc func(ctx context.Context, actor access.Identity, orderID uint) (*models.Order, error)

func (oc *OrderController) transition(c *gin.Context, run transitionFunc) {
	id, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := run(c.Request.Context(), id, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	oc.render.Render(c, http.StatusOK, "orders/detail", order)
}

package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// maxCallbackBytes bounds gateway callback bodies
const maxCallbackBytes = 1 << 20

// PaymentController drives gateway sessions, callbacks and manual settlement
type PaymentController struct {
	payments services.PaymentService
	render   Renderer
}

func NewPaymentController(payments services.PaymentService, render Renderer) *PaymentController {
	return &PaymentController{payments: payments, render: render}
}

// Initialize godoc
// @Summary Pay through the gateway
// @Description Opens a gateway session and redirects to it. Gateway problems redirect to the failure page.
// @Tags payments
// @Param id path int true "Order ID"
// @Success 303
// @Failure 404 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Failure 502 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/orders/{id}/pay [post]
func (pc *PaymentController) Initialize(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	session, err := pc.payments.InitializeGateway(c.Request.Context(), id, orderID)
	if err != nil {
		failureURL := pc.payments.Settings().FailureURL
		if failureURL != "" && !errors.Is(err, services.ErrNotFound) && !errors.Is(err, services.ErrNotAuthorized) {
			log.WithError(err).WithField("order_id", orderID).Warn("Redirecting to payment failure page")
			c.Redirect(http.StatusSeeOther, withOrderID(failureURL, orderID))
			return
		}
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, session.RedirectURL)
}

// Callback godoc
// @Summary Gateway callback
// @Description Acknowledges a gateway notification. Signatures are not verified.
// @Tags payments
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param method path string true "stripe or sslcommerz"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.APIError
// @Failure 422 {object} models.APIError
// @Router /api/v1/public/payments/{method}/callback [post]
func (pc *PaymentController) Callback(c *gin.Context) {
	method := models.PaymentMethod(c.Param("method"))
	if !method.IsGateway() {
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "unknown payment gateway"))
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))
	if err != nil {
		badRequest(c, "Unreadable callback body")
		return
	}

	payment, err := pc.payments.AcknowledgeCallback(c.Request.Context(), method, payload, c.ContentType())
	if err != nil {
		log.WithError(err).WithField("method", method).Warn("Gateway callback rejected")
		respondError(c, err)
		return
	}
	log.WithFields(logrus.Fields{"order_id": payment.OrderID, "status": payment.Status}).Info("Gateway callback processed")
	c.JSON(http.StatusOK, gin.H{"received": true, "payment_status": payment.Status})
}

// Success godoc
// @Summary Payment success landing page
// @Tags payments
// @Produce json
// @Param order_id query int false "Order ID"
// @Success 200 {object} Envelope
// @Router /api/v1/public/payments/success [get]
func (pc *PaymentController) Success(c *gin.Context) {
	pc.render.Render(c, http.StatusOK, "payments/success", gin.H{
		"order_id": c.Query("order_id"),
		"message":  "Thank you! Your payment is being confirmed.",
	})
}

// Failure godoc
// @Summary Payment failure landing page
// @Tags payments
// @Produce json
// @Param order_id query int false "Order ID"
// @Success 200 {object} Envelope
// @Router /api/v1/public/payments/failure [get]
func (pc *PaymentController) Failure(c *gin.Context) {
	pc.render.Render(c, http.StatusOK, "payments/failure", gin.H{
		"order_id": c.Query("order_id"),
		"message":  "Payment failed. Your order was kept; you can try paying again.",
	})
}

type cardRequest struct {
	CardNumber string `json:"card_number" binding:"required"`
	CVC        string `json:"cvc" binding:"required"`
}

// PayWithCard godoc
// @Summary Retry a card payment
// @Tags payments
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param body body cardRequest true "Card"
// @Success 200 {object} Envelope
// @Failure 409 {object} models.APIError
// @Failure 422 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/orders/{id}/pay/card [post]
func (pc *PaymentController) PayWithCard(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "card_number and cvc are required")
		return
	}
	payment, err := pc.payments.PayWithCard(c.Request.Context(), id, orderID, services.CardDetails{Number: req.CardNumber, CVC: req.CVC})
	if err != nil {
		respondError(c, err)
		return
	}
	pc.render.Render(c, http.StatusOK, "payments/detail", payment)
}

// Get godoc
// @Summary Get the payment of an order
// @Tags payments
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} Envelope
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/orders/{id}/payment [get]
func (pc *PaymentController) Get(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	payment, err := pc.payments.GetForOrder(c.Request.Context(), id, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	pc.render.Render(c, http.StatusOK, "payments/detail", payment)
}

// MarkPaid godoc
// @Summary Record a counter payment
// @Tags order-operations
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} Envelope
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/operations/orders/{id}/mark-paid [post]
func (pc *PaymentController) MarkPaid(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	payment, err := pc.payments.MarkPaid(c.Request.Context(), id, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	pc.render.Render(c, http.StatusOK, "payments/detail", payment)
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/middleware"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// SetLogLevel aligns the controllers logger with the application level
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// Renderer turns a view id and its data into a response
type Renderer interface {
	Render(c *gin.Context, status int, view string, data interface{})
}

// Envelope is the JSON shape produced by JSONRenderer
type Envelope struct {
	View string      `json:"view"`
	Data interface{} `json:"data"`
}

// JSONRenderer renders views as a JSON envelope
type JSONRenderer struct{}

func (JSONRenderer) Render(c *gin.Context, status int, view string, data interface{}) {
	c.JSON(status, Envelope{View: view, Data: data})
}

// respondError maps service errors onto API errors
func respondError(c *gin.Context, err error) {
	var validation *services.ValidationError
	var stock *services.StockError

	switch {
	case errors.As(err, &validation):
		details := map[string]interface{}{}
		if validation.Field != "" {
			details["field"] = validation.Field
		}
		c.JSON(http.StatusUnprocessableEntity, models.NewAPIError(models.ErrValidationFailed, validation.Error(), details))
	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, models.NewAPIError(models.ErrOutOfStock, stock.Error(), map[string]interface{}{
			"menu_item_id": stock.MenuItemID,
			"available":    stock.Available,
			"requested":    stock.Requested,
		}))
	case errors.Is(err, services.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrEmptyCart, err.Error()))
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, models.NewAPIError(models.ErrInvalidTransition, err.Error()))
	case errors.Is(err, services.ErrPaymentRequired):
		c.JSON(http.StatusConflict, models.NewAPIError(models.ErrPaymentRequired, err.Error()))
	case errors.Is(err, services.ErrPaymentNotPending):
		c.JSON(http.StatusConflict, models.NewAPIError(models.ErrConflict, err.Error()))
	case errors.Is(err, services.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, models.NewAPIError(models.ErrGatewayUnavailable, err.Error()))
	case errors.Is(err, services.ErrDuplicateReview):
		c.JSON(http.StatusConflict, models.NewAPIError(models.ErrDuplicateReview, err.Error()))
	case errors.Is(err, services.ErrReviewNotAllowed):
		c.JSON(http.StatusForbidden, models.NewAPIError(models.ErrReviewNotAllowed, err.Error()))
	case errors.Is(err, services.ErrUserExists):
		c.JSON(http.StatusConflict, models.NewAPIError(models.ErrConflict, err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, err.Error()))
	case errors.Is(err, services.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, "not authorized"))
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, err.Error()))
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Internal server error"))
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, message))
}

// pathID parses a positive numeric path parameter
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name+" format")
		return 0, false
	}
	return uint(id), true
}

// identity returns the authenticated caller or answers 401
func identity(c *gin.Context) (access.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "User not authenticated"))
		return access.Identity{}, false
	}
	return id, true
}

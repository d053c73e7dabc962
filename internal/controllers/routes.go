package controllers

import (
	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups every controller served by the API
type Handlers struct {
	Auth      *AuthController
	Catalog   CatalogController
	Cart      *CartController
	Orders    *OrderController
	Payments  *PaymentController
	Reviews   *ReviewController
	Dashboard *DashboardController
	Admin     *AdminController
}

// RegisterRoutes mounts the API under /api/v1. authenticate must populate
// the caller identity (see middleware.JWTAuth); the cart needs the sessions
// middleware installed on the router.
func RegisterRoutes(router *gin.Engine, h Handlers, authenticate gin.HandlerFunc) {
	v1 := router.Group("/api/v1")

	authApi := v1.Group("/auth")
	{
		authApi.POST("/register", h.Auth.Register)
		authApi.POST("/login", h.Auth.Login)
	}

	publicApi := v1.Group("/public")
	{
		publicApi.GET("/menu", h.Catalog.ListItems)
		publicApi.GET("/menu/:id", h.Catalog.GetItem)
		publicApi.GET("/menu/:id/reviews", h.Reviews.ListForItem)
		publicApi.GET("/categories", h.Catalog.ListCategories)

		publicApi.GET("/cart", h.Cart.View)
		publicApi.DELETE("/cart", h.Cart.Clear)
		publicApi.POST("/cart/items", h.Cart.Add)
		publicApi.PUT("/cart/items/:id", h.Cart.Set)
		publicApi.DELETE("/cart/items/:id", h.Cart.Remove)

		publicApi.GET("/payments/success", h.Payments.Success)
		publicApi.GET("/payments/failure", h.Payments.Failure)
		publicApi.POST("/payments/:method/callback", h.Payments.Callback)
	}

	protectedApi := v1.Group("/protected")
	protectedApi.Use(authenticate)
	{
		protectedApi.GET("/me", h.Auth.Me)
		protectedApi.GET("/dashboard", h.Dashboard.Dashboard)
		protectedApi.POST("/checkout", h.Orders.Checkout)
		protectedApi.GET("/orders", h.Orders.List)
		protectedApi.GET("/orders/:id", h.Orders.Get)
		protectedApi.GET("/orders/:id/status", h.Orders.Status)
		protectedApi.POST("/orders/:id/cancel", h.Orders.SelfCancel)
		protectedApi.GET("/orders/:id/payment", h.Payments.Get)
		protectedApi.POST("/orders/:id/pay", h.Payments.Initialize)
		protectedApi.POST("/orders/:id/pay/card", h.Payments.PayWithCard)
		protectedApi.POST("/menu/:id/reviews", h.Reviews.Create)
		protectedApi.PUT("/reviews/:id", h.Reviews.Update)
		protectedApi.DELETE("/reviews/:id", h.Reviews.Delete)
	}

	// lifecycle gates use the displayed role
	operationsApi := v1.Group("/operations")
	operationsApi.Use(authenticate, middleware.RequireRole(access.OrderOperators...))
	{
		operationsApi.POST("/orders/:id/accept", h.Orders.Accept)
		operationsApi.POST("/orders/:id/prepare", h.Orders.Prepare)
		operationsApi.POST("/orders/:id/ready", h.Orders.MarkReady)
		operationsApi.POST("/orders/:id/deliver", h.Orders.Deliver)
		operationsApi.POST("/orders/:id/complete", h.Orders.Complete)
		operationsApi.POST("/orders/:id/cancel", h.Orders.Cancel)
		operationsApi.POST("/orders/:id/mark-paid", h.Payments.MarkPaid)
	}

	manageApi := v1.Group("/manage")
	manageApi.Use(authenticate, middleware.RequireCapability(access.MenuManagers...))
	{
		manageApi.GET("/menu", h.Catalog.ListAllItems)
		manageApi.POST("/menu", h.Catalog.CreateItem)
		manageApi.PATCH("/menu/:id", h.Catalog.UpdateItem)
		manageApi.DELETE("/menu/:id", h.Catalog.DeleteItem)
		manageApi.POST("/menu/:id/restock", h.Catalog.Restock)
		manageApi.POST("/categories", h.Catalog.CreateCategory)
		manageApi.DELETE("/categories/:id", h.Catalog.DeleteCategory)
		manageApi.PUT("/reviews/:id/visibility", h.Reviews.SetVisibility)
	}

	adminApi := v1.Group("/admin")
	adminApi.Use(authenticate, middleware.RequireCapability(access.UserManagers...))
	{
		adminApi.GET("/users", h.Admin.ListUsers)
		adminApi.PUT("/users/:id/role", h.Admin.SetRole)
		adminApi.POST("/ratings/rebuild", h.Admin.RebuildRatings)
	}
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/gin-gonic/gin"
)

// CatalogController handles HTTP requests related to the menu
type CatalogController interface {
	// ListItems retrieves active menu items
	ListItems(c *gin.Context)
	// ListAllItems retrieves menu items including hidden ones
	ListAllItems(c *gin.Context)
	// GetItem retrieves a menu item by its ID
	GetItem(c *gin.Context)
	CreateItem(c *gin.Context)
	UpdateItem(c *gin.Context)
	DeleteItem(c *gin.Context)
	Restock(c *gin.Context)
	ListCategories(c *gin.Context)
	CreateCategory(c *gin.Context)
	DeleteCategory(c *gin.Context)
}

type catalogController struct {
	service services.CatalogService
	render  Renderer
}

// NewCatalogController creates a new instance of CatalogController
func NewCatalogController(service services.CatalogService, render Renderer) CatalogController {
	return &catalogController{service: service, render: render}
}

func itemFilter(ctx *gin.Context, includeInactive bool) (services.ItemFilter, bool) {
	filter := services.ItemFilter{
		Search:          ctx.Query("q"),
		PopularOnly:     ctx.Query("popular") == "true",
		Sort:            ctx.Query("sort"),
		IncludeInactive: includeInactive,
	}
	if raw := ctx.Query("category"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			badRequest(ctx, "Invalid category format")
			return filter, false
		}
		categoryID := uint(id)
		filter.CategoryID = &categoryID
	}
	return filter, true
}

// ListItems godoc
// @Summary List menu items
// @Description Active menu items with optional filtering and sorting
// @Tags menu
// @Produce json
// @Param category query int false "Category ID"
// @Param q query string false "Search in name and description"
// @Param popular query bool false "Only popular items"
// @Param sort query string false "name, price, -price, rating or newest"
// @Success 200 {object} Envelope
// @Failure 400 {object} models.APIError
// @Router /api/v1/public/menu [get]
func (cc *catalogController) ListItems(ctx *gin.Context) {
	cc.listItems(ctx, false)
}

// ListAllItems godoc
// @Summary List all menu items
// @Description Menu items including inactive ones, for menu managers
// @Tags menu
// @Produce json
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/manage/menu [get]
func (cc *catalogController) ListAllItems(ctx *gin.Context) {
	cc.listItems(ctx, true)
}

func (cc *catalogController) listItems(ctx *gin.Context, includeInactive bool) {
	filter, ok := itemFilter(ctx, includeInactive)
	if !ok {
		return
	}
	items, err := cc.service.ListItems(ctx.Request.Context(), filter)
	if err != nil {
		respondError(ctx, err)
		return
	}
	cc.render.Render(ctx, http.StatusOK, "menu/list", items)
}

// GetItem godoc
// @Summary Get menu item by ID
// @Tags menu
// @Produce json
// @Param id path int true "Menu item ID"
// @Success 200 {object} Envelope
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Router /api/v1/public/menu/{id} [get]
func (cc *catalogController) GetItem(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	item, err := cc.service.GetItem(ctx.Request.Context(), id, false)
	if err != nil {
		respondError(ctx, err)
		return
	}
	cc.render.Render(ctx, http.StatusOK, "menu/detail", item)
}

// CreateItem godoc
// @Summary Create a menu item
// @Tags menu
// @Accept json
// @Produce json
// @Param item body services.ItemInput true "Menu item"
// @Success 201 {object} Envelope
// @Failure 400 {object} models.APIError
// @Failure 422 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/manage/menu [post]
func (cc *catalogController) CreateItem(ctx *gin.Context) {
	var input services.ItemInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		badRequest(ctx, "Invalid request body")
		return
	}
	item, err := cc.service.CreateItem(ctx.Request.Context(), input)
	if err != nil {
		respondError(ctx, err)
		return
	}
	log.WithField("menu_item_id", item.ID).Info("Menu item created")
	cc.render.Render(ctx, http.StatusCreated, "menu/detail", item)
}

// UpdateItem godoc
// @Summary Update a menu item
// @Description Changes the given fields. Stock is changed through the restock endpoint.
// @Tags menu
// @Accept json
// @Produce json
// @Param id path int true "Menu item ID"
// @Param item body services.ItemInput true "Fields to change"
// @Success 200 {object} Envelope
// @Failure 404 {object} models.APIError
// @Failure 422 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/manage/menu/{id} [patch]
func (cc *catalogController) UpdateItem(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var input services.ItemInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		badRequest(ctx, "Invalid request body")
		return
	}
	item, err := cc.service.UpdateItem(ctx.Request.Context(), id, input)
	if err != nil {
		respondError(ctx, err)
		return
	}
	cc.render.Render(ctx, http.StatusOK, "menu/detail", item)
}

// DeleteItem godoc
// @Summary Delete a menu item
// @Description Hides the item; past orders keep referring to it
// @Tags menu
// @Param id path int true "Menu item ID"
// @Success 204
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/manage/menu/{id} [delete]
func (cc *catalogController) DeleteItem(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := cc.service.DeleteItem(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

type restockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// Restock godoc
// @Summary Change stock
// @Description Adds quantity (negative to remove) without letting stock drop below zero
// @Tags menu
// @Accept json
// @Produce json
// @Param id path int true "Menu item ID"
// @Param body body restockRequest true "Quantity delta"
// @Success 200 {object} Envelope
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/manage/menu/{id}/restock [post]
func (cc *catalogController) Restock(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req restockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "quantity is required")
		return
	}
	item, err := cc.service.Restock(ctx.Request.Context(), id, req.Quantity)
	if err != nil {
		respondError(ctx, err)
		return
	}
	cc.render.Render(ctx, http.StatusOK, "menu/detail", item)
}

// ListCategories godoc
// @Summary List categories
// @Tags menu
// @Produce json
// @Success 200 {object} Envelope
// @Router /api/v1/public/categories [get]
func (cc *catalogController) ListCategories(ctx *gin.Context) {
	categories, err := cc.service.ListCategories(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	cc.render.Render(ctx, http.StatusOK, "menu/categories", categories)
}

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateCategory godoc
// @Summary Create a category
// @Tags menu
// @Accept json
// @Produce json
// @Param body body categoryRequest true "Category"
// @Success 201 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/manage/categories [post]
func (cc *catalogController) CreateCategory(ctx *gin.Context) {
	var req categoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "name is required")
		return
	}
	category, err := cc.service.CreateCategory(ctx.Request.Context(), req.Name)
	if err != nil {
		respondError(ctx, err)
		return
	}
	cc.render.Render(ctx, http.StatusCreated, "menu/category", category)
}

// DeleteCategory godoc
// @Summary Delete a category
// @Description Items of the category become uncategorized
// @Tags menu
// @Param id path int true "Category ID"
// @Success 204
// @Security BearerAuth
// @Router /api/v1/manage/categories/{id} [delete]
func (cc *catalogController) DeleteCategory(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := cc.service.DeleteCategory(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

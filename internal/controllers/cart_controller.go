package controllers

import (
	"errors"
	"net/http"

	"github.com/franciscosanchezn/campus-canteen-api/internal/cart"
	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CartController serves the session cart
type CartController struct {
	store   cart.Store
	catalog services.CatalogService
	render  Renderer
}

func NewCartController(store cart.Store, catalog services.CatalogService, render Renderer) *CartController {
	return &CartController{store: store, catalog: catalog, render: render}
}

// CartLine is a cart entry priced from the catalog
type CartLine struct {
	MenuItemID uint            `json:"menu_item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
	InStock    int             `json:"in_stock"`
}

// CartView is the priced cart
type CartView struct {
	Lines []CartLine      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// price looks every line up in the catalog. Lines whose item disappeared are
// dropped from the cart.
func (cc *CartController) price(c *gin.Context, current *cart.Cart) (*CartView, error) {
	view := &CartView{Lines: []CartLine{}, Total: decimal.Zero}
	dropped := false
	for _, line := range current.Lines() {
		item, err := cc.catalog.GetItem(c.Request.Context(), line.MenuItemID, false)
		if errors.Is(err, services.ErrNotFound) {
			current.Remove(line.MenuItemID)
			dropped = true
			continue
		}
		if err != nil {
			return nil, err
		}
		total := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		view.Lines = append(view.Lines, CartLine{
			MenuItemID: item.ID,
			Name:       item.Name,
			UnitPrice:  item.Price,
			Quantity:   line.Quantity,
			LineTotal:  total,
			InStock:    item.Stock,
		})
		view.Total = view.Total.Add(total)
	}
	if dropped {
		if err := cc.store.Save(c, current); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func (cc *CartController) respond(c *gin.Context, current *cart.Cart) {
	view, err := cc.price(c, current)
	if err != nil {
		respondError(c, err)
		return
	}
	cc.render.Render(c, http.StatusOK, "cart/detail", view)
}

// View godoc
// @Summary View cart
// @Tags cart
// @Produce json
// @Success 200 {object} Envelope
// @Router /api/v1/public/cart [get]
func (cc *CartController) View(c *gin.Context) {
	cc.respond(c, cc.store.Load(c))
}

type cartLineRequest struct {
	MenuItemID uint `json:"menu_item_id" binding:"required"`
	Quantity   int  `json:"quantity"`
}

// Add godoc
// @Summary Add to cart
// @Description Adds quantity (default 1) of an active menu item
// @Tags cart
// @Accept json
// @Produce json
// @Param body body cartLineRequest true "Line"
// @Success 200 {object} Envelope
// @Failure 404 {object} models.APIError
// @Router /api/v1/public/cart/items [post]
func (cc *CartController) Add(c *gin.Context) {
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "menu_item_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if _, err := cc.catalog.GetItem(c.Request.Context(), req.MenuItemID, false); err != nil {
		respondError(c, err)
		return
	}

	current := cc.store.Load(c)
	if err := current.Add(req.MenuItemID, req.Quantity); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := cc.store.Save(c, current); err != nil {
		respondError(c, err)
		return
	}
	cc.respond(c, current)
}

type cartQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// Set godoc
// @Summary Set line quantity
// @Description A quantity of zero removes the line
// @Tags cart
// @Accept json
// @Produce json
// @Param id path int true "Menu item ID"
// @Param body body cartQuantityRequest true "Quantity"
// @Success 200 {object} Envelope
// @Router /api/v1/public/cart/items/{id} [put]
func (cc *CartController) Set(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity is required")
		return
	}
	current := cc.store.Load(c)
	if err := current.Set(id, *req.Quantity); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := cc.store.Save(c, current); err != nil {
		respondError(c, err)
		return
	}
	cc.respond(c, current)
}

// Remove godoc
// @Summary Remove a line
// @Tags cart
// @Produce json
// @Param id path int true "Menu item ID"
// @Success 200 {object} Envelope
// @Router /api/v1/public/cart/items/{id} [delete]
func (cc *CartController) Remove(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	current := cc.store.Load(c)
	current.Remove(id)
	if err := cc.store.Save(c, current); err != nil {
		respondError(c, err)
		return
	}
	cc.respond(c, current)
}

// Clear godoc
// @Summary Empty the cart
// @Tags cart
// @Success 204
// @Router /api/v1/public/cart [delete]
func (cc *CartController) Clear(c *gin.Context) {
	current := cc.store.Load(c)
	current.Clear()
	if err := cc.store.Save(c, current); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

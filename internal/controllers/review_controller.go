package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	reviews services.ReviewService
	render  Renderer
}

func NewReviewController(reviews services.ReviewService, render Renderer) *ReviewController {
	return &ReviewController{reviews: reviews, render: render}
}

// ListForItem godoc
// @Summary List reviews of a menu item
// @Tags reviews
// @Produce json
// @Param id path int true "Menu item ID"
// @Success 200 {object} Envelope
// @Router /api/v1/public/menu/{id}/reviews [get]
func (rc *ReviewController) ListForItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := rc.reviews.ListForItem(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	rc.render.Render(c, http.StatusOK, "reviews/list", reviews)
}

// Create godoc
// @Summary Review a menu item
// @Description Only items from the caller's delivered or completed orders, once per item
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path int true "Menu item ID"
// @Param body body services.ReviewInput true "Review"
// @Success 201 {object} Envelope
// @Failure 403 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/menu/{id}/reviews [post]
func (rc *ReviewController) Create(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	review, err := rc.reviews.Create(c.Request.Context(), id, itemID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	rc.render.Render(c, http.StatusCreated, "reviews/detail", review)
}

// Update godoc
// @Summary Edit own review
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param body body services.ReviewInput true "Review"
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/protected/reviews/{id} [put]
func (rc *ReviewController) Update(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	review, err := rc.reviews.Update(c.Request.Context(), id, reviewID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	rc.render.Render(c, http.StatusOK, "reviews/detail", review)
}

// Delete godoc
// @Summary Delete own review
// @Tags reviews
// @Param id path int true "Review ID"
// @Success 204
// @Security BearerAuth
// @Router /api/v1/protected/reviews/{id} [delete]
func (rc *ReviewController) Delete(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := rc.reviews.Delete(c.Request.Context(), id, reviewID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// SetVisibility godoc
// @Summary Hide or show a review
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param body body visibilityRequest true "Visibility"
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/manage/reviews/{id}/visibility [put]
func (rc *ReviewController) SetVisibility(c *gin.Context) {
	reviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "visible is required")
		return
	}
	review, err := rc.reviews.SetVisibility(c.Request.Context(), reviewID, *req.Visible)
	if err != nil {
		respondError(c, err)
		return
	}
	rc.render.Render(c, http.StatusOK, "reviews/detail", review)
}

package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	dashboards services.DashboardService
	render     Renderer
}

func NewDashboardController(dashboards services.DashboardService, render Renderer) *DashboardController {
	return &DashboardController{dashboards: dashboards, render: render}
}

// Dashboard godoc
// @Summary Role dashboard
// @Description The view is chosen from the caller's capability role
// @Tags dashboard
// @Produce json
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/protected/dashboard [get]
func (dc *DashboardController) Dashboard(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	dash, err := dc.dashboards.Build(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	dc.render.Render(c, http.StatusOK, dash.View, dash.Data)
}

type AdminController struct {
	users   services.UserService
	reviews services.ReviewService
	render  Renderer
}

func NewAdminController(users services.UserService, reviews services.ReviewService, render Renderer) *AdminController {
	return &AdminController{users: users, reviews: reviews, render: render}
}

// ListUsers godoc
// @Summary List users with their profiles
// @Tags admin
// @Produce json
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/admin/users [get]
func (ac *AdminController) ListUsers(c *gin.Context) {
	users, err := ac.users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ac.render.Render(c, http.StatusOK, "admin/users", users)
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetRole godoc
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param body body roleRequest true "Role"
// @Success 200 {object} Envelope
// @Failure 422 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/admin/users/{id}/role [put]
func (ac *AdminController) SetRole(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "role is required")
		return
	}
	profile, err := ac.users.SetRole(c.Request.Context(), userID, access.Role(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	ac.render.Render(c, http.StatusOK, "admin/profile", profile)
}

// RebuildRatings godoc
// @Summary Recompute every cached rating
// @Tags admin
// @Produce json
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/admin/ratings/rebuild [post]
func (ac *AdminController) RebuildRatings(c *gin.Context) {
	processed, err := ac.reviews.RebuildRatings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ac.render.Render(c, http.StatusOK, "admin/ratings", gin.H{"items_processed": processed})
}

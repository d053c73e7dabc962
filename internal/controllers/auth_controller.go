package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/auth"
	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	userService services.UserService
	tokens      *auth.TokenIssuer
	render      Renderer
}

func NewAuthController(userService services.UserService, tokens *auth.TokenIssuer, render Renderer) *AuthController {
	return &AuthController{userService: userService, tokens: tokens, render: render}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	// Role is one of student, faculty, staff, guest, vendor
	Role string `json:"role"`
}

// Register godoc
// @Summary Sign up
// @Description Creates a user and its profile. The first account becomes admin.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "Signup form"
// @Success 201 {object} Envelope
// @Failure 400 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Router /api/v1/auth/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := ac.userService.Register(c.Request.Context(), services.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ac.render.Render(c, http.StatusCreated, "auth/registered", user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary Log in
// @Description Exchanges credentials for a Bearer token carrying the uid and role claims
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} Envelope
// @Failure 401 {object} models.APIError
// @Router /api/v1/auth/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := ac.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := ac.tokens.Issue(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.render.Render(c, http.StatusOK, "auth/token", gin.H{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
		"expires_at":   token.ExpiresAt,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  token.Role,
		},
	})
}

// Me godoc
// @Summary Current user
// @Description The caller's account with both the displayed and the capability role
// @Tags auth
// @Produce json
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/protected/me [get]
func (ac *AuthController) Me(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	user, err := ac.userService.GetUserByID(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.render.Render(c, http.StatusOK, "auth/me", gin.H{
		"user":            user,
		"displayed_role":  id.Displayed,
		"capability_role": id.Capability,
		"dashboard":       access.DashboardView(id.Capability),
	})
}

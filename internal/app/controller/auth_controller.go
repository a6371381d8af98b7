package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/internal/app/service"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/internal/middleware"
)

type AuthController struct {
	authService service.AuthService
	cartConfig  config.CartConfig
}

func NewAuthController(authService service.AuthService, cartConfig config.CartConfig) *AuthController {
	return &AuthController{
		authService: authService,
		cartConfig:  cartConfig,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a customer account
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	result, err := ctrl.authService.Register(req.Email, req.Password, req.Name)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "User registered successfully",
		"user":         result.User,
		"access_token": result.Token,
		"expires_at":   result.ExpiresAt,
	})
}

// Login issues a token and folds any guest cart into the user's cart
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	guestToken := middleware.GuestToken(c, ctrl.cartConfig.GuestCookieName)

	result, err := ctrl.authService.Login(req.Email, req.Password, guestToken)
	if err != nil {
		fail(c, err)
		return
	}

	if result.Merge != nil {
		middleware.ClearGuestCookie(c, ctrl.cartConfig)
		log.Info("Guest cart merged at login", map[string]interface{}{
			"user_id": result.User.ID,
			"merged":  result.Merge.Merged,
			"clamped": result.Merge.Clamped,
			"skipped": len(result.Merge.Skipped),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"user":         result.User,
		"access_token": result.Token,
		"expires_at":   result.ExpiresAt,
		"cart_merge":   result.Merge,
	})
}

// Logout revokes the presented token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		fail(c, apperrors.Unauthorized(apperrors.AuthUnauthorized, "Login required"))
		return
	}

	if err := ctrl.authService.Logout(c.Request.Context(), claims); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out",
	})
}

// GetMe returns the authenticated user
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		fail(c, apperrors.Unauthorized(apperrors.AuthUnauthorized, "Login required"))
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}

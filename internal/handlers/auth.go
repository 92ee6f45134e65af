// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/petespantry/storefront/internal/i18n"
	"github.com/petespantry/storefront/internal/services"
	"github.com/petespantry/storefront/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// POST /auth/simple-login
func (h *AuthHandler) SimpleLogin(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SimpleLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.SimpleLogin(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyAuthLoginSuccess),
		"user":       result.User,
		"token":      result.Token,
		"token_type": "Bearer",
	})
}

// GET /auth/user
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"user": user,
	})
}

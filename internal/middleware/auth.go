// internal/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/i18n"
	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/utils"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Identity is the caller resolved from a request.
type Identity struct {
	UserID string
	Email  string
}

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
}

// UserProvisioner returns the local user for an identity, creating it on
// first sight.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, userID, email string) (*models.User, error)
}

// JWTAuthenticator accepts HS256 bearer tokens issued by the identity
// provider or by the demo login.
type JWTAuthenticator struct {
	jwt *utils.JWTManager
}

func NewJWTAuthenticator(jwt *utils.JWTManager) *JWTAuthenticator {
	return &JWTAuthenticator{jwt: jwt}
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, ErrMissingToken
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrInvalidToken
	}

	claims, err := a.jwt.Validate(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

// AuthRequired rejects anonymous requests and stores the caller's id and
// role in the context. The role always comes from the local user row.
func AuthRequired(auth Authenticator, users UserProvisioner) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		identity, err := auth.Authenticate(c.Request)
		if err != nil {
			key := i18n.KeyAuthInvalidToken
			if errors.Is(err, ErrMissingToken) {
				key = i18n.KeyAuthRequired
			}
			utils.UnauthorizedResponse(c, i18n.T(lang, key))
			c.Abort()
			return
		}

		user, err := users.EnsureUser(c.Request.Context(), identity.UserID, identity.Email)
		if err != nil {
			logrus.WithError(err).WithField("user_id", identity.UserID).Error("Failed to load authenticated user")
			utils.InternalErrorResponse(c, "")
			c.Abort()
			return
		}

		// Set user info in context
		c.Set("user_id", user.ID)
		c.Set("user_email", user.Email)
		c.Set("user_role", string(user.Role))
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := utils.GetUserRoleFromContext(c)
		if !exists || role != string(models.UserRoleAdmin) {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

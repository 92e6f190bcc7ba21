package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sweetshop/inventory-api/internal/domain"
	"github.com/sweetshop/inventory-api/pkg/errors"
	"github.com/sweetshop/inventory-api/pkg/middleware"
)

// Context keys for the authenticated user
const (
	ContextKeyUserID   = "userId"
	ContextKeyUserRole = "userRole"
	ContextKeyClaims   = "authClaims"
)

// TokenVerifier validates an access token and returns its claims
type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

// RequireAuth middleware validates the Bearer token and stores the
// authenticated identity in the request context
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("authorization header is required"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("authorization header must be a Bearer token"))
			return
		}

		claims, err := verifier.Verify(parts[1])
		if err != nil {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("invalid or expired token"))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUserRole, claims.Role)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// RequireRole middleware restricts access to users with the given role.
// It must run after RequireAuth.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := GetUserRole(c)
		if userRole != role {
			middleware.AbortWithAppError(c, errors.ErrForbidden("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetUserID extracts the authenticated user ID from context
func GetUserID(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyUserID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// GetUserRole extracts the authenticated user role from context
func GetUserRole(c *gin.Context) domain.Role {
	if val, exists := c.Get(ContextKeyUserRole); exists {
		if role, ok := val.(domain.Role); ok {
			return role
		}
	}
	return ""
}

// GetClaims extracts the full token claims from context
func GetClaims(c *gin.Context) *Claims {
	if val, exists := c.Get(ContextKeyClaims); exists {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}

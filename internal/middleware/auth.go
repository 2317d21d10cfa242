package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuistot-app/backend/internal/types"
)

// TokenValidator validates JWT tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.TokenClaims, error)
}

// Context keys set by the auth middlewares.
const (
	ContextUserID     = "user_id"
	ContextSessionKey = "session_key"
)

// AuthMiddleware requires a valid bearer token.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, validator)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization header"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextSessionKey, claims.UserID)
		c.Next()
	}
}

// OptionalAuth resolves the caller's identity without requiring one.
// Authenticated requests are keyed by user id; guests by the X-Session-ID
// header, issued here on first contact and echoed back so the device can
// keep it.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := bearerClaims(c, validator); ok {
			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextSessionKey, claims.UserID)
			c.Next()
			return
		}

		sessionID := c.GetHeader("X-Session-ID")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		c.Header("X-Session-ID", sessionID)
		c.Set(ContextSessionKey, sessionID)
		c.Next()
	}
}

func bearerClaims(c *gin.Context, validator TokenValidator) (*types.TokenClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := validator.ValidateToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

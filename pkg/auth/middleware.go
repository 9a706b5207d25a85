package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	tokenHeader = "Authorization"
	tokenPrefix = "Bearer "

	claimsKey = "auth_claims"
	userIDKey = "auth_user_id"
)

// RequireAuth is a gin middleware that validates the bearer token and injects
// the verified caller identity into the request context. Handlers must take
// the actor id from here, never from the request body.
func RequireAuth(signer *Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(tokenHeader)
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, tokenPrefix) {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		token := strings.TrimPrefix(authHeader, tokenPrefix)
		claims, err := signer.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			abortUnauthorized(c, "invalid subject in token")
			return
		}

		c.Set(claimsKey, claims)
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"kind": "authorization", "message": message},
	})
}

// UserID retrieves the verified caller id from the request context.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// UserClaims retrieves the full claims from the request context.
func UserClaims(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

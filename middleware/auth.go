package middleware

import (
	"net/http"
	"strings"

	"github.com/emberveil-online/guildserver/config"
	"github.com/gin-gonic/gin"
)

const CharIDKey = "char_id"

// Auth validates the Bearer JWT and stores the character ID on the request
// context. Token issuance and session management live in the account
// service; a token that verifies against the shared secret is trusted here.
func Auth(sec config.SecurityConfig) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx.Set(CharIDKey, claims.CharID)
		ctx.Next()
	}
}

// GetCharID retrieves the authenticated character ID from the Gin context.
func GetCharID(c *gin.Context) int64 {
	if v, exists := c.Get(CharIDKey); exists {
		return v.(int64)
	}
	return 0
}

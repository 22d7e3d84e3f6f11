package middleware

import (
	"net/http"
	"strings"

	"harold/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MemberIDKey is the gin context key holding the authenticated member id.
const MemberIDKey = "memberID"

// OptionalMemberAuth lets anonymous guests through. A bearer token, when sent,
// must be valid; its subject becomes the member id.
func OptionalMemberAuth(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header"})
			return
		}
		memberID, err := utils.ExtractIDFromToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			logger.Debug("Rejected member token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(MemberIDKey, memberID)
		c.Next()
	}
}

// MemberID returns the id set by OptionalMemberAuth.
func MemberID(c *gin.Context) (string, bool) {
	id := c.GetString(MemberIDKey)
	return id, id != ""
}

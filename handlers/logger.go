package handlers

import (
	"harold/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestLogger scopes base to the request path and, when known, the member.
func requestLogger(c *gin.Context, base *zap.Logger) *zap.Logger {
	logger := base.With(zap.String("path", c.FullPath()))
	if id := c.GetString(middleware.MemberIDKey); id != "" {
		logger = logger.With(zap.String("memberId", id))
	}
	return logger
}

package handlers

import (
	"net/http"
	"slices"

	"harold/utils"

	"github.com/gin-gonic/gin"
)

// Health reports the last dependency probe. Unhealthy dependencies yield 503.
func Health(c *gin.Context) {
	status := utils.GetHealthStatus()
	healthy := status.Storage && !slices.Contains(status.Redis, false)
	code := http.StatusOK
	state := "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{
		"status":  state,
		"message": "Hi, I'm Harold",
		"checks":  status,
	})
}

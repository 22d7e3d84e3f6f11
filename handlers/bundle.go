// File: harold/handlers/handlerBundle.go
package handlers

import (
	"harold/middleware"

	"go.uber.org/zap"
)

// HandlerBundle groups the endpoint handlers and shared middleware state.
type HandlerBundle struct {
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter

	Chat         *ChatHandler
	Reservations *ReservationHandler
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	reservationRepo "harold/database/repository/reservation"
	"harold/models"
	"harold/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReservationGetter interface {
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
}

type ReservationHandler struct {
	reservations ReservationGetter
	logger       *zap.Logger
}

func NewReservationHandler(reservations ReservationGetter, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, logger: logger}
}

// GetReservation serves the confirmation link.
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	id := c.Param("id")
	res, err := h.reservations.GetReservation(c.Request.Context(), id)
	if errors.Is(err, reservationRepo.ErrReservationNotFound) {
		utils.JSONError(c, http.StatusNotFound, "Reservation not found", "it may have expired before payment")
		return
	}
	if err != nil {
		requestLogger(c, h.logger).Error("Failed to load reservation", zap.String("reservationId", id), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load reservation", "")
		return
	}
	c.JSON(http.StatusOK, res)
}

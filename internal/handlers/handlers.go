package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"remindly/internal/database"
	"remindly/internal/reminder"
	"remindly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SweepRunner runs one sweep cycle on demand
type SweepRunner interface {
	RunSweepCycle(ctx context.Context, now time.Time) (services.SweepReport, error)
}

// Handler serves the booking and admin API
type Handler struct {
	booking *services.BookingService
	sweeper SweepRunner
	log     zerolog.Logger
}

func New(booking *services.BookingService, sweeper SweepRunner, log zerolog.Logger) *Handler {
	return &Handler{booking: booking, sweeper: sweeper, log: log}
}

// handleError provides a consistent way to handle and log errors
func (h *Handler) handleError(c *gin.Context, status int, message string, err error) {
	ev := h.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = h.log.Error()
	}
	ev.Err(err).Str("path", c.FullPath()).Int("status", status).Msg(message)
	c.JSON(status, gin.H{"error": message})
}

// handleServiceError maps service and store errors onto HTTP statuses
func (h *Handler) handleServiceError(c *gin.Context, fallback string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, reminder.ErrInvalidTemplate):
		h.handleError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, database.ErrNotFound):
		h.handleError(c, http.StatusNotFound, "Not found", err)
	case errors.Is(err, services.ErrSweepInProgress):
		h.handleError(c, http.StatusConflict, "Sweep already in progress", err)
	default:
		h.handleError(c, http.StatusInternalServerError, fallback, err)
	}
}

// HealthHandler is a simple health check endpoint
func HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

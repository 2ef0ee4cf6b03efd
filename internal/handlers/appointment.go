package handlers

import (
	"fmt"
	"net/http"

	"remindly/internal/models"
	"remindly/internal/reminder"

	"github.com/gin-gonic/gin"
)

// CreateAppointment books an appointment and schedules its reminders
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req models.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, fmt.Sprintf("Invalid input: %s", err.Error()), err)
		return
	}

	appt, offsets, err := h.booking.CreateAppointment(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, "Failed to create appointment", err)
		return
	}
	if offsets == nil {
		offsets = []models.ScheduledOffset{}
	}
	c.JSON(http.StatusCreated, gin.H{"appointment": appt, "offsets": offsets})
}

func (h *Handler) GetAppointment(c *gin.Context) {
	appt, err := h.booking.GetAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, "Failed to load appointment", err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// GetOffsets lists the scheduled offsets of an appointment with their delivery state
func (h *Handler) GetOffsets(c *gin.Context) {
	offsets, err := h.booking.Offsets(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, "Failed to load offsets", err)
		return
	}
	if offsets == nil {
		offsets = []models.ScheduledOffset{}
	}
	c.JSON(http.StatusOK, offsets)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, fmt.Sprintf("Invalid input: %s", err.Error()), err)
		return
	}
	status, _ := reminder.ParseStatus(req.Status)

	appt, err := h.booking.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		h.handleServiceError(c, "Failed to update status", err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// Reschedule moves an appointment. Pending reminders follow on the next sweep.
func (h *Handler) Reschedule(c *gin.Context) {
	var req models.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, fmt.Sprintf("Invalid input: %s", err.Error()), err)
		return
	}

	appt, err := h.booking.Reschedule(c.Request.Context(), c.Param("id"), req.SelectedDate)
	if err != nil {
		h.handleServiceError(c, "Failed to reschedule appointment", err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

package handlers

import (
	"fmt"
	"net/http"

	"remindly/internal/models"
	"remindly/internal/reminder"

	"github.com/gin-gonic/gin"
)

// CreateService handles the creation of a new bookable service
func (h *Handler) CreateService(c *gin.Context) {
	var req models.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, fmt.Sprintf("Invalid input: %s", err.Error()), err)
		return
	}

	svc, err := h.booking.CreateService(c.Request.Context(), req.Name)
	if err != nil {
		h.handleServiceError(c, "Failed to create service", err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// CreateReminder attaches a reminder template to a service. Templates are
// validated here so the sweep never sees one it cannot fire.
func (h *Handler) CreateReminder(c *gin.Context) {
	var req models.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, fmt.Sprintf("Invalid input: %s", err.Error()), err)
		return
	}

	serviceID := c.Param("id")
	typ, _ := reminder.ParseType(req.Type)

	if req.Defaults {
		tmpl, err := h.booking.CreateDefaultReminder(c.Request.Context(), serviceID, typ)
		if err != nil {
			h.handleServiceError(c, "Failed to create reminder", err)
			return
		}
		c.JSON(http.StatusCreated, tmpl)
		return
	}

	spec := reminder.TemplateSpec{Type: typ}
	for _, o := range req.Offsets {
		dir, _ := reminder.ParseDirection(o.Direction)
		spec.Offsets = append(spec.Offsets, reminder.OffsetSpec{Minutes: o.Minutes, Direction: dir})
	}

	tmpl, err := h.booking.CreateReminder(c.Request.Context(), serviceID, spec, req.Title, req.Description)
	if err != nil {
		h.handleServiceError(c, "Failed to create reminder", err)
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

// ListReminders returns every reminder template of a service with its offsets
func (h *Handler) ListReminders(c *gin.Context) {
	reminders, err := h.booking.ListReminders(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, "Failed to load reminders", err)
		return
	}
	if reminders == nil {
		reminders = []models.ReminderTemplate{}
	}
	c.JSON(http.StatusOK, reminders)
}

package handlers

import (
	"remindly/internal/auth"

	"github.com/gin-gonic/gin"
)

// Register mounts every route. Admin routes are only mounted when an issuer
// is configured.
func (h *Handler) Register(router gin.IRouter, issuer *auth.Issuer) {
	router.GET("/health", HealthHandler)

	router.POST("/services", h.CreateService)
	router.POST("/services/:id/reminders", h.CreateReminder)
	router.GET("/services/:id/reminders", h.ListReminders)

	router.POST("/appointments", h.CreateAppointment)
	router.GET("/appointments/:id", h.GetAppointment)
	router.GET("/appointments/:id/offsets", h.GetOffsets)
	router.PATCH("/appointments/:id/status", h.UpdateStatus)
	router.PATCH("/appointments/:id/schedule", h.Reschedule)

	if issuer == nil {
		h.log.Warn().Msg("ADMIN_JWT_SECRET not set; admin routes disabled")
		return
	}
	admin := router.Group("/admin")
	admin.Use(auth.AdminMiddleware(issuer))
	{
		admin.POST("/sweep", h.RunSweep)
	}
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RunSweep triggers one sweep cycle. An optional RFC 3339 "now" query
// parameter evaluates the window at that instant.
func (h *Handler) RunSweep(c *gin.Context) {
	now := time.Now()
	if raw := c.Query("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.handleError(c, http.StatusBadRequest, "now must be an RFC 3339 timestamp", err)
			return
		}
		now = parsed
	}

	report, err := h.sweeper.RunSweepCycle(c.Request.Context(), now)
	if err != nil {
		h.handleServiceError(c, "Sweep failed", err)
		return
	}

	failures := make([]gin.H, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, gin.H{
			"offset_id":      f.OffsetID,
			"appointment_id": f.AppointmentID,
			"error":          f.Err.Error(),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"now":         report.Now,
		"duration_ms": report.Duration.Milliseconds(),
		"pending":     report.Pending,
		"corrected":   report.Corrected,
		"in_window":   report.InWindow,
		"ineligible":  report.Ineligible,
		"due":         report.Due,
		"sent":        report.Sent,
		"skipped":     report.Skipped,
		"conflicts":   report.Conflicts,
		"halted":      report.Halted,
		"failures":    failures,
	})
}

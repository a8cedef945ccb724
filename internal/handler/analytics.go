package handler

import (
	"net/http"

	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/aman-churiwal/api-manager/internal/service"
	"github.com/gin-gonic/gin"
)

// Serves the performance monitoring views
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	logs      *service.CallLogService
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, logs *service.CallLogService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logs: logs}
}

// Handles GET /admin/performance
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	performance, err := h.analytics.Performance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, performance)
}

// Handles GET /admin/performance/logs
func (h *AnalyticsHandler) GetLogs(c *gin.Context) {
	logs, err := h.logs.Monitoring(c.Request.Context(), repository.CallLogFilter{})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// Handles GET /admin/performance/filter
func (h *AnalyticsHandler) FilterLogs(c *gin.Context) {
	filter, ok := callLogFilter(c)
	if !ok {
		return
	}
	logs, err := h.logs.Monitoring(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/aman-churiwal/api-manager/internal/circuitbreaker"
	"github.com/aman-churiwal/api-manager/internal/dispatcher"
	"github.com/gin-gonic/gin"
)

// Exposes the dispatcher's per-endpoint circuit breakers
type SystemHandler struct {
	dispatcher *dispatcher.Dispatcher
}

func NewSystemHandler(dispatcher *dispatcher.Dispatcher) *SystemHandler {
	return &SystemHandler{dispatcher: dispatcher}
}

// Handles GET /admin/system/circuit-breakers
func (h *SystemHandler) CircuitBreakerStatus(c *gin.Context) {
	breakers := h.dispatcher.Breakers()

	out := make(map[string]circuitbreaker.Snapshot, len(breakers))
	open := 0
	for endpointID, snapshot := range breakers {
		out[strconv.FormatUint(uint64(endpointID), 10)] = snapshot
		if snapshot.State != circuitbreaker.StateClosed {
			open++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"breakers": out,
		"total":    len(out),
		"tripped":  open,
	})
}

// Handles POST /admin/system/circuit-breakers/:endpoint/reset
func (h *SystemHandler) ResetCircuitBreaker(c *gin.Context) {
	endpointID, ok := paramID(c, "endpoint")
	if !ok {
		return
	}

	if !h.dispatcher.ResetBreaker(endpointID) {
		c.JSON(http.StatusNotFound, gin.H{"message": "No circuit breaker for this endpoint"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Circuit breaker reset successfully",
		"endpoint": endpointID,
	})
}

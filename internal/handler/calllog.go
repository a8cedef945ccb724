package handler

import (
	"net/http"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/aman-churiwal/api-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type CallLogHandler struct {
	service *service.CallLogService
}

func NewCallLogHandler(service *service.CallLogService) *CallLogHandler {
	return &CallLogHandler{service: service}
}

// Handles POST /admin/call-logs: calls the endpoint and returns the new log
func (h *CallLogHandler) Dispatch(c *gin.Context) {
	var req struct {
		ID uint `json:"id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	callLog, err := h.service.Dispatch(c.Request.Context(), req.ID, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, callLogResource(callLog))
}

func (h *CallLogHandler) List(c *gin.Context) {
	logs, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, callLogCollection(logs))
}

func (h *CallLogHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	callLog, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, callLogResource(callLog))
}

// Call logs are immutable
func (h *CallLogHandler) Update(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Action not supported!"})
}

func (h *CallLogHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Call log deleted successfully"})
}

// Handles GET /admin/call-logs/search?searchBy=&searchQuery=
func (h *CallLogHandler) Search(c *gin.Context) {
	var req struct {
		SearchBy    string `form:"searchBy" binding:"required,oneof=endpoint method status"`
		SearchQuery string `form:"searchQuery" binding:"max=255"`
	}
	if !bindQuery(c, &req) {
		return
	}

	logs, err := h.service.Search(c.Request.Context(), req.SearchBy, req.SearchQuery)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, callLogCollection(logs))
}

// Handles GET /admin/call-logs/filter
func (h *CallLogHandler) Filter(c *gin.Context) {
	filter, ok := callLogFilter(c)
	if !ok {
		return
	}
	logs, err := h.service.Filter(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, callLogCollection(logs))
}

// Handles GET /admin/call-logs/analytics
func (h *CallLogHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Reads the call-log filter parameters shared by the log and monitoring views
func callLogFilter(c *gin.Context) (repository.CallLogFilter, bool) {
	var req struct {
		FilterMethod       string   `form:"filterMethod" binding:"omitempty,oneof=get post put patch head delete"`
		FilterStatus       string   `form:"filterStatus" binding:"omitempty,oneof=success failed"`
		FilterEndpoint     string   `form:"filterEndpoint" binding:"max=255"`
		FilterResponseTime *float64 `form:"filterResponseTime" binding:"omitempty,min=0"`
	}
	if !bindQuery(c, &req) {
		return repository.CallLogFilter{}, false
	}
	created, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": []string{err.Error()}})
		return repository.CallLogFilter{}, false
	}

	return repository.CallLogFilter{
		Method:          models.Method(req.FilterMethod),
		Status:          models.CallStatus(req.FilterStatus),
		Endpoint:        req.FilterEndpoint,
		MinResponseTime: req.FilterResponseTime,
		Created:         created,
	}, true
}

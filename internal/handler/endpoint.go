package handler

import (
	"encoding/json"
	"net/http"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/aman-churiwal/api-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type EndpointHandler struct {
	service *service.EndpointService
}

func NewEndpointHandler(service *service.EndpointService) *EndpointHandler {
	return &EndpointHandler{service: service}
}

// Handles POST /admin/endpoints
func (h *EndpointHandler) Create(c *gin.Context) {
	var req struct {
		APIID       uint              `json:"api_id" binding:"required"`
		Endpoint    string            `json:"endpoint" binding:"required,max=255"`
		Method      string            `json:"method" binding:"required,oneof=get post put patch head delete"`
		Description string            `json:"description" binding:"max=255"`
		Status      string            `json:"status" binding:"omitempty,oneof=enabled disabled"`
		Headers     map[string]string `json:"headers"`
		Payload     json.RawMessage   `json:"payload"`
		Parameters  map[string]string `json:"parameters"`
	}
	if !bindJSON(c, &req) {
		return
	}

	endpoint, err := h.service.Create(c.Request.Context(), service.CreateEndpoint{
		APIID:       req.APIID,
		Endpoint:    req.Endpoint,
		Method:      req.Method,
		Description: req.Description,
		Status:      req.Status,
		Headers:     req.Headers,
		Payload:     req.Payload,
		Parameters:  req.Parameters,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newEndpointResource(endpoint))
}

func (h *EndpointHandler) List(c *gin.Context) {
	endpoints, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, endpointCollection(endpoints))
}

func (h *EndpointHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	endpoint, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEndpointResource(endpoint))
}

// Handles PUT /admin/endpoints/:id; absent fields are kept
func (h *EndpointHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Endpoint    *string           `json:"endpoint" binding:"omitempty,max=255"`
		Method      *string           `json:"method" binding:"omitempty,oneof=get post put patch head delete"`
		Description *string           `json:"description" binding:"omitempty,max=255"`
		Status      *string           `json:"status" binding:"omitempty,oneof=enabled disabled"`
		Headers     map[string]string `json:"headers"`
		Payload     json.RawMessage   `json:"payload"`
		Parameters  map[string]string `json:"parameters"`
	}
	if !bindJSON(c, &req) {
		return
	}

	endpoint, err := h.service.Update(c.Request.Context(), id, service.UpdateEndpoint{
		Endpoint:    req.Endpoint,
		Method:      req.Method,
		Description: req.Description,
		Status:      req.Status,
		Headers:     req.Headers,
		Payload:     req.Payload,
		Parameters:  req.Parameters,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEndpointResource(endpoint))
}

// Handles PATCH /admin/endpoints/:id/status
func (h *EndpointHandler) SetStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required,oneof=enabled disabled"`
	}
	if !bindJSON(c, &req) {
		return
	}

	endpoint, err := h.service.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEndpointResource(endpoint))
}

func (h *EndpointHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Endpoint deleted successfully"})
}

// Handles GET /admin/endpoints/search?searchBy=&searchQuery=
func (h *EndpointHandler) Search(c *gin.Context) {
	var req struct {
		SearchBy    string `form:"searchBy" binding:"required,oneof=endpoint method description"`
		SearchQuery string `form:"searchQuery" binding:"max=255"`
	}
	if !bindQuery(c, &req) {
		return
	}

	endpoints, err := h.service.Search(c.Request.Context(), req.SearchBy, req.SearchQuery)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, endpointCollection(endpoints))
}

// Handles GET /admin/endpoints/filter
func (h *EndpointHandler) Filter(c *gin.Context) {
	var req struct {
		FilterMethod string `form:"filterMethod" binding:"omitempty,oneof=get post put patch head delete"`
		FilterStatus string `form:"filterStatus" binding:"omitempty,oneof=enabled disabled"`
	}
	if !bindQuery(c, &req) {
		return
	}
	created, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": []string{err.Error()}})
		return
	}

	endpoints, err := h.service.Filter(c.Request.Context(), repository.EndpointFilter{
		Method:  models.Method(req.FilterMethod),
		Status:  req.FilterStatus,
		Created: created,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, endpointCollection(endpoints))
}

// Handles GET /admin/endpoints/analytics
func (h *EndpointHandler) Analytics(c *gin.Context) {
	analytics, err := h.service.Analytics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// Handles GET /admin/endpoints/history
func (h *EndpointHandler) History(c *gin.Context) {
	history, err := h.service.History(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Handles GET /admin/endpoints/:id/performance
func (h *EndpointHandler) Performance(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	perf, err := h.service.Performance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, perf)
}

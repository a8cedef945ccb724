package handler

import (
	"net/http"
	"time"

	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/aman-churiwal/api-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type APIKeyHandler struct {
	service *service.APIKeyService
}

func NewAPIKeyHandler(service *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{service: service}
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	var req struct {
		Name           string   `json:"name" binding:"required,max=255"`
		Permissions    []string `json:"permissions" binding:"required,min=1,dive,oneof=read write delete"`
		IPWhitelisting []string `json:"ip_whitelisting" binding:"omitempty,dive,ip"`
		ExpiryDate     string   `json:"expiry_date"`
		Status         string   `json:"status" binding:"omitempty,oneof=enabled disabled"`
	}
	if !bindJSON(c, &req) {
		return
	}
	expiry, ok := optionalDate(c, req.ExpiryDate)
	if !ok {
		return
	}

	apiKey, key, err := h.service.Create(c.Request.Context(), service.CreateAPIKey{
		Name:           req.Name,
		Permissions:    req.Permissions,
		IPWhitelisting: req.IPWhitelisting,
		ExpiryDate:     expiry,
		Status:         req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"api_key": newAPIKeyResource(apiKey, key),
		"message": "Save this key - it won't be shown again",
	})
}

func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apiKeyCollection(keys))
}

func (h *APIKeyHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	apiKey, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAPIKeyResource(apiKey, ""))
}

func (h *APIKeyHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name           *string  `json:"name" binding:"omitempty,max=255"`
		Permissions    []string `json:"permissions" binding:"omitempty,min=1,dive,oneof=read write delete"`
		IPWhitelisting []string `json:"ip_whitelisting" binding:"omitempty,dive,ip"`
		ExpiryDate     string   `json:"expiry_date"`
		Status         *string  `json:"status" binding:"omitempty,oneof=enabled disabled"`
	}
	if !bindJSON(c, &req) {
		return
	}
	expiry, ok := optionalDate(c, req.ExpiryDate)
	if !ok {
		return
	}

	apiKey, err := h.service.Update(c.Request.Context(), id, service.UpdateAPIKey{
		Name:           req.Name,
		Permissions:    req.Permissions,
		IPWhitelisting: req.IPWhitelisting,
		ExpiryDate:     expiry,
		Status:         req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAPIKeyResource(apiKey, ""))
}

func (h *APIKeyHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "API key deleted successfully"})
}

// Handles POST /admin/keys/:id/regenerate
func (h *APIKeyHandler) Regenerate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	apiKey, key, err := h.service.Regenerate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"api_key": newAPIKeyResource(apiKey, key),
		"message": "Save this key - it won't be shown again",
	})
}

// Handles POST /admin/keys/:id/revoke
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	apiKey, err := h.service.Revoke(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAPIKeyResource(apiKey, ""))
}

func (h *APIKeyHandler) Search(c *gin.Context) {
	var req struct {
		SearchBy    string `form:"searchBy" binding:"required,oneof=id name status"`
		SearchQuery string `form:"searchQuery" binding:"required,max=255"`
	}
	if !bindQuery(c, &req) {
		return
	}

	keys, err := h.service.Search(c.Request.Context(), req.SearchBy, req.SearchQuery)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apiKeyCollection(keys))
}

func (h *APIKeyHandler) Filter(c *gin.Context) {
	var req struct {
		FilterStatus      string `form:"filterStatus" binding:"omitempty,oneof=enabled disabled"`
		FilterPermissions string `form:"filterPermissions" binding:"omitempty,oneof=read write delete"`
		FilterExpiryDate  string `form:"filterExpiryDate"`
	}
	if !bindQuery(c, &req) {
		return
	}
	created, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": []string{err.Error()}})
		return
	}
	expiry, ok := optionalDate(c, req.FilterExpiryDate)
	if !ok {
		return
	}

	keys, err := h.service.Filter(c.Request.Context(), repository.APIKeyFilter{
		Status:     req.FilterStatus,
		Permission: req.FilterPermissions,
		Created:    created,
		ExpiryDate: expiry,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apiKeyCollection(keys))
}

func (h *APIKeyHandler) Analytics(c *gin.Context) {
	analytics, err := h.service.Analytics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

func optionalDate(c *gin.Context, value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, _, err := parseDate(value)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": []string{"The date " + value + " is not a valid date."}})
		return nil, false
	}
	return &t, true
}

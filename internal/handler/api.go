package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/aman-churiwal/api-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type APIHandler struct {
	service *service.APIService
}

func NewAPIHandler(service *service.APIService) *APIHandler {
	return &APIHandler{service: service}
}

type apiRequest struct {
	Name     string          `json:"api_name" binding:"required,max=255"`
	Settings json.RawMessage `json:"settings"`
}

// Handles POST /admin/apis
func (h *APIHandler) Create(c *gin.Context) {
	var req apiRequest
	if !bindJSON(c, &req) {
		return
	}

	api, err := h.service.Create(c.Request.Context(), req.Name, req.Settings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, api)
}

func (h *APIHandler) List(c *gin.Context) {
	apis, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apis)
}

func (h *APIHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	api, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, api)
}

// Handles PUT /admin/apis/:id
func (h *APIHandler) Replace(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req apiRequest
	if !bindJSON(c, &req) {
		return
	}

	api, err := h.service.Replace(c.Request.Context(), id, req.Name, req.Settings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, api)
}

func (h *APIHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "API deleted successfully"})
}

// Handles GET /admin/apis/:id/settings
func (h *APIHandler) Settings(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.Settings(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Handles GET /admin/apis/:id/settings/:category
func (h *APIHandler) Category(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	section, err := h.service.Category(c.Request.Context(), id, c.Param("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{c.Param("category"): section})
}

// Handles PUT /admin/apis/:id/settings/:category; the body is the category record
func (h *APIHandler) ReplaceCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}

	section, err := h.service.ReplaceCategory(c.Request.Context(), id, c.Param("category"), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{c.Param("category"): section})
}

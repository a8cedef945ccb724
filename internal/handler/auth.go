package handler

import (
	"net/http"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/aman-churiwal/api-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Name     string `json:"name" binding:"required,max=255"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.Register(c.Request.Context(), req.Email, req.Password, req.Name); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// Handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AuthHandler) GetUser(c *gin.Context) {
	user, err := h.service.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Handles PUT /admin/users/:id; absent fields are kept
func (h *AuthHandler) UpdateUser(c *gin.Context) {
	var req struct {
		Name     *string `json:"name" binding:"omitempty,max=255"`
		Email    *string `json:"email" binding:"omitempty,email"`
		Password *string `json:"password" binding:"omitempty,min=8"`
		Role     *string `json:"role" binding:"omitempty,oneof=admin developer viewer"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), c.Param("id"), service.UpdateUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User profile updated successfully", "user": user})
}

// Handles PATCH /admin/users/:id/status
func (h *AuthHandler) SetUserStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required,oneof=active inactive"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.SetUserStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	action := "deactivated"
	if user.Status == models.UserActive {
		action = "activated"
	}
	c.JSON(http.StatusOK, gin.H{"message": "User " + action + " successfully.", "status": user.Status})
}

// Handles GET /admin/users/filter
func (h *AuthHandler) FilterUsers(c *gin.Context) {
	var req struct {
		FilterName   string `form:"filterName" binding:"max=255"`
		FilterStatus string `form:"filterStatus" binding:"omitempty,oneof=active inactive"`
		FilterEmail  string `form:"filterEmail" binding:"omitempty,email"`
		FilterType   string `form:"filterType" binding:"omitempty,oneof=admin developer viewer"`
	}
	if !bindQuery(c, &req) {
		return
	}

	users, err := h.service.FilterUsers(c.Request.Context(), repository.UserFilter{
		Name:   req.FilterName,
		Email:  req.FilterEmail,
		Status: req.FilterStatus,
		Role:   req.FilterType,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AuthHandler) DeleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

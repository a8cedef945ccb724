package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/aman-churiwal/api-manager/internal/service"
	"github.com/gin-gonic/gin"
)

const APIKeyHeader = "X-API-Key"

// Authenticates X-API-Key requests. Requests without the header pass through
// untouched so another authenticator can handle them.
func APIKeyValidator(apiKeyService *service.APIKeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKeyHeader := strings.TrimSpace(c.GetHeader(APIKeyHeader))
		if apiKeyHeader == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		apiKey, err := apiKeyService.Validate(ctx, apiKeyHeader)
		if err != nil || apiKey == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			return
		}

		if err := apiKeyService.Authorize(apiKey, c.Request.Method, c.ClientIP()); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": err.Error(),
			})
			return
		}

		c.Set("api_key", apiKey)
		c.Set("api_key_id", apiKey.ID)

		go apiKeyService.UpdateLastUsed(context.WithoutCancel(ctx), apiKey.ID)

		c.Next()
	}
}

// Returns the API key that authenticated the request, if any
func APIKeyFrom(c *gin.Context) (*models.APIKey, bool) {
	v, ok := c.Get("api_key")
	if !ok {
		return nil, false
	}
	apiKey, ok := v.(*models.APIKey)
	return apiKey, ok
}

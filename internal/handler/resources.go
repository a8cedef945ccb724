package handler

import (
	"time"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/gin-gonic/gin"
)

type endpointResource struct {
	*models.Endpoint
	APIName string `json:"api_name,omitempty"`
}

func newEndpointResource(e *models.Endpoint) endpointResource {
	r := endpointResource{Endpoint: e}
	if e.API != nil {
		r.APIName = e.API.Name
	}
	return r
}

func endpointCollection(endpoints []models.Endpoint) []endpointResource {
	out := make([]endpointResource, 0, len(endpoints))
	for i := range endpoints {
		out = append(out, newEndpointResource(&endpoints[i]))
	}
	return out
}

// Shape of a call log on the wire
func callLogResource(l *models.CallLog) gin.H {
	var endpoint any
	if l.Endpoint != nil {
		endpoint = newEndpointResource(l.Endpoint)
	}
	return gin.H{
		"id":            l.ID,
		"status":        l.Status,
		"response":      l.Response.Data(),
		"response_time": l.ResponseTime,
		"endpoint":      endpoint,
		"created_at":    l.CreatedAt,
	}
}

func callLogCollection(logs []models.CallLog) []gin.H {
	out := make([]gin.H, 0, len(logs))
	for i := range logs {
		out = append(out, callLogResource(&logs[i]))
	}
	return out
}

type apiKeyResource struct {
	ID             uint       `json:"id"`
	Name           string     `json:"name"`
	Key            string     `json:"key"`
	Permissions    []string   `json:"permissions"`
	IPWhitelisting []string   `json:"ip_whitelisting"`
	ExpiryDate     *time.Time `json:"expiry_date"`
	Status         string     `json:"status"`
	LastUsedAt     *time.Time `json:"last_used_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// The key is concealed unless plain is given
func newAPIKeyResource(k *models.APIKey, plain string) apiKeyResource {
	key := plain
	if key == "" {
		key = k.ConcealedKey()
	}
	return apiKeyResource{
		ID:             k.ID,
		Name:           k.Name,
		Key:            key,
		Permissions:    k.Permissions.Data(),
		IPWhitelisting: k.IPWhitelisting.Data(),
		ExpiryDate:     k.ExpiryDate,
		Status:         k.Status,
		LastUsedAt:     k.LastUsedAt,
		CreatedAt:      k.CreatedAt,
		UpdatedAt:      k.UpdatedAt,
	}
}

func apiKeyCollection(keys []models.APIKey) []apiKeyResource {
	out := make([]apiKeyResource, 0, len(keys))
	for i := range keys {
		out = append(out, newAPIKeyResource(&keys[i], ""))
	}
	return out
}

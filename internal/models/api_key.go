package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PermissionRead   = "read"
	PermissionWrite  = "write"
	PermissionDelete = "delete"
)

var Permissions = []string{PermissionRead, PermissionWrite, PermissionDelete}

type APIKey struct {
	ID             uint                          `gorm:"primaryKey" json:"id"`
	Name           string                        `gorm:"type:varchar(255);not null" json:"name"`
	KeyHash        string                        `gorm:"uniqueIndex;not null" json:"-"`
	KeyPrefix      string                        `gorm:"type:varchar(16)" json:"-"`
	KeySuffix      string                        `gorm:"type:varchar(16)" json:"-"`
	Permissions    datatypes.JSONType[[]string] `json:"permissions"`
	IPWhitelisting datatypes.JSONType[[]string] `json:"ip_whitelisting"`
	ExpiryDate     *time.Time                    `json:"expiry_date,omitempty"`
	Status         string                        `gorm:"type:varchar(10);not null;default:'enabled';index" json:"status"`
	LastUsedAt     *time.Time                    `json:"last_used_at,omitempty"`
	CreatedAt      time.Time                     `json:"created_at"`
	UpdatedAt      time.Time                     `json:"updated_at"`
}

func (APIKey) TableName() string {
	return "api_keys"
}

// Returns the key with everything but its first and last six characters masked
func (a *APIKey) ConcealedKey() string {
	return a.KeyPrefix + "************************" + a.KeySuffix
}

func (a *APIKey) IsExpired(now time.Time) bool {
	return a.ExpiryDate != nil && !a.ExpiryDate.After(now)
}

func (a *APIKey) HasPermission(permission string) bool {
	for _, p := range a.Permissions.Data() {
		if p == permission {
			return true
		}
	}
	return false
}

// Reports whether ip may use the key; an empty allow-list admits everyone
func (a *APIKey) AllowsIP(ip string) bool {
	allowed := a.IPWhitelisting.Data()
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == ip {
			return true
		}
	}
	return false
}

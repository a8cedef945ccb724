package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RoleViewer    = "viewer"

	UserActive   = "active"
	UserInactive = "inactive"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDeveloper, RoleViewer:
		return true
	}
	return false
}

func ValidUserStatus(status string) bool {
	return status == UserActive || status == UserInactive
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `json:"name"`
	Role         string    `gorm:"default:'admin';not null" json:"role"`
	Status       string    `gorm:"default:'active';not null;index" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	return nil
}

func (u *User) IsActive() bool {
	return u.Status != UserInactive
}

func (User) TableName() string {
	return "users"
}

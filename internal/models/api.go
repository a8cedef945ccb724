package models

import (
	"time"

	"gorm.io/datatypes"
)

// API groups endpoints under one settings document; its
// globalSettings.baseUrl prefixes every endpoint path
type API struct {
	ID        uint                          `gorm:"primaryKey" json:"id"`
	Name      string                        `gorm:"column:api_name;type:varchar(255);not null" json:"api_name"`
	Settings  datatypes.JSONType[Settings] `gorm:"not null" json:"settings"`
	CreatedAt time.Time                     `json:"created_at"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

func (API) TableName() string {
	return "apis"
}

func (a *API) BaseURL() string {
	return a.Settings.Data().GlobalSettings.BaseURL
}

package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
)

// Method is one of the HTTP verbs an endpoint may be configured with
type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodPatch  Method = "patch"
	MethodHead   Method = "head"
	MethodDelete Method = "delete"
)

var Methods = []Method{MethodPost, MethodGet, MethodPut, MethodPatch, MethodHead, MethodDelete}

func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// Reports whether requests with this method carry the payload as a body
func (m Method) HasBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch:
		return true
	default:
		return false
	}
}

// Returns the wire form of the method, e.g. "GET"
func (m Method) HTTP() string {
	return strings.ToUpper(string(m))
}

// Endpoint is an outbound call target configured under an API
type Endpoint struct {
	ID          uint                                 `gorm:"primaryKey" json:"id"`
	APIID       uint                                 `gorm:"not null;index" json:"api_id"`
	API         *API                                 `gorm:"foreignKey:APIID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Endpoint    string                               `gorm:"type:varchar(255);not null;index" json:"endpoint"`
	Method      Method                               `gorm:"type:varchar(10);not null" json:"method"`
	Description string                               `gorm:"type:varchar(255)" json:"description"`
	Status      string                               `gorm:"type:varchar(10);not null;default:'enabled';index" json:"status"`
	Headers     datatypes.JSONType[map[string]string] `json:"headers"`
	Payload     datatypes.JSON                       `json:"payload"`
	Parameters  datatypes.JSONType[map[string]string] `json:"parameters"`
	CreatedAt   time.Time                            `json:"created_at"`
	UpdatedAt   time.Time                            `json:"updated_at"`
	DeletedAt   gorm.DeletedAt                       `gorm:"index" json:"-"`
}

func (Endpoint) TableName() string {
	return "endpoints"
}

func (e *Endpoint) IsEnabled() bool {
	return e.Status == StatusEnabled
}

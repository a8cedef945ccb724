package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CallStatus string

const (
	CallSuccess CallStatus = "success"
	CallFailed  CallStatus = "failed"
)

// CallLog records the outcome of one dispatch; rows are never updated in place
type CallLog struct {
	ID           uint                             `gorm:"primaryKey" json:"id"`
	EndpointID   *uint                            `gorm:"index" json:"endpoint_id"`
	Endpoint     *Endpoint                        `gorm:"foreignKey:EndpointID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Response     datatypes.JSONType[CallResponse] `json:"response"`
	ResponseTime float64                          `gorm:"not null;default:0" json:"response_time"` // seconds, 2 decimals
	Status       CallStatus                       `gorm:"type:varchar(10);not null;index" json:"status"`
	CreatedAt    time.Time                        `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
	DeletedAt    gorm.DeletedAt                   `gorm:"index" json:"-"`
}

func (CallLog) TableName() string {
	return "call_logs"
}

// Snapshot of what the target answered, stored schema-on-read
type CallResponse struct {
	URL        string              `json:"url"`
	StatusCode int                 `json:"status_code"` // 0 when the transport failed
	Headers    map[string][]string `json:"headers"`
	Body       string              `json:"body"`
	CallerIP   string              `json:"caller_ip"`
	Error      string              `json:"error,omitempty"`
}

// Classifies an HTTP status code; 0 means no response was received
func StatusFromCode(code int) CallStatus {
	if code >= 200 && code <= 299 {
		return CallSuccess
	}
	return CallFailed
}

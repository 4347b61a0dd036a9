// internal/models/audit.go
package models

import (
	"github.com/google/uuid"
)

// AuditLog records security-relevant reads and mutations: review
// transitions, successful status lookups, document downloads.
type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null"`
	ResourceType string     `json:"resource_type" gorm:"size:50;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"size:500"`
	Details      JSONB      `json:"details,omitempty" gorm:"type:jsonb"`
}

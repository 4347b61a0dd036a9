// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app feed entry. One is written for every
// notification regardless of the recipient's email preferences.
type Notification struct {
	BaseModel
	UserID   uuid.UUID            `json:"user_id" gorm:"type:uuid;not null;index"`
	Category NotificationCategory `json:"category" gorm:"type:varchar(30);not null;index"`
	Title    string               `json:"title" gorm:"size:255;not null"`
	Message  string               `json:"message" gorm:"size:2000;not null"`
	Data     JSONB                `json:"data,omitempty" gorm:"type:jsonb"`
	ReadAt   *time.Time           `json:"read_at"`
}

// NotificationPreference holds one email opt-in flag per category for a user.
// Absence of a row means email is disabled for that category.
type NotificationPreference struct {
	BaseModel
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_pref_user_key"`
	PreferenceKey string    `json:"preference_key" gorm:"size:50;not null;uniqueIndex:idx_pref_user_key"`
	EmailEnabled  bool      `json:"email_enabled" gorm:"default:false"`
}

// Announcement is a broadcast source; delivery fan-out happens in an
// external worker, not inline.
type Announcement struct {
	BaseModel
	Title     string     `json:"title" gorm:"size:255;not null"`
	Body      string     `json:"body" gorm:"size:5000;not null"`
	SendEmail bool       `json:"send_email"`
	CreatedBy uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
	ProgramID *uuid.UUID `json:"program_id" gorm:"type:uuid"` // nil = system-wide
}

// BroadcastRequest is the (notification, audience filter) hand-off consumed
// by the external fan-out worker. The core only guarantees the row is
// well formed; chunking and retry live outside this service.
type BroadcastRequest struct {
	BaseModel
	AnnouncementID uuid.UUID `json:"announcement_id" gorm:"type:uuid;not null;index"`
	AudienceFilter JSONB     `json:"audience_filter" gorm:"type:jsonb"`
	Status         string    `json:"status" gorm:"type:varchar(20);default:'queued';index"`
}

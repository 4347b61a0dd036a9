// internal/models/program.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Program struct {
	BaseModel
	Code              string         `json:"code" gorm:"uniqueIndex;size:20;not null"`
	Name              string         `json:"name" gorm:"size:255;not null"`
	Description       string         `json:"description" gorm:"size:2000"`
	DurationMonths    int            `json:"duration_months"`
	RequiredDocuments pq.StringArray `json:"required_documents" gorm:"type:text[]"`
	IsOpen            bool           `json:"is_open" gorm:"default:true"`
}

// Enrollment binds an admitted student to a program. Created only by the
// final approval transition.
type Enrollment struct {
	BaseModel
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_program"`
	ProgramID     uuid.UUID `json:"program_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_program"`
	ApplicationID uuid.UUID `json:"application_id" gorm:"type:uuid;not null"`

	User    User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Program Program `json:"program,omitempty" gorm:"foreignKey:ProgramID"`
}

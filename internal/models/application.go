// internal/models/application.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Application is created once at submission and afterwards mutated only
// through AdmissionService transitions.
type Application struct {
	BaseModel
	ReferenceNumber string    `json:"reference_number" gorm:"uniqueIndex;size:20;not null"`
	ProgramID       uuid.UUID `json:"program_id" gorm:"type:uuid;not null;index"`

	// Applicant details captured by the wizard
	Email       string     `json:"email" gorm:"size:255;not null;index"`
	FirstName   string     `json:"first_name" gorm:"size:100;not null"`
	LastName    string     `json:"last_name" gorm:"size:100;not null"`
	Phone       string     `json:"phone" gorm:"size:30"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Nationality string     `json:"nationality" gorm:"size:100"`
	Address     string     `json:"address" gorm:"size:500"`

	// Education background
	EducationLevel string `json:"education_level" gorm:"size:100;not null"`
	Institution    string `json:"institution" gorm:"size:255"`
	GraduationYear int    `json:"graduation_year"`
	GPA            string `json:"gpa" gorm:"size:20"`

	// Work experience
	HasWorkExperience bool   `json:"has_work_experience"`
	Employer          string `json:"employer" gorm:"size:255"`
	JobTitle          string `json:"job_title" gorm:"size:255"`
	YearsOfExperience int    `json:"years_of_experience"`

	// Review state. Audit fields are each set exactly once, by the matching
	// transition.
	Status            ApplicationStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	InitialApprovedAt *time.Time        `json:"initial_approved_at"`
	InitialApprovedBy *uuid.UUID        `json:"initial_approved_by" gorm:"type:uuid"`
	ReviewedAt        *time.Time        `json:"reviewed_at"`
	ReviewedBy        *uuid.UUID        `json:"reviewed_by" gorm:"type:uuid"`
	RejectionReason   string            `json:"rejection_reason,omitempty" gorm:"size:1000"`
	AdminNotes        string            `json:"admin_notes,omitempty" gorm:"size:2000"`

	// Account provisioned at submission time for status tracking
	CreatedUserID *uuid.UUID `json:"created_user_id" gorm:"type:uuid"`

	// Relationships
	Program     Program               `json:"program,omitempty" gorm:"foreignKey:ProgramID"`
	CreatedUser *User                 `json:"created_user,omitempty" gorm:"foreignKey:CreatedUserID"`
	Documents   []ApplicationDocument `json:"documents,omitempty" gorm:"foreignKey:ApplicationID"`
}

// ApplicationDocument is one stored file slot; at most one row per
// (application, document type).
type ApplicationDocument struct {
	BaseModel
	ApplicationID uuid.UUID    `json:"application_id" gorm:"type:uuid;not null;uniqueIndex:idx_application_document_slot"`
	DocumentType  DocumentType `json:"document_type" gorm:"type:varchar(30);not null;uniqueIndex:idx_application_document_slot"`
	StorageKey    string       `json:"-" gorm:"size:500;not null"`
	FileName      string       `json:"file_name" gorm:"size:255"`
	FileSize      int64        `json:"file_size"`
	MimeType      string       `json:"mime_type" gorm:"size:100"`
}

// ProvisioningTask records an account-provisioning failure that happened
// after the owning transaction committed, so operators can retry instead of
// leaving an applicant without access.
type ProvisioningTask struct {
	BaseModel
	ApplicationID uuid.UUID              `json:"application_id" gorm:"type:uuid;not null;index"`
	Stage         string                 `json:"stage" gorm:"size:30;not null"` // "tracking_account" or "enrollment"
	Status        ProvisioningTaskStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Attempts      int                    `json:"attempts"`
	LastError     string                 `json:"last_error" gorm:"size:1000"`
}

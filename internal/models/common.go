// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeApplicant UserType = "applicant"
	UserTypeStudent   UserType = "student"
	UserTypeStaff     UserType = "staff"
	UserTypeAdmin     UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// ApplicationStatus is the admission lifecycle state. Transitions are owned
// exclusively by services.AdmissionService; no other code mutates the field.
type ApplicationStatus string

const (
	ApplicationStatusPending         ApplicationStatus = "pending"
	ApplicationStatusInitialApproved ApplicationStatus = "initial_approved"
	ApplicationStatusApproved        ApplicationStatus = "approved"
	ApplicationStatusRejected        ApplicationStatus = "rejected"
)

// IsTerminal reports whether no further transition is permitted.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

type DocumentType string

const (
	DocumentTypeDegreeCertificate DocumentType = "degree_certificate"
	DocumentTypeTranscripts       DocumentType = "transcripts"
	DocumentTypeCV                DocumentType = "cv"
	DocumentTypeEnglishTest       DocumentType = "english_test"
)

// DocumentTypes is the fixed whitelist of accepted document slots.
var DocumentTypes = []DocumentType{
	DocumentTypeDegreeCertificate,
	DocumentTypeTranscripts,
	DocumentTypeCV,
	DocumentTypeEnglishTest,
}

// Valid reports whether t is one of the four known slots. Handlers must call
// this before any storage lookup.
func (t DocumentType) Valid() bool {
	for _, dt := range DocumentTypes {
		if t == dt {
			return true
		}
	}
	return false
}

type NotificationCategory string

const (
	CategoryApplicationStatus  NotificationCategory = "application_status"
	CategoryCourseEnrollment   NotificationCategory = "course_enrollment"
	CategoryAssignmentDue      NotificationCategory = "assignment_due"
	CategoryGradePosted        NotificationCategory = "grade_posted"
	CategoryQuizAvailable      NotificationCategory = "quiz_available"
	CategoryCourseAnnouncement NotificationCategory = "course_announcement"
)

type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "database"
	ChannelEmail NotificationChannel = "email"
)

type ProvisioningTaskStatus string

const (
	ProvisioningTaskPending  ProvisioningTaskStatus = "pending"
	ProvisioningTaskFailed   ProvisioningTaskStatus = "failed"
	ProvisioningTaskResolved ProvisioningTaskStatus = "resolved"
)

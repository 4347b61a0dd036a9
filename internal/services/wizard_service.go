// internal/services/wizard_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unilearn/sis-backend/internal/models"
	"github.com/unilearn/sis-backend/internal/session"
	"github.com/unilearn/sis-backend/internal/utils"
)

// Wizard steps, in order. Each step's store operation plants the marker key
// the next step's precondition checks for.
const (
	StepProgram   = 1
	StepPersonal  = 2
	StepEducation = 3
	StepWork      = 4
	StepReview    = 5

	WizardStepCount = 5
)

// stepPreconditions maps a step to the draft key that must exist before the
// step may be shown or stored. The key is only ever written by the previous
// step's successful store, which makes presence equivalent to "previous step
// completed". A missing key always routes back to step 1; the guard cannot
// tell a skipped step from an expired session, and does not try to.
var stepPreconditions = map[int]string{
	StepPersonal:  "program_id",
	StepEducation: "email",
	StepWork:      "education_level",
	StepReview:    "has_work_experience",
}

// StepPreconditionKey returns the draft key guarding the given step.
func StepPreconditionKey(step int) (string, bool) {
	key, ok := stepPreconditions[step]
	return key, ok
}

// MeetsPrecondition reports whether the draft satisfies the guard for step.
func MeetsPrecondition(step int, draft session.Draft) bool {
	key, ok := stepPreconditions[step]
	if !ok {
		return true
	}
	return draft.Has(key)
}

// WizardService accumulates a draft application across the five public
// intake steps. Nothing here touches durable storage except the step-1
// program existence check; the first database write happens at submission.
type WizardService struct {
	db     *gorm.DB
	drafts session.DraftStore
}

func NewWizardService(db *gorm.DB, drafts session.DraftStore) *WizardService {
	return &WizardService{db: db, drafts: drafts}
}

type ProgramStepRequest struct {
	ProgramID string `json:"program_id" validate:"required,uuid"`
}

type PersonalStepRequest struct {
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	ConfirmEmail string `json:"confirm_email" validate:"required,eqfield=Email"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	DateOfBirth  string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Nationality  string `json:"nationality" validate:"omitempty,max=100"`
	Address      string `json:"address" validate:"omitempty,max=500"`
}

type EducationStepRequest struct {
	EducationLevel string `json:"education_level" validate:"required,max=100"`
	Institution    string `json:"institution" validate:"omitempty,max=255"`
	GraduationYear int    `json:"graduation_year" validate:"omitempty,gte=1950,lte=2100"`
	GPA            string `json:"gpa" validate:"omitempty,max=20"`
}

type WorkStepRequest struct {
	HasWorkExperience *bool  `json:"has_work_experience" validate:"required"`
	Employer          string `json:"employer" validate:"omitempty,max=255"`
	JobTitle          string `json:"job_title" validate:"omitempty,max=255"`
	YearsOfExperience int    `json:"years_of_experience" validate:"omitempty,gte=0,lte=60"`
}

func (s *WizardService) GetDraft(ctx context.Context, sessionID string) (session.Draft, error) {
	return s.drafts.Get(ctx, sessionID)
}

// CanShow reports whether the step's precondition holds for this session.
func (s *WizardService) CanShow(ctx context.Context, sessionID string, step int) (bool, error) {
	draft, err := s.drafts.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return MeetsPrecondition(step, draft), nil
}

// StoreProgram validates and records the step-1 program selection.
func (s *WizardService) StoreProgram(ctx context.Context, sessionID string, req *ProgramStepRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	programID, err := uuid.Parse(req.ProgramID)
	if err != nil {
		return fmt.Errorf("invalid program id: %w", err)
	}

	var program models.Program
	if err := s.db.First(&program, programID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProgramNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}
	if !program.IsOpen {
		return ErrProgramClosed
	}

	return s.drafts.Merge(ctx, sessionID, map[string]interface{}{
		"program_id": program.ID.String(),
	})
}

// StorePersonal merges step-2 input. The confirmation field is validated
// against the email and then discarded; it is never part of the draft.
func (s *WizardService) StorePersonal(ctx context.Context, sessionID string, req *PersonalStepRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	return s.drafts.Merge(ctx, sessionID, map[string]interface{}{
		"first_name":    req.FirstName,
		"last_name":     req.LastName,
		"email":         req.Email,
		"phone":         req.Phone,
		"date_of_birth": req.DateOfBirth,
		"nationality":   req.Nationality,
		"address":       req.Address,
	})
}

func (s *WizardService) StoreEducation(ctx context.Context, sessionID string, req *EducationStepRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	return s.drafts.Merge(ctx, sessionID, map[string]interface{}{
		"education_level": req.EducationLevel,
		"institution":     req.Institution,
		"graduation_year": req.GraduationYear,
		"gpa":             req.GPA,
	})
}

func (s *WizardService) StoreWork(ctx context.Context, sessionID string, req *WorkStepRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	return s.drafts.Merge(ctx, sessionID, map[string]interface{}{
		"has_work_experience": *req.HasWorkExperience,
		"employer":            req.Employer,
		"job_title":           req.JobTitle,
		"years_of_experience": req.YearsOfExperience,
	})
}

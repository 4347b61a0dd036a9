// internal/services/application_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/unilearn/sis-backend/internal/models"
	"github.com/unilearn/sis-backend/internal/session"
	"github.com/unilearn/sis-backend/internal/utils"
)

// referenceMaxAttempts bounds the regenerate-on-collision loop. With a
// 31-character alphabet and six positions a second collision in a row is
// effectively a database problem, not bad luck.
const referenceMaxAttempts = 5

// draftRequiredKeys are the fields a draft must carry before it can become an
// application row. One marker per wizard step.
var draftRequiredKeys = []string{
	"program_id", "first_name", "last_name", "email",
	"education_level", "has_work_experience",
}

// ApplicationService owns the submission boundary: it turns a completed
// wizard draft into the one and only database write of the intake flow, and
// serves every read of persisted applications.
type ApplicationService struct {
	db         *gorm.DB
	drafts     session.DraftStore
	references *ReferenceGenerator
	storage    *StorageService
	accounts   *AccountService
}

func NewApplicationService(db *gorm.DB, drafts session.DraftStore, references *ReferenceGenerator, storage *StorageService, accounts *AccountService) *ApplicationService {
	return &ApplicationService{
		db:         db,
		drafts:     drafts,
		references: references,
		storage:    storage,
		accounts:   accounts,
	}
}

// DocumentUpload is one multipart file bound to a document slot.
type DocumentUpload struct {
	Slot   models.DocumentType
	File   multipart.File
	Header *multipart.FileHeader
}

// SubmissionResult is what the confirmation page renders.
type SubmissionResult struct {
	Application *models.Application
	// Degraded is set when the application persisted but the tracking
	// account could not be provisioned. A compensating task exists.
	Degraded bool
}

// Submit finalizes the draft for the given session: persists the application
// and its documents atomically, clears the draft, and provisions the tracking
// account before returning.
func (s *ApplicationService) Submit(ctx context.Context, sessionID string, uploads []DocumentUpload) (*SubmissionResult, error) {
	draft, err := s.drafts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, key := range draftRequiredKeys {
		if !draft.Has(key) {
			return nil, ErrDraftIncomplete
		}
	}

	for _, upload := range uploads {
		if !upload.Slot.Valid() {
			return nil, fmt.Errorf("unknown document slot %q", upload.Slot)
		}
	}

	programID, err := uuid.Parse(draft.GetString("program_id"))
	if err != nil {
		return nil, ErrDraftIncomplete
	}

	app := s.applicationFromDraft(draft, programID)

	var uploadedKeys []string
	cleanup := func() {
		for _, key := range uploadedKeys {
			if delErr := s.storage.DeleteFile(key); delErr != nil {
				logrus.WithError(delErr).WithField("key", key).Warn("Failed to clean up orphaned document")
			}
		}
	}

	persisted := false
	for attempt := 0; attempt < referenceMaxAttempts; attempt++ {
		reference, genErr := s.references.Generate()
		if genErr != nil {
			return nil, genErr
		}
		app.ReferenceNumber = reference

		uploadedKeys = uploadedKeys[:0]
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(app).Error; err != nil {
				return err
			}

			for _, upload := range uploads {
				result, upErr := s.storage.UploadDocument(upload.File, upload.Header, reference, upload.Slot)
				if upErr != nil {
					return upErr
				}
				uploadedKeys = append(uploadedKeys, result.Key)

				doc := models.ApplicationDocument{
					ApplicationID: app.ID,
					DocumentType:  upload.Slot,
					StorageKey:    result.Key,
					FileName:      result.FileName,
					FileSize:      result.Size,
					MimeType:      result.MimeType,
				}
				if err := tx.Create(&doc).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			persisted = true
			break
		}

		cleanup()
		if IsUniqueViolation(err) {
			logrus.WithField("reference_number", reference).Info("Reference number collision, regenerating")
			continue
		}
		return nil, fmt.Errorf("failed to persist application: %w", err)
	}
	if !persisted {
		return nil, fmt.Errorf("failed to allocate reference number after %d attempts: %w", referenceMaxAttempts, err)
	}

	// The draft is spent the moment the row exists. A failure here only
	// risks a duplicate submission attempt, which the applicant can see on
	// the confirmation page.
	if err := s.drafts.Clear(ctx, sessionID); err != nil {
		logrus.WithError(err).WithField("reference_number", app.ReferenceNumber).Warn("Failed to clear submitted draft")
	}

	result := &SubmissionResult{Application: app}
	if _, provErr := s.accounts.ProvisionTrackingAccount(app); provErr != nil {
		s.accounts.RecordProvisioningFailure(app, "tracking_account", provErr)
		result.Degraded = true
	}

	return result, nil
}

func (s *ApplicationService) applicationFromDraft(draft session.Draft, programID uuid.UUID) *models.Application {
	app := &models.Application{
		ProgramID:         programID,
		Email:             draft.GetString("email"),
		FirstName:         draft.GetString("first_name"),
		LastName:          draft.GetString("last_name"),
		Phone:             draft.GetString("phone"),
		Nationality:       draft.GetString("nationality"),
		Address:           draft.GetString("address"),
		EducationLevel:    draft.GetString("education_level"),
		Institution:       draft.GetString("institution"),
		GraduationYear:    draft.GetInt("graduation_year"),
		GPA:               draft.GetString("gpa"),
		HasWorkExperience: draft.GetBool("has_work_experience"),
		Employer:          draft.GetString("employer"),
		JobTitle:          draft.GetString("job_title"),
		YearsOfExperience: draft.GetInt("years_of_experience"),
		Status:            models.ApplicationStatusPending,
	}

	if dob := draft.GetString("date_of_birth"); dob != "" {
		if parsed, err := time.Parse("2006-01-02", dob); err == nil {
			app.DateOfBirth = &parsed
		}
	}

	return app
}

// GetByReference serves the confirmation page. It is scoped to recent
// submissions by reference number only; anything richer goes through the
// authenticated status lookup.
func (s *ApplicationService) GetByReference(reference string) (*models.Application, error) {
	var app models.Application
	err := s.db.Preload("Program").Preload("Documents").
		Where("reference_number = ?", reference).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &app, nil
}

// StatusLookupResult is the deliberately narrow public view of one
// application. No personal data beyond what the caller already proved they
// know.
type StatusLookupResult struct {
	ReferenceNumber string                   `json:"reference_number"`
	ProgramName     string                   `json:"program_name"`
	Status          models.ApplicationStatus `json:"status"`
	SubmittedAt     time.Time                `json:"submitted_at"`
	LastUpdatedAt   time.Time                `json:"last_updated_at"`
}

// StatusLookup resolves an application from the public status-check form.
// Both fields must match a single row in one exact-match query; every miss
// yields the same ErrLookupNotFound so the endpoint cannot be used to probe
// which references or emails exist.
func (s *ApplicationService) StatusLookup(email, reference, clientIP string) (*StatusLookupResult, error) {
	var app models.Application
	err := s.db.Preload("Program").
		Where("reference_number = ? AND email = ?", reference, email).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLookupNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	appID := app.ID
	audit := models.AuditLog{
		Action:       "status_lookup",
		ResourceType: "application",
		ResourceID:   &appID,
		IPAddress:    clientIP,
		Details: models.JSONB{
			"reference_number": app.ReferenceNumber,
			"status":           string(app.Status),
		},
	}
	if err := s.db.Create(&audit).Error; err != nil {
		logrus.WithError(err).Warn("Failed to record status lookup audit entry")
	}

	return &StatusLookupResult{
		ReferenceNumber: app.ReferenceNumber,
		ProgramName:     app.Program.Name,
		Status:          app.Status,
		SubmittedAt:     app.CreatedAt,
		LastUpdatedAt:   app.UpdatedAt,
	}, nil
}

// ApplicationFilters narrows the admin application list.
type ApplicationFilters struct {
	Status    models.ApplicationStatus
	ProgramID *uuid.UUID
}

// SearchApplications lists applications for the review queue.
func (s *ApplicationService) SearchApplications(params utils.PaginationParams, filters ApplicationFilters) ([]models.Application, *utils.PaginationResult, error) {
	query := s.db.Model(&models.Application{}).Preload("Program")

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.ProgramID != nil {
		query = query.Where("program_id = ?", *filters.ProgramID)
	}
	if params.Search != "" {
		term := "%" + params.Search + "%"
		query = query.Where(
			"reference_number ILIKE ? OR email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?",
			term, term, term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to count applications: %w", err)
	}

	allowedSorts := []string{"created_at", "updated_at", "status", "reference_number"}
	query = utils.ApplySort(query, params, allowedSorts)
	query = utils.ApplyPagination(query, params)

	var apps []models.Application
	if err := query.Find(&apps).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list applications: %w", err)
	}

	pagination := utils.CreatePaginationResult(apps, total, params)
	return apps, &pagination, nil
}

// GetApplication loads the full admin detail view.
func (s *ApplicationService) GetApplication(id uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := s.db.Preload("Program").Preload("Documents").Preload("CreatedUser").
		First(&app, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &app, nil
}

// GetDocument resolves one document slot of an application and the owning
// reference number for the download audit trail. The slot name is validated
// against the whitelist before any database or storage access; unknown slots
// and empty slots are indistinguishable to the caller.
func (s *ApplicationService) GetDocument(applicationID uuid.UUID, slot string) (*models.ApplicationDocument, string, error) {
	docType := models.DocumentType(slot)
	if !docType.Valid() {
		return nil, "", ErrDocumentNotFound
	}

	var app models.Application
	err := s.db.Select("id", "reference_number").First(&app, applicationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDocumentNotFound
		}
		return nil, "", fmt.Errorf("database error: %w", err)
	}

	var doc models.ApplicationDocument
	err = s.db.Where("application_id = ? AND document_type = ?", applicationID, docType).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDocumentNotFound
		}
		return nil, "", fmt.Errorf("database error: %w", err)
	}
	return &doc, app.ReferenceNumber, nil
}

// StatusCounts returns the number of applications per review status for the
// staff dashboard.
func (s *ApplicationService) StatusCounts() (map[models.ApplicationStatus]int64, error) {
	type row struct {
		Status models.ApplicationStatus
		Count  int64
	}

	var rows []row
	err := s.db.Model(&models.Application{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}

	counts := map[models.ApplicationStatus]int64{
		models.ApplicationStatusPending:         0,
		models.ApplicationStatusInitialApproved: 0,
		models.ApplicationStatusApproved:        0,
		models.ApplicationStatusRejected:        0,
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// ListPrograms returns the programs shown on wizard step 1.
func (s *ApplicationService) ListPrograms(openOnly bool) ([]models.Program, error) {
	query := s.db.Model(&models.Program{}).Order("name ASC")
	if openOnly {
		query = query.Where("is_open = ?", true)
	}

	var programs []models.Program
	if err := query.Find(&programs).Error; err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	return programs, nil
}

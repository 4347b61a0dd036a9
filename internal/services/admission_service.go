// internal/services/admission_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/unilearn/sis-backend/internal/database"
	"github.com/unilearn/sis-backend/internal/models"
)

// TransitionOp names one review operation.
type TransitionOp string

const (
	OpInitialApprove TransitionOp = "initial_approve"
	OpApprove        TransitionOp = "approve"
	OpReject         TransitionOp = "reject"
)

// transitionSources maps each operation to its only valid source state.
// Rejection is the exception: it is reachable from both non-terminal states.
var transitionSources = map[TransitionOp][]models.ApplicationStatus{
	OpInitialApprove: {models.ApplicationStatusPending},
	OpApprove:        {models.ApplicationStatusInitialApproved},
	OpReject:         {models.ApplicationStatusPending, models.ApplicationStatusInitialApproved},
}

// transitionTargets maps each operation to the state it produces.
var transitionTargets = map[TransitionOp]models.ApplicationStatus{
	OpInitialApprove: models.ApplicationStatusInitialApproved,
	OpApprove:        models.ApplicationStatusApproved,
	OpReject:         models.ApplicationStatusRejected,
}

// CanTransition reports whether op is valid from the given status. Terminal
// states accept nothing.
func CanTransition(from models.ApplicationStatus, op TransitionOp) bool {
	for _, src := range transitionSources[op] {
		if from == src {
			return true
		}
	}
	return false
}

// AdmissionService owns every mutation of an application's review state. All
// three transitions follow the same shape: lock the row, re-check the source
// state under the lock, write status and audit fields in one update. Two
// admins racing on the same application means one wins and the loser gets
// ErrInvalidTransition.
type AdmissionService struct {
	db            *gorm.DB
	accounts      *AccountService
	notifications *NotificationService
}

func NewAdmissionService(db *gorm.DB, accounts *AccountService, notifications *NotificationService) *AdmissionService {
	return &AdmissionService{
		db:            db,
		accounts:      accounts,
		notifications: notifications,
	}
}

// transition runs the shared locked state change. mutate receives the locked
// row and applies the op-specific audit fields; it runs only after the source
// state re-check passed.
func (s *AdmissionService) transition(id uuid.UUID, op TransitionOp, actorID uuid.UUID, mutate func(app *models.Application)) (*models.Application, error) {
	if actorID == uuid.Nil {
		return nil, ErrActorRequired
	}

	var app models.Application
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&app, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Re-checked under the row lock: whoever locked first already
		// moved the state, and the second writer must observe that.
		if !CanTransition(app.Status, op) {
			return ErrInvalidTransition
		}

		app.Status = transitionTargets[op]
		mutate(&app)

		if err := tx.Save(&app).Error; err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"application_id":   id,
			"reference_number": app.ReferenceNumber,
			"operation":        op,
			"actor_id":         actorID,
		}).Warn("Application transition failed")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"reference_number": app.ReferenceNumber,
		"operation":        op,
		"status":           app.Status,
		"actor_id":         actorID,
	}).Info("Application transition applied")

	return &app, nil
}

// InitialApprove moves a pending application into the screened state.
func (s *AdmissionService) InitialApprove(id, actorID uuid.UUID, notes string) (*models.Application, error) {
	return s.transition(id, OpInitialApprove, actorID, func(app *models.Application) {
		now := time.Now()
		app.InitialApprovedAt = &now
		app.InitialApprovedBy = &actorID
		appendNotes(app, notes)
	})
}

// Approve finalizes an initially-approved application. Enrollment
// provisioning and the applicant notification run after the commit; a
// provisioning failure leaves the application approved and records a
// compensating task.
func (s *AdmissionService) Approve(id, actorID uuid.UUID, notes string) (*models.Application, error) {
	app, err := s.transition(id, OpApprove, actorID, func(app *models.Application) {
		now := time.Now()
		app.ReviewedAt = &now
		app.ReviewedBy = &actorID
		appendNotes(app, notes)
	})
	if err != nil {
		return nil, err
	}

	if provErr := s.accounts.ProvisionEnrollment(app); provErr != nil {
		s.accounts.RecordProvisioningFailure(app, "enrollment", provErr)
	}

	if notifyErr := s.notifications.SendApplicationApprovedNotification(app); notifyErr != nil {
		logrus.WithError(notifyErr).WithField("reference_number", app.ReferenceNumber).
			Error("Failed to send approval notification")
	}

	return app, nil
}

// Reject closes an application from either non-terminal state. The reason is
// required and becomes part of the applicant-visible decision; the guard lives
// here so no caller can produce a rejected row without one.
func (s *AdmissionService) Reject(id, actorID uuid.UUID, reason, notes string) (*models.Application, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	app, err := s.transition(id, OpReject, actorID, func(app *models.Application) {
		now := time.Now()
		app.ReviewedAt = &now
		app.ReviewedBy = &actorID
		app.RejectionReason = reason
		appendNotes(app, notes)
	})
	if err != nil {
		return nil, err
	}

	if notifyErr := s.notifications.SendApplicationRejectedNotification(app); notifyErr != nil {
		logrus.WithError(notifyErr).WithField("reference_number", app.ReferenceNumber).
			Error("Failed to send rejection notification")
	}

	return app, nil
}

func appendNotes(app *models.Application, notes string) {
	if notes == "" {
		return
	}
	if app.AdminNotes != "" {
		app.AdminNotes += "\n"
	}
	app.AdminNotes += notes
}

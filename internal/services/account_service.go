// internal/services/account_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/unilearn/sis-backend/internal/config"
	"github.com/unilearn/sis-backend/internal/models"
	"github.com/unilearn/sis-backend/internal/utils"
)

// AccountService owns the two provisioning events of the admission
// lifecycle: the tracking account created at submission time, and the
// enrollment plus learning-platform credentials created at final approval.
// Both reuse a single User row per email address.
type AccountService struct {
	db                  *gorm.DB
	cfg                 *config.Config
	notificationService *NotificationService
}

func NewAccountService(db *gorm.DB, cfg *config.Config, notificationService *NotificationService) *AccountService {
	return &AccountService{
		db:                  db,
		cfg:                 cfg,
		notificationService: notificationService,
	}
}

// ProvisionTrackingAccount creates (or reuses) the login-capable account
// bound to the applicant and emails the credentials. It is invoked
// synchronously during submission: the confirmation response must never be
// rendered before this account exists.
func (s *AccountService) ProvisionTrackingAccount(app *models.Application) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", app.Email).First(&user).Error
	if err == nil {
		// Returning applicant; the existing account keeps tracking access.
		if linkErr := s.linkApplication(app, &user); linkErr != nil {
			return nil, linkErr
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	tempPassword, err := utils.GenerateTemporaryPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate credentials: %w", err)
	}

	user = models.User{
		Email:     app.Email,
		FirstName: app.FirstName,
		LastName:  app.LastName,
		UserType:  models.UserTypeApplicant,
		Status:    models.UserStatusActive,
	}
	if err := user.SetPassword(tempPassword); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create tracking account: %w", err)
	}

	// Application status updates default to email-on so applicants hear
	// about decisions without configuring anything.
	pref := models.NotificationPreference{
		UserID:        user.ID,
		PreferenceKey: PreferenceKeyFor(models.CategoryApplicationStatus),
		EmailEnabled:  true,
	}
	if err := s.db.Create(&pref).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to create default notification preference")
	}

	if err := s.linkApplication(app, &user); err != nil {
		return nil, err
	}

	if err := s.notificationService.SendCredentialEmail(&user, tempPassword, app.ReferenceNumber); err != nil {
		// The account exists and the applicant can reset the password; do
		// not fail the submission over mail delivery.
		logrus.WithError(err).WithFields(logrus.Fields{
			"reference_number": app.ReferenceNumber,
			"user_id":          user.ID,
		}).Error("Failed to send credential email")
	}

	return &user, nil
}

func (s *AccountService) linkApplication(app *models.Application, user *models.User) error {
	app.CreatedUserID = &user.ID
	if err := s.db.Model(&models.Application{}).
		Where("id = ?", app.ID).
		Update("created_user_id", user.ID).Error; err != nil {
		return fmt.Errorf("failed to link tracking account: %w", err)
	}
	return nil
}

// ProvisionEnrollment runs at final approval: enrolls the student in the
// program, promotes the account, and issues learning-platform credentials.
func (s *AccountService) ProvisionEnrollment(app *models.Application) error {
	if app.CreatedUserID == nil {
		return errors.New("application has no tracking account")
	}

	var user models.User
	if err := s.db.First(&user, *app.CreatedUserID).Error; err != nil {
		return fmt.Errorf("tracking account not found: %w", err)
	}

	var program models.Program
	if err := s.db.First(&program, app.ProgramID).Error; err != nil {
		return fmt.Errorf("program not found: %w", err)
	}

	tempPassword, err := utils.GenerateTemporaryPassword()
	if err != nil {
		return fmt.Errorf("failed to generate credentials: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		enrollment := models.Enrollment{
			UserID:        user.ID,
			ProgramID:     program.ID,
			ApplicationID: app.ID,
		}
		if err := tx.Create(&enrollment).Error; err != nil {
			return fmt.Errorf("failed to create enrollment: %w", err)
		}

		user.UserType = models.UserTypeStudent
		if err := user.SetPassword(tempPassword); err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := s.notificationService.SendEnrollmentCredentialEmail(&user, tempPassword, &program); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"reference_number": app.ReferenceNumber,
			"user_id":          user.ID,
		}).Error("Failed to send enrollment credential email")
	}

	return nil
}

// RecordProvisioningFailure persists a retriable compensating-action record.
// The owning transaction already committed when this is called; the failure
// must surface to operators rather than vanish.
func (s *AccountService) RecordProvisioningFailure(app *models.Application, stage string, cause error) {
	logrus.WithError(cause).WithFields(logrus.Fields{
		"reference_number": app.ReferenceNumber,
		"application_id":   app.ID,
		"stage":            stage,
	}).Error("Account provisioning failed; compensating task recorded")

	task := models.ProvisioningTask{
		ApplicationID: app.ID,
		Stage:         stage,
		Status:        models.ProvisioningTaskFailed,
		Attempts:      1,
		LastError:     cause.Error(),
	}
	if err := s.db.Create(&task).Error; err != nil {
		logrus.WithError(err).WithField("application_id", app.ID).Error("Failed to record provisioning task")
	}
}

// RetryPendingTasks re-runs failed provisioning work. Exposed on an admin
// endpoint so operators can drain the queue after an outage.
func (s *AccountService) RetryPendingTasks() (int, error) {
	var tasks []models.ProvisioningTask
	if err := s.db.Where("status IN ?", []models.ProvisioningTaskStatus{
		models.ProvisioningTaskPending, models.ProvisioningTaskFailed,
	}).Find(&tasks).Error; err != nil {
		return 0, fmt.Errorf("failed to load provisioning tasks: %w", err)
	}

	resolved := 0
	for i := range tasks {
		task := &tasks[i]

		var app models.Application
		if err := s.db.First(&app, task.ApplicationID).Error; err != nil {
			continue
		}

		var runErr error
		switch task.Stage {
		case "tracking_account":
			_, runErr = s.ProvisionTrackingAccount(&app)
		case "enrollment":
			runErr = s.ProvisionEnrollment(&app)
		default:
			runErr = fmt.Errorf("unknown provisioning stage %q", task.Stage)
		}

		task.Attempts++
		if runErr != nil {
			task.Status = models.ProvisioningTaskFailed
			task.LastError = runErr.Error()
		} else {
			task.Status = models.ProvisioningTaskResolved
			task.LastError = ""
			resolved++
		}
		s.db.Save(task)
	}

	return resolved, nil
}

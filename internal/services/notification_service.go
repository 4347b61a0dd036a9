// internal/services/notification_service.go
package services

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/unilearn/sis-backend/internal/config"
	"github.com/unilearn/sis-backend/internal/models"
)

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

// preferenceKeys maps each notification category to the single preference
// key consulted for email opt-in.
var preferenceKeys = map[models.NotificationCategory]string{
	models.CategoryApplicationStatus:  "application_updates",
	models.CategoryCourseEnrollment:   "system_notifications",
	models.CategoryAssignmentDue:      "assignment_reminders",
	models.CategoryGradePosted:        "grade_notifications",
	models.CategoryQuizAvailable:      "quiz_notifications",
	models.CategoryCourseAnnouncement: "course_announcements",
}

func PreferenceKeyFor(category models.NotificationCategory) string {
	return preferenceKeys[category]
}

// ResolveChannels is the single shared channel policy. The in-app channel is
// always present; the email channel is added only when the recipient opted
// in for the category and, for announcement-driven notifications, the
// announcement itself was flagged to send email.
func ResolveChannels(emailOptIn bool, announcement *models.Announcement) []models.NotificationChannel {
	channels := []models.NotificationChannel{models.ChannelInApp}

	if !emailOptIn {
		return channels
	}
	if announcement != nil && !announcement.SendEmail {
		return channels
	}

	return append(channels, models.ChannelEmail)
}

// ChannelsFor resolves delivery channels for one recipient by loading their
// stored preference for the category.
func (s *NotificationService) ChannelsFor(userID uuid.UUID, category models.NotificationCategory, announcement *models.Announcement) ([]models.NotificationChannel, error) {
	var pref models.NotificationPreference
	optIn := false
	err := s.db.Where("user_id = ? AND preference_key = ?", userID, PreferenceKeyFor(category)).
		First(&pref).Error
	if err == nil {
		optIn = pref.EmailEnabled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load notification preference: %w", err)
	}

	return ResolveChannels(optIn, announcement), nil
}

// Notify records the in-app notification and delivers email when the
// resolved channels include it. The feed row is written unconditionally.
func (s *NotificationService) Notify(userID uuid.UUID, category models.NotificationCategory, title, message string, data models.JSONB, announcement *models.Announcement) error {
	notification := &models.Notification{
		UserID:   userID,
		Category: category,
		Title:    title,
		Message:  message,
		Data:     data,
	}
	if err := s.db.Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	channels, err := s.ChannelsFor(userID, category, announcement)
	if err != nil {
		return err
	}

	emailWanted := false
	for _, channel := range channels {
		if channel == models.ChannelEmail {
			emailWanted = true
			break
		}
	}
	if !emailWanted {
		return nil
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return fmt.Errorf("recipient not found: %w", err)
	}

	tmpl := s.getEmailTemplate("generic")
	body, err := s.renderTemplate(tmpl.Body, map[string]interface{}{
		"Name":    user.FirstName,
		"Message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, title, body)
}

// Application lifecycle notifications

func (s *NotificationService) SendApplicationRejectedNotification(app *models.Application) error {
	if app.CreatedUserID == nil {
		return errors.New("application has no tracking account")
	}

	message := fmt.Sprintf("Your application %s was not successful. Reason: %s",
		app.ReferenceNumber, app.RejectionReason)

	return s.Notify(*app.CreatedUserID, models.CategoryApplicationStatus,
		"Application Decision", message,
		models.JSONB{"reference_number": app.ReferenceNumber, "status": app.Status}, nil)
}

func (s *NotificationService) SendApplicationApprovedNotification(app *models.Application) error {
	if app.CreatedUserID == nil {
		return errors.New("application has no tracking account")
	}

	message := fmt.Sprintf("Congratulations! Your application %s has been approved and your enrollment is being set up.",
		app.ReferenceNumber)

	return s.Notify(*app.CreatedUserID, models.CategoryApplicationStatus,
		"Application Approved", message,
		models.JSONB{"reference_number": app.ReferenceNumber, "status": app.Status}, nil)
}

// SendCredentialEmail delivers login credentials directly; transactional
// mail bypasses the preference store.
func (s *NotificationService) SendCredentialEmail(user *models.User, tempPassword, referenceNumber string) error {
	tmpl := s.getEmailTemplate("credentials")

	data := map[string]interface{}{
		"Name":            user.FirstName,
		"Email":           user.Email,
		"Password":        tempPassword,
		"ReferenceNumber": referenceNumber,
		"PortalURL":       fmt.Sprintf("%s/login", s.config.Frontend.BaseURL),
	}

	subject := "Your Application Tracking Account - " + referenceNumber
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

func (s *NotificationService) SendEnrollmentCredentialEmail(user *models.User, tempPassword string, program *models.Program) error {
	tmpl := s.getEmailTemplate("enrollment")

	data := map[string]interface{}{
		"Name":        user.FirstName,
		"Email":       user.Email,
		"Password":    tempPassword,
		"ProgramName": program.Name,
		"PortalURL":   fmt.Sprintf("%s/login", s.config.Frontend.BaseURL),
	}

	subject := "Welcome to " + program.Name
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

// EnqueueAnnouncement persists the announcement and the audience hand-off
// row. Fan-out to individual recipients happens in the external worker; the
// worker applies ResolveChannels per recipient.
func (s *NotificationService) EnqueueAnnouncement(announcement *models.Announcement) (*models.BroadcastRequest, error) {
	if err := s.db.Create(announcement).Error; err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}

	filter := models.JSONB{"scope": "all"}
	if announcement.ProgramID != nil {
		filter = models.JSONB{"scope": "program", "program_id": announcement.ProgramID.String()}
	}

	request := &models.BroadcastRequest{
		AnnouncementID: announcement.ID,
		AudienceFilter: filter,
		Status:         "queued",
	}
	if err := s.db.Create(request).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue broadcast: %w", err)
	}

	return request, nil
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPUsername == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email delivery skipped (SMTP not configured)")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"credentials": {
			Subject: "Your Application Tracking Account",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>Your application has been received. Reference number: <strong>{{.ReferenceNumber}}</strong></p>
	<p>An account has been created so you can track your application:</p>
	<p>Email: {{.Email}}<br>Temporary password: {{.Password}}</p>
	<a href="{{.PortalURL}}">Sign in to track your application</a>
	<p>Best regards,<br>Admissions Office</p>
</body>
</html>`,
		},
		"enrollment": {
			Subject: "Welcome",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Welcome {{.Name}}!</h2>
	<p>You have been enrolled in <strong>{{.ProgramName}}</strong>.</p>
	<p>Your learning platform credentials:</p>
	<p>Email: {{.Email}}<br>Temporary password: {{.Password}}</p>
	<a href="{{.PortalURL}}">Sign in</a>
	<p>Best regards,<br>Admissions Office</p>
</body>
</html>`,
		},
		"generic": {
			Subject: "Notification",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.Name}},</p>
	<p>{{.Message}}</p>
	<p>Best regards,<br>Admissions Office</p>
</body>
</html>`,
		},
	}

	if tmpl, exists := templates[templateType]; exists {
		return tmpl
	}

	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}

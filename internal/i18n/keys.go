// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyUserNotFound           = "auth.user_not_found"

	// Admissions wizard
	KeyWizardStepSaved     = "wizard.step_saved"
	KeyWizardRestart       = "wizard.restart"
	KeyWizardInvalidStep   = "wizard.invalid_step"
	KeyWizardProgramClosed = "wizard.program_closed"

	// Applications
	KeyApplicationSubmitted       = "application.submitted"
	KeyApplicationNotFound        = "application.not_found"
	KeyApplicationInitialApproved = "application.initial_approved"
	KeyApplicationApproved        = "application.approved"
	KeyApplicationRejected        = "application.rejected"
	KeyApplicationInvalidState    = "application.invalid_state"
	KeyApplicationConflict        = "application.conflict"

	// Status lookup (deliberately a single generic message)
	KeyStatusLookupNotFound = "status_lookup.not_found"

	// Documents
	KeyDocumentNotFound    = "document.not_found"
	KeyDocumentInvalidType = "document.invalid_type"
	KeyDocumentTooLarge    = "document.too_large"

	// Programs
	KeyProgramNotFound = "program.not_found"

	// Admin
	KeyAdminActionSuccess = "admin.action_success"
	KeyAdminAccessDenied  = "admin.access_denied"

	// Notifications
	KeyNotificationSent     = "notification.sent"
	KeyPreferencesUpdated   = "notification.preferences_updated"
	KeyAnnouncementCreated  = "notification.announcement_created"
	KeyNotificationNotFound = "notification.not_found"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)

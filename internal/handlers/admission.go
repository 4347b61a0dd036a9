// internal/handlers/admission.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/unilearn/sis-backend/internal/i18n"
	"github.com/unilearn/sis-backend/internal/models"
	"github.com/unilearn/sis-backend/internal/services"
	"github.com/unilearn/sis-backend/internal/utils"
)

// AdmissionHandler is the staff review surface: the application queue, the
// three state transitions, document access and provisioning retries.
type AdmissionHandler struct {
	applicationService  *services.ApplicationService
	admissionService    *services.AdmissionService
	accountService      *services.AccountService
	notificationService *services.NotificationService
	storageService      *services.StorageService
	db                  *gorm.DB
}

func NewAdmissionHandler(
	applicationService *services.ApplicationService,
	admissionService *services.AdmissionService,
	accountService *services.AccountService,
	notificationService *services.NotificationService,
	storageService *services.StorageService,
	db *gorm.DB,
) *AdmissionHandler {
	return &AdmissionHandler{
		applicationService:  applicationService,
		admissionService:    admissionService,
		accountService:      accountService,
		notificationService: notificationService,
		storageService:      storageService,
		db:                  db,
	}
}

func (h *AdmissionHandler) actorID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GET /admin/applications
func (h *AdmissionHandler) ListApplications(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filters := services.ApplicationFilters{}
	if status := c.Query("status"); status != "" {
		filters.Status = models.ApplicationStatus(status)
	}
	if programIDStr := c.Query("program_id"); programIDStr != "" {
		if programID, err := uuid.Parse(programIDStr); err == nil {
			filters.ProgramID = &programID
		}
	}

	_, result, err := h.applicationService.SearchApplications(params, filters)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /admin/dashboard
func (h *AdmissionHandler) Dashboard(c *gin.Context) {
	counts, err := h.applicationService.StatusCounts()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	var openTasks int64
	if err := h.db.Model(&models.ProvisioningTask{}).
		Where("status IN ?", []models.ProvisioningTaskStatus{
			models.ProvisioningTaskPending, models.ProvisioningTaskFailed,
		}).Count(&openTasks).Error; err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"applications": gin.H{
			"total":     total,
			"by_status": counts,
		},
		"open_provisioning_tasks": openTasks,
	})
}

// GET /admin/applications/:id
func (h *AdmissionHandler) GetApplication(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	app, err := h.applicationService.GetApplication(id)
	if err != nil {
		if err == services.ErrApplicationNotFound {
			utils.NotFoundResponse(c, i18n.KeyApplicationNotFound)
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": app,
	})
}

type transitionRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=2000"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
	Notes  string `json:"notes" validate:"omitempty,max=2000"`
}

func (h *AdmissionHandler) respondTransitionError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	switch err {
	case services.ErrApplicationNotFound:
		utils.NotFoundResponse(c, i18n.KeyApplicationNotFound)
	case services.ErrInvalidTransition:
		// A lost race and a plainly wrong source state are the same thing
		// by the time the lock is released; report it as a conflict so the
		// reviewer reloads.
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyApplicationConflict))
	case services.ErrReasonRequired:
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "reason"), nil)
	case services.ErrActorRequired:
		utils.UnauthorizedResponse(c, "")
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}

// POST /admin/applications/:id/initial-approve
func (h *AdmissionHandler) InitialApprove(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	actor, ok := h.actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req transitionRequest
	c.ShouldBindJSON(&req) // body is optional

	app, err := h.admissionService.InitialApprove(id, actor, req.Notes)
	if err != nil {
		h.respondTransitionError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationInitialApproved),
		"application": app,
	})
}

// POST /admin/applications/:id/approve
func (h *AdmissionHandler) Approve(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	actor, ok := h.actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req transitionRequest
	c.ShouldBindJSON(&req) // body is optional

	app, err := h.admissionService.Approve(id, actor, req.Notes)
	if err != nil {
		h.respondTransitionError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationApproved),
		"application": app,
	})
}

// POST /admin/applications/:id/reject
func (h *AdmissionHandler) Reject(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	actor, ok := h.actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	app, err := h.admissionService.Reject(id, actor, req.Reason, req.Notes)
	if err != nil {
		h.respondTransitionError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationRejected),
		"application": app,
	})
}

// GET /admin/applications/:id/documents/:document_type
//
// The slot name is checked against the whitelist before any storage access.
// Unknown slots, empty slots and unknown applications are indistinguishable.
func (h *AdmissionHandler) DownloadDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	doc, reference, err := h.applicationService.GetDocument(id, c.Param("document_type"))
	if err != nil {
		if err == services.ErrDocumentNotFound {
			utils.NotFoundResponse(c, i18n.KeyDocumentNotFound)
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	inline, _ := strconv.ParseBool(c.Query("preview"))
	url, err := h.storageService.PresignDownload(doc.StorageKey, doc.FileName, inline, 15*time.Minute)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	if actor, ok := h.actorID(c); ok {
		audit := models.AuditLog{
			UserID:       &actor,
			Action:       "document_download",
			ResourceType: "application",
			ResourceID:   &id,
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			Details: models.JSONB{
				"reference_number": reference,
				"document_type":    doc.DocumentType,
				"document_id":      doc.ID.String(),
				"preview":          inline,
			},
		}
		if err := h.db.Create(&audit).Error; err != nil {
			logrus.WithError(err).Warn("Failed to record document download audit entry")
		}
	}

	utils.SuccessResponse(c, gin.H{
		"url":        url,
		"file_name":  doc.FileName,
		"mime_type":  doc.MimeType,
		"expires_in": int((15 * time.Minute).Seconds()),
	})
}

// POST /admin/provisioning/retry
func (h *AdmissionHandler) RetryProvisioning(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	resolved, err := h.accountService.RetryPendingTasks()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyAdminActionSuccess),
		"resolved": resolved,
	})
}

type announcementRequest struct {
	Title     string `json:"title" validate:"required,max=255"`
	Body      string `json:"body" validate:"required,max=5000"`
	SendEmail bool   `json:"send_email"`
	ProgramID string `json:"program_id" validate:"omitempty,uuid"`
}

// POST /admin/announcements
func (h *AdmissionHandler) CreateAnnouncement(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actor, ok := h.actorID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req announcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	announcement := &models.Announcement{
		Title:     req.Title,
		Body:      req.Body,
		SendEmail: req.SendEmail,
		CreatedBy: actor,
	}
	if req.ProgramID != "" {
		programID, err := uuid.Parse(req.ProgramID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid program ID", nil)
			return
		}
		announcement.ProgramID = &programID
	}

	request, err := h.notificationService.EnqueueAnnouncement(announcement)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyAnnouncementCreated),
		"announcement": announcement,
		"broadcast":    request,
	})
}

// internal/handlers/wizard.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/unilearn/sis-backend/internal/config"
	"github.com/unilearn/sis-backend/internal/i18n"
	"github.com/unilearn/sis-backend/internal/models"
	"github.com/unilearn/sis-backend/internal/services"
	"github.com/unilearn/sis-backend/internal/utils"
)

const sessionCookieName = "admissions_session"

// WizardHandler serves the public five-step application flow. State lives in
// the draft store keyed by an anonymous session cookie; no authentication is
// involved until the tracking account is provisioned at submission.
type WizardHandler struct {
	wizardService      *services.WizardService
	applicationService *services.ApplicationService
	cfg                *config.Config
}

func NewWizardHandler(wizardService *services.WizardService, applicationService *services.ApplicationService, cfg *config.Config) *WizardHandler {
	return &WizardHandler{
		wizardService:      wizardService,
		applicationService: applicationService,
		cfg:                cfg,
	}
}

// sessionID returns the visitor's wizard session, issuing a cookie on first
// contact. Each call refreshes the cookie lifetime alongside the draft TTL.
func (h *WizardHandler) sessionID(c *gin.Context) string {
	id, err := c.Cookie(sessionCookieName)
	if err != nil || id == "" {
		id = uuid.New().String()
	}

	maxAge := h.cfg.Admissions.DraftTTL * 60
	secure := h.cfg.Environment == "production"
	c.SetCookie(sessionCookieName, id, maxAge, "/", "", secure, true)
	return id
}

func stepPath(step int) string {
	return fmt.Sprintf("/v1/admissions/apply/steps/%d", step)
}

// redirectToStart sends the browser back to step 1 with 303 See Other, the
// wizard's single recovery path for expired sessions and skipped steps.
func (h *WizardHandler) redirectToStart(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, stepPath(services.StepProgram))
}

func parseStep(c *gin.Context) (int, bool) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil || step < services.StepProgram || step > services.StepReview {
		return 0, false
	}
	return step, true
}

// GET /v1/admissions/apply/steps/:step
func (h *WizardHandler) ShowStep(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	step, ok := parseStep(c)
	if !ok {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyWizardInvalidStep), nil)
		return
	}

	sessionID := h.sessionID(c)
	allowed, err := h.wizardService.CanShow(c.Request.Context(), sessionID, step)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if !allowed {
		h.redirectToStart(c)
		return
	}

	draft, err := h.wizardService.GetDraft(c.Request.Context(), sessionID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"step":  step,
		"draft": draft,
	})
}

// POST /v1/admissions/apply/steps/:step
func (h *WizardHandler) StoreStep(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	step, ok := parseStep(c)
	if !ok {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyWizardInvalidStep), nil)
		return
	}

	sessionID := h.sessionID(c)
	ctx := c.Request.Context()

	// Posting out of order gets the same treatment as viewing out of order.
	allowed, err := h.wizardService.CanShow(ctx, sessionID, step)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if !allowed {
		h.redirectToStart(c)
		return
	}

	switch step {
	case services.StepProgram:
		var req services.ProgramStepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
		err = h.wizardService.StoreProgram(ctx, sessionID, &req)

	case services.StepPersonal:
		var req services.PersonalStepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
		err = h.wizardService.StorePersonal(ctx, sessionID, &req)

	case services.StepEducation:
		var req services.EducationStepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
		err = h.wizardService.StoreEducation(ctx, sessionID, &req)

	case services.StepWork:
		var req services.WorkStepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return
		}
		err = h.wizardService.StoreWork(ctx, sessionID, &req)

	case services.StepReview:
		// The review step collects nothing; submission is a separate endpoint.
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyWizardInvalidStep), nil)
		return
	}

	if err != nil {
		switch err {
		case services.ErrProgramNotFound:
			utils.NotFoundResponse(c, i18n.KeyProgramNotFound)
		case services.ErrProgramClosed:
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyWizardProgramClosed), nil)
		default:
			if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
				utils.ValidationErrorResponse(c, validationErrors)
				return
			}
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyWizardStepSaved),
		"next_step": step + 1,
	})
}

// POST /v1/admissions/apply/submit
func (h *WizardHandler) Submit(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	sessionID := h.sessionID(c)
	ctx := c.Request.Context()

	// Submission carries the review-step guard: a draft that never reached
	// step 5 goes back to the start.
	allowed, err := h.wizardService.CanShow(ctx, sessionID, services.StepReview)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if !allowed {
		h.redirectToStart(c)
		return
	}

	// Terms acceptance is checked at submission time and never persisted.
	accepted, _ := strconv.ParseBool(c.PostForm("accept_terms"))
	if !accepted {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "accept_terms"), nil)
		return
	}

	var uploads []services.DocumentUpload
	for _, slot := range models.DocumentTypes {
		header, err := c.FormFile(string(slot))
		if err != nil {
			continue
		}
		file, err := header.Open()
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, string(slot)), nil)
			return
		}
		defer file.Close()

		uploads = append(uploads, services.DocumentUpload{
			Slot:   slot,
			File:   file,
			Header: header,
		})
	}

	result, err := h.applicationService.Submit(ctx, sessionID, uploads)
	if err != nil {
		if err == services.ErrDraftIncomplete {
			h.redirectToStart(c)
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	app := result.Application
	utils.CreatedResponse(c, gin.H{
		"message":          i18n.T(lang, i18n.KeyApplicationSubmitted, app.ReferenceNumber),
		"reference_number": app.ReferenceNumber,
		"status":           app.Status,
		"account_pending":  result.Degraded,
	})
}

// GET /v1/admissions/confirmation/:reference
func (h *WizardHandler) Confirmation(c *gin.Context) {
	reference := c.Param("reference")

	app, err := h.applicationService.GetByReference(reference)
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyApplicationNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"reference_number": app.ReferenceNumber,
		"status":           app.Status,
		"program":          app.Program.Name,
		"submitted_at":     app.CreatedAt,
		"documents":        app.Documents,
	})
}

// GET /v1/programs
func (h *WizardHandler) ListPrograms(c *gin.Context) {
	programs, err := h.applicationService.ListPrograms(true)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"programs": programs,
	})
}

type statusLookupRequest struct {
	Email           string `json:"email" validate:"required,email"`
	ReferenceNumber string `json:"reference_number" validate:"required"`
}

// POST /v1/admissions/status
func (h *WizardHandler) StatusLookup(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req statusLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.applicationService.StatusLookup(req.Email, req.ReferenceNumber, c.ClientIP())
	if err != nil {
		if err == services.ErrLookupNotFound {
			utils.NotFoundResponse(c, i18n.KeyStatusLookupNotFound)
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, result)
}

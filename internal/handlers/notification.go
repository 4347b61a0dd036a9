// internal/handlers/notification.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/unilearn/sis-backend/internal/i18n"
	"github.com/unilearn/sis-backend/internal/models"
	"github.com/unilearn/sis-backend/internal/utils"
)

// NotificationHandler serves the authenticated in-app feed and the email
// preference toggles.
type NotificationHandler struct {
	db *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// GET /me/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	query := h.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if c.Query("unread") == "true" {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	var notifications []models.Notification
	err := utils.ApplyPagination(query.Order("created_at DESC"), params).
		Find(&notifications).Error
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(notifications, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /me/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid notification ID", nil)
		return
	}

	now := time.Now()
	result := h.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", now)
	if result.Error != nil {
		utils.InternalErrorResponse(c, result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFoundResponse(c, i18n.KeyNotificationNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"read_at": now,
	})
}

// GET /me/notification-preferences
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var prefs []models.NotificationPreference
	if err := h.db.Where("user_id = ?", userID).Find(&prefs).Error; err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"preferences": prefs,
	})
}

type preferenceUpdate struct {
	PreferenceKey string `json:"preference_key" validate:"required,max=50"`
	EmailEnabled  bool   `json:"email_enabled"`
}

type updatePreferencesRequest struct {
	Preferences []preferenceUpdate `json:"preferences" validate:"required,min=1,dive"`
}

// PUT /me/notification-preferences
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req updatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	for _, update := range req.Preferences {
		pref := models.NotificationPreference{
			UserID:        userID,
			PreferenceKey: update.PreferenceKey,
			EmailEnabled:  update.EmailEnabled,
		}
		err := h.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "preference_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"email_enabled", "updated_at"}),
		}).Create(&pref).Error
		if err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPreferencesUpdated),
	})
}

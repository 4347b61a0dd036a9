// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/unilearn/sis-backend/internal/config"
	"github.com/unilearn/sis-backend/internal/handlers"
	"github.com/unilearn/sis-backend/internal/middleware"
	"github.com/unilearn/sis-backend/internal/services"
	"github.com/unilearn/sis-backend/internal/session"
	"github.com/unilearn/sis-backend/internal/utils"
)

func Initialize(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *gin.Engine {
	// Wizard drafts live in Redis; fall back to process memory when Redis is
	// not configured (local development).
	var draftStore session.DraftStore
	if redisClient != nil {
		draftStore = session.NewRedisStore(redisClient, time.Duration(cfg.Admissions.DraftTTL)*time.Minute)
	} else {
		draftStore = session.NewMemoryStore()
	}

	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	storageService, _ := services.NewStorageService(cfg)
	referenceGenerator := services.NewReferenceGenerator(cfg.Admissions.ReferencePrefix)
	accountService := services.NewAccountService(db, cfg, notificationService)

	authService := services.NewAuthService(db, cfg)
	wizardService := services.NewWizardService(db, draftStore)
	applicationService := services.NewApplicationService(db, draftStore, referenceGenerator, storageService, accountService)
	admissionService := services.NewAdmissionService(db, accountService, notificationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	wizardHandler := handlers.NewWizardHandler(wizardService, applicationService, cfg)
	admissionHandler := handlers.NewAdmissionHandler(applicationService, admissionService, accountService, notificationService, storageService, db)
	notificationHandler := handlers.NewNotificationHandler(db)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/change-password", middleware.AuthRequired(), authHandler.ChangePassword)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Public program catalog
		v1.GET("/programs", wizardHandler.ListPrograms)

		// Public admissions flow. Auth is optional so a signed-in
		// applicant's status checks carry an actor in the audit trail.
		admissions := v1.Group("/admissions")
		admissions.Use(middleware.OptionalAuth())
		{
			apply := admissions.Group("/apply")
			{
				apply.GET("/steps/:step", wizardHandler.ShowStep)
				apply.POST("/steps/:step", wizardHandler.StoreStep)
				apply.POST("/submit", middleware.SubmitRateLimit(), wizardHandler.Submit)
			}

			admissions.GET("/confirmation/:reference", wizardHandler.Confirmation)
			admissions.POST("/status", middleware.LookupRateLimit(), wizardHandler.StatusLookup)
		}

		// Authenticated applicant/student routes
		me := v1.Group("/me")
		me.Use(middleware.AuthRequired())
		{
			me.GET("/notifications", notificationHandler.ListNotifications)
			me.POST("/notifications/:id/read", notificationHandler.MarkRead)
			me.GET("/notification-preferences", notificationHandler.GetPreferences)
			me.PUT("/notification-preferences", notificationHandler.UpdatePreferences)
		}

		// Staff review routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.StaffRequired())
		{
			admin.GET("/dashboard", admissionHandler.Dashboard)

			applications := admin.Group("/applications")
			{
				applications.GET("", admissionHandler.ListApplications)
				applications.GET("/:id", admissionHandler.GetApplication)
				applications.POST("/:id/initial-approve", admissionHandler.InitialApprove)
				applications.POST("/:id/approve", admissionHandler.Approve)
				applications.POST("/:id/reject", admissionHandler.Reject)
				applications.GET("/:id/documents/:document_type", admissionHandler.DownloadDocument)
			}

			admin.POST("/announcements", admissionHandler.CreateAnnouncement)
			admin.POST("/provisioning/retry", middleware.AdminRequired(), admissionHandler.RetryProvisioning)
		}
	}

	return r
}

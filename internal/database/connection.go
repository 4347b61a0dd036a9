// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/unilearn/sis-backend/internal/config"
	"github.com/unilearn/sis-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// gen_random_uuid() needs pgcrypto on PostgreSQL < 13
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Program{},
		&models.Application{},
		&models.ApplicationDocument{},
		&models.Enrollment{},
		&models.ProvisioningTask{},
		&models.Notification{},
		&models.NotificationPreference{},
		&models.Announcement{},
		&models.BroadcastRequest{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Application indexes. The status-lookup pair matches the public
		// status check's exact-match query.
		"CREATE INDEX IF NOT EXISTS idx_applications_lookup ON applications(reference_number, email)",
		"CREATE INDEX IF NOT EXISTS idx_applications_status_created ON applications(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_applications_program_status ON applications(program_id, status)",

		// Notification indexes
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Email:     "admissions@unilearn.edu",
			FirstName: "Admissions",
			LastName:  "Office",
			UserType:  models.UserTypeAdmin,
			Status:    models.UserStatusActive,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	// Create default programs
	defaultPrograms := []models.Program{
		{
			Code:           "MBA-GEN",
			Name:           "Master of Business Administration",
			Description:    "Two-year general management program",
			DurationMonths: 24,
			RequiredDocuments: pq.StringArray{
				string(models.DocumentTypeDegreeCertificate),
				string(models.DocumentTypeTranscripts),
				string(models.DocumentTypeCV),
			},
			IsOpen: true,
		},
		{
			Code:           "MSC-CS",
			Name:           "MSc Computer Science",
			Description:    "Graduate program in computer science",
			DurationMonths: 18,
			RequiredDocuments: pq.StringArray{
				string(models.DocumentTypeDegreeCertificate),
				string(models.DocumentTypeTranscripts),
				string(models.DocumentTypeEnglishTest),
			},
			IsOpen: true,
		},
		{
			Code:           "BBA",
			Name:           "Bachelor of Business Administration",
			Description:    "Undergraduate business program",
			DurationMonths: 36,
			RequiredDocuments: pq.StringArray{
				string(models.DocumentTypeTranscripts),
			},
			IsOpen: true,
		},
	}

	for _, program := range defaultPrograms {
		var count int64
		db.Model(&models.Program{}).Where("code = ?", program.Code).Count(&count)

		if count == 0 {
			if err := db.Create(&program).Error; err != nil {
				log.Printf("Warning: Failed to create program %s: %v", program.Code, err)
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

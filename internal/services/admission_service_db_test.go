// internal/services/admission_service_db_test.go
package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/unilearn/sis-backend/internal/config"
	"github.com/unilearn/sis-backend/internal/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func applicationRows(id uuid.UUID, reference string, status models.ApplicationStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "reference_number", "email", "status"}).
		AddRow(id.String(), reference, "ada@example.edu", string(status))
}

func TestTransitionLocksRowAndSetsScreeningFields(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAdmissionService(db, nil, nil)

	id := uuid.New()
	actor := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "applications" .*FOR UPDATE`).
		WillReturnRows(applicationRows(id, "APP-2026-ABCDEF", models.ApplicationStatusPending))
	mock.ExpectExec(`UPDATE "applications" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	app, err := svc.InitialApprove(id, actor, "documents complete")
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationStatusInitialApproved, app.Status)
	require.NotNil(t, app.InitialApprovedAt)
	require.NotNil(t, app.InitialApprovedBy)
	assert.Equal(t, actor, *app.InitialApprovedBy)
	assert.Equal(t, "documents complete", app.AdminNotes)

	// The screening transition must not touch the final-review fields.
	assert.Nil(t, app.ReviewedAt)
	assert.Nil(t, app.ReviewedBy)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionInvalidSourceRollsBackWithoutUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAdmissionService(db, nil, nil)

	// The in-lock re-check sees a terminal state, as the loser of a
	// concurrent-reviewer race would. No UPDATE may be issued.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "applications" .*FOR UPDATE`).
		WillReturnRows(applicationRows(uuid.New(), "APP-2026-ABCDEF", models.ApplicationStatusApproved))
	mock.ExpectRollback()

	_, err := svc.InitialApprove(uuid.New(), uuid.New(), "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionUnknownApplication(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAdmissionService(db, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "applications" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.InitialApprove(uuid.New(), uuid.New(), "")
	assert.ErrorIs(t, err, ErrApplicationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectRequiresReason(t *testing.T) {
	svc := NewAdmissionService(nil, nil, nil)

	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := svc.Reject(uuid.New(), uuid.New(), reason, "notes")
		assert.ErrorIs(t, err, ErrReasonRequired, "reason %q", reason)
	}
}

func TestRejectPersistsReviewFields(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAdmissionService(db, nil, NewNotificationService(db, &config.Config{}))

	id := uuid.New()
	actor := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "applications" .*FOR UPDATE`).
		WillReturnRows(applicationRows(id, "APP-2026-ABCDEF", models.ApplicationStatusInitialApproved))
	mock.ExpectExec(`UPDATE "applications" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	app, err := svc.Reject(id, actor, "incomplete transcripts", "")
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationStatusRejected, app.Status)
	assert.Equal(t, "incomplete transcripts", app.RejectionReason)
	require.NotNil(t, app.ReviewedAt)
	require.NotNil(t, app.ReviewedBy)
	assert.Equal(t, actor, *app.ReviewedBy)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActorRequiredBeforeAnyQuery(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAdmissionService(db, nil, nil)

	_, err := svc.InitialApprove(uuid.New(), uuid.Nil, "")
	assert.ErrorIs(t, err, ErrActorRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

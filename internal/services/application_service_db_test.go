// internal/services/application_service_db_test.go
package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unilearn/sis-backend/internal/models"
)

func TestStatusLookupMatchesBothFields(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewApplicationService(db, nil, nil, nil, nil)

	appID := uuid.New()
	programID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "applications" WHERE reference_number = .* AND email = `).
		WithArgs("APP-2026-ABCDEF", "ada@example.edu", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference_number", "email", "status", "program_id"}).
			AddRow(appID.String(), "APP-2026-ABCDEF", "ada@example.edu", "pending", programID.String()))
	mock.ExpectQuery(`SELECT .* FROM "programs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(programID.String(), "MSc Computer Science"))

	// Successful lookups leave an audit row carrying the reference and status.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	result, err := svc.StatusLookup("ada@example.edu", "APP-2026-ABCDEF", "203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, "APP-2026-ABCDEF", result.ReferenceNumber)
	assert.Equal(t, "MSc Computer Science", result.ProgramName)
	assert.Equal(t, models.ApplicationStatusPending, result.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusLookupAnyMismatchYieldsSameNotFound(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		reference string
	}{
		{"right email wrong reference", "ada@example.edu", "APP-2026-WRONGX"},
		{"wrong email right reference", "mallory@example.edu", "APP-2026-ABCDEF"},
		{"both wrong", "mallory@example.edu", "APP-2026-WRONGX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			svc := NewApplicationService(db, nil, nil, nil, nil)

			mock.ExpectQuery(`SELECT .* FROM "applications" WHERE reference_number = .* AND email = `).
				WithArgs(tt.reference, tt.email, 1).
				WillReturnRows(sqlmock.NewRows([]string{"id"}))

			_, err := svc.StatusLookup(tt.email, tt.reference, "203.0.113.9")
			assert.ErrorIs(t, err, ErrLookupNotFound)

			// A miss must not write an audit row or any other statement.
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetDocumentUnknownSlotTouchesNothing(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewApplicationService(db, nil, nil, nil, nil)

	for _, slot := range []string{"malicious_path", "../../etc/passwd", "CV", ""} {
		_, _, err := svc.GetDocument(uuid.New(), slot)
		assert.ErrorIs(t, err, ErrDocumentNotFound, "slot %q", slot)
	}

	// The whitelist rejects the slot before any query is issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocumentEmptySlotIndistinguishable(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewApplicationService(db, nil, nil, nil, nil)

	appID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "applications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference_number"}).
			AddRow(appID.String(), "APP-2026-ABCDEF"))
	mock.ExpectQuery(`SELECT .* FROM "application_documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err := svc.GetDocument(appID, string(models.DocumentTypeCV))
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocumentUnknownApplication(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewApplicationService(db, nil, nil, nil, nil)

	mock.ExpectQuery(`SELECT .* FROM "applications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err := svc.GetDocument(uuid.New(), string(models.DocumentTypeCV))
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocumentResolvesSlotAndReference(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewApplicationService(db, nil, nil, nil, nil)

	appID := uuid.New()
	docID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "applications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference_number"}).
			AddRow(appID.String(), "APP-2026-ABCDEF"))
	mock.ExpectQuery(`SELECT .* FROM "application_documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "document_type", "storage_key", "file_name"}).
			AddRow(docID.String(), appID.String(), "cv", "applications/APP-2026-ABCDEF/cv.pdf", "cv.pdf"))

	doc, reference, err := svc.GetDocument(appID, string(models.DocumentTypeCV))
	require.NoError(t, err)

	assert.Equal(t, "APP-2026-ABCDEF", reference)
	assert.Equal(t, models.DocumentTypeCV, doc.DocumentType)
	assert.Equal(t, "applications/APP-2026-ABCDEF/cv.pdf", doc.StorageKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

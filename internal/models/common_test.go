// internal/models/common_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentTypeValid(t *testing.T) {
	for _, dt := range DocumentTypes {
		assert.True(t, dt.Valid(), string(dt))
	}

	invalid := []DocumentType{
		"",
		"passport",
		"CV", // case matters
		"../../etc/passwd",
		"cv.pdf",
		"degree_certificate ",
	}
	for _, dt := range invalid {
		assert.False(t, dt.Valid(), string(dt))
	}
}

func TestDocumentTypesAreExactlyFourSlots(t *testing.T) {
	assert.Len(t, DocumentTypes, 4)
	assert.Contains(t, DocumentTypes, DocumentTypeDegreeCertificate)
	assert.Contains(t, DocumentTypes, DocumentTypeTranscripts)
	assert.Contains(t, DocumentTypes, DocumentTypeCV)
	assert.Contains(t, DocumentTypes, DocumentTypeEnglishTest)
}

func TestApplicationStatusIsTerminal(t *testing.T) {
	assert.False(t, ApplicationStatusPending.IsTerminal())
	assert.False(t, ApplicationStatusInitialApproved.IsTerminal())
	assert.True(t, ApplicationStatusApproved.IsTerminal())
	assert.True(t, ApplicationStatusRejected.IsTerminal())
}

func TestJSONBRoundTrip(t *testing.T) {
	original := JSONB{"scope": "program", "program_id": "abc"}

	value, err := original.Value()
	assert.NoError(t, err)

	var restored JSONB
	assert.NoError(t, restored.Scan(value))
	assert.Equal(t, "program", restored["scope"])
	assert.Equal(t, "abc", restored["program_id"])
}

func TestJSONBNil(t *testing.T) {
	var j JSONB

	value, err := j.Value()
	assert.NoError(t, err)
	assert.Nil(t, value)

	var restored JSONB
	assert.NoError(t, restored.Scan(nil))
	assert.Nil(t, restored)
}

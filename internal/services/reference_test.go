// internal/services/reference_test.go
package services

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceFormat(t *testing.T) {
	gen := NewReferenceGenerator("APP")

	pattern := regexp.MustCompile(`^APP-\d{4}-[ABCDEFGHJKMNPQRSTUVWXYZ23456789]{6}$`)
	for i := 0; i < 100; i++ {
		ref, err := gen.Generate()
		require.NoError(t, err)
		assert.Regexp(t, pattern, ref)
	}
}

func TestReferenceCarriesCurrentYear(t *testing.T) {
	gen := NewReferenceGenerator("APP")

	ref, err := gen.Generate()
	require.NoError(t, err)
	assert.Contains(t, ref, fmt.Sprintf("-%d-", time.Now().Year()))
}

func TestReferenceDefaultPrefix(t *testing.T) {
	gen := NewReferenceGenerator("")

	ref, err := gen.Generate()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "APP-"))
}

func TestReferenceExcludesAmbiguousCharacters(t *testing.T) {
	gen := NewReferenceGenerator("APP")

	for i := 0; i < 200; i++ {
		ref, err := gen.Generate()
		require.NoError(t, err)

		suffix := ref[strings.LastIndex(ref, "-")+1:]
		for _, ambiguous := range []string{"0", "O", "1", "I", "L"} {
			assert.NotContains(t, suffix, ambiguous)
		}
	}
}

func TestReferenceUniquenessAcrossBatch(t *testing.T) {
	gen := NewReferenceGenerator("APP")

	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		ref, err := gen.Generate()
		require.NoError(t, err)
		assert.False(t, seen[ref], "duplicate reference %s after %d generations", ref, i)
		seen[ref] = true
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("ERROR: duplicate key value violates unique constraint \"idx_applications_reference_number\" (SQLSTATE 23505)")))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(fmt.Errorf("plain error")))
	assert.False(t, IsUniqueViolation(nil))
}

// internal/services/reference.go
package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Suffix alphabet excludes 0/O, 1/I/L and similar pairs so reference numbers
// survive being read over the phone and typed back in.
const referenceAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const referenceSuffixLength = 6

// ReferenceGenerator produces applicant-facing reference numbers of the form
// APP-2026-X7KQ9M. They are URL- and filename-safe, serve as the public
// lookup key and the document storage namespace, and are never reassigned
// once issued. Uniqueness is enforced by the database unique index; callers
// regenerate on an insert-time collision.
type ReferenceGenerator struct {
	prefix string
}

func NewReferenceGenerator(prefix string) *ReferenceGenerator {
	if prefix == "" {
		prefix = "APP"
	}
	return &ReferenceGenerator{prefix: prefix}
}

func (g *ReferenceGenerator) Generate() (string, error) {
	suffix := make([]byte, referenceSuffixLength)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate reference number: %w", err)
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}

	return fmt.Sprintf("%s-%d-%s", g.prefix, time.Now().Year(), string(suffix)), nil
}

// IsUniqueViolation reports whether err is a PostgreSQL duplicate-key error
// (SQLSTATE 23505), the signal to regenerate and retry rather than fail the
// submission. The error shape depends on the driver in use, so the SQLSTATE
// is also matched in the message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key value violates unique constraint")
}

// internal/services/admission_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unilearn/sis-backend/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.ApplicationStatus
		op      TransitionOp
		allowed bool
	}{
		{"pending can be initially approved", models.ApplicationStatusPending, OpInitialApprove, true},
		{"pending can be rejected", models.ApplicationStatusPending, OpReject, true},
		{"pending cannot skip to approved", models.ApplicationStatusPending, OpApprove, false},

		{"initial approved can be approved", models.ApplicationStatusInitialApproved, OpApprove, true},
		{"initial approved can be rejected", models.ApplicationStatusInitialApproved, OpReject, true},
		{"initial approved cannot repeat screening", models.ApplicationStatusInitialApproved, OpInitialApprove, false},

		{"approved accepts nothing", models.ApplicationStatusApproved, OpInitialApprove, false},
		{"approved cannot be approved again", models.ApplicationStatusApproved, OpApprove, false},
		{"approved cannot be rejected", models.ApplicationStatusApproved, OpReject, false},

		{"rejected accepts nothing", models.ApplicationStatusRejected, OpInitialApprove, false},
		{"rejected cannot be approved", models.ApplicationStatusRejected, OpApprove, false},
		{"rejected cannot be rejected again", models.ApplicationStatusRejected, OpReject, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.op))
		})
	}
}

func TestTransitionTargets(t *testing.T) {
	assert.Equal(t, models.ApplicationStatusInitialApproved, transitionTargets[OpInitialApprove])
	assert.Equal(t, models.ApplicationStatusApproved, transitionTargets[OpApprove])
	assert.Equal(t, models.ApplicationStatusRejected, transitionTargets[OpReject])
}

func TestTerminalStatesAcceptNoOperation(t *testing.T) {
	for _, status := range []models.ApplicationStatus{
		models.ApplicationStatusApproved,
		models.ApplicationStatusRejected,
	} {
		assert.True(t, status.IsTerminal())
		for _, op := range []TransitionOp{OpInitialApprove, OpApprove, OpReject} {
			assert.False(t, CanTransition(status, op), "%s must not allow %s", status, op)
		}
	}
}

func TestAppendNotes(t *testing.T) {
	app := &models.Application{}

	appendNotes(app, "")
	assert.Empty(t, app.AdminNotes)

	appendNotes(app, "first review")
	assert.Equal(t, "first review", app.AdminNotes)

	appendNotes(app, "second review")
	assert.Equal(t, "first review\nsecond review", app.AdminNotes)
}

// internal/services/wizard_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unilearn/sis-backend/internal/session"
)

func TestMeetsPrecondition(t *testing.T) {
	empty := session.Draft{}
	afterStep1 := session.Draft{"program_id": "some-uuid"}
	afterStep2 := session.Draft{"program_id": "some-uuid", "email": "a@b.edu"}
	afterStep3 := session.Draft{"program_id": "some-uuid", "email": "a@b.edu", "education_level": "bachelor"}
	afterStep4 := session.Draft{
		"program_id": "some-uuid", "email": "a@b.edu",
		"education_level": "bachelor", "has_work_experience": false,
	}

	// Step 1 is always reachable.
	assert.True(t, MeetsPrecondition(StepProgram, empty))

	// Each later step requires the marker its predecessor writes.
	assert.False(t, MeetsPrecondition(StepPersonal, empty))
	assert.True(t, MeetsPrecondition(StepPersonal, afterStep1))

	assert.False(t, MeetsPrecondition(StepEducation, afterStep1))
	assert.True(t, MeetsPrecondition(StepEducation, afterStep2))

	assert.False(t, MeetsPrecondition(StepWork, afterStep2))
	assert.True(t, MeetsPrecondition(StepWork, afterStep3))

	assert.False(t, MeetsPrecondition(StepReview, afterStep3))
	assert.True(t, MeetsPrecondition(StepReview, afterStep4))
}

func TestMeetsPreconditionFalseValueStillCounts(t *testing.T) {
	// "has_work_experience": false is a completed step 4, not a missing one.
	draft := session.Draft{"has_work_experience": false}
	assert.True(t, MeetsPrecondition(StepReview, draft))
}

func TestStepPreconditionKey(t *testing.T) {
	key, ok := StepPreconditionKey(StepPersonal)
	assert.True(t, ok)
	assert.Equal(t, "program_id", key)

	_, ok = StepPreconditionKey(StepProgram)
	assert.False(t, ok)
}

func TestStorePersonalDiscardsConfirmEmail(t *testing.T) {
	store := session.NewMemoryStore()
	svc := NewWizardService(nil, store)
	ctx := context.Background()

	req := &PersonalStepRequest{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.edu",
		ConfirmEmail: "ada@example.edu",
		Phone:        "+44 20 7946 0958",
	}
	require.NoError(t, svc.StorePersonal(ctx, "sess-1", req))

	draft, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)

	assert.Equal(t, "ada@example.edu", draft.GetString("email"))
	assert.Equal(t, "Ada", draft.GetString("first_name"))
	assert.False(t, draft.Has("confirm_email"))
}

func TestStorePersonalRejectsMismatchedConfirmation(t *testing.T) {
	store := session.NewMemoryStore()
	svc := NewWizardService(nil, store)
	ctx := context.Background()

	req := &PersonalStepRequest{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.edu",
		ConfirmEmail: "different@example.edu",
	}
	err := svc.StorePersonal(ctx, "sess-1", req)
	require.Error(t, err)

	// Nothing must be merged on validation failure.
	draft, getErr := store.Get(ctx, "sess-1")
	require.NoError(t, getErr)
	assert.Empty(t, draft)
}

func TestStoreWorkRecordsExplicitFalse(t *testing.T) {
	store := session.NewMemoryStore()
	svc := NewWizardService(nil, store)
	ctx := context.Background()

	hasExperience := false
	req := &WorkStepRequest{HasWorkExperience: &hasExperience}
	require.NoError(t, svc.StoreWork(ctx, "sess-1", req))

	draft, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, draft.Has("has_work_experience"))
	assert.False(t, draft.GetBool("has_work_experience"))
}

func TestStoreWorkRequiresAnswer(t *testing.T) {
	store := session.NewMemoryStore()
	svc := NewWizardService(nil, store)

	err := svc.StoreWork(context.Background(), "sess-1", &WorkStepRequest{})
	assert.Error(t, err)
}

func TestStoreEducationMergesIntoExistingDraft(t *testing.T) {
	store := session.NewMemoryStore()
	svc := NewWizardService(nil, store)
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "sess-1", map[string]interface{}{
		"program_id": "some-uuid",
		"email":      "ada@example.edu",
	}))

	req := &EducationStepRequest{
		EducationLevel: "bachelor",
		Institution:    "University of London",
		GraduationYear: 2021,
	}
	require.NoError(t, svc.StoreEducation(ctx, "sess-1", req))

	draft, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.edu", draft.GetString("email"))
	assert.Equal(t, "bachelor", draft.GetString("education_level"))
	assert.Equal(t, 2021, draft.GetInt("graduation_year"))
}

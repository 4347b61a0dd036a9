// internal/session/store_test.go
package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetUnknownSessionReturnsEmptyDraft(t *testing.T) {
	store := NewMemoryStore()

	draft, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, draft)
}

func TestMemoryStoreMergeIsAdditive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "s1", map[string]interface{}{"a": 1}))
	require.NoError(t, store.Merge(ctx, "s1", map[string]interface{}{"b": 2}))
	require.NoError(t, store.Merge(ctx, "s1", map[string]interface{}{"a": 3}))

	draft, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, draft.GetInt("a"))
	assert.Equal(t, 2, draft.GetInt("b"))
}

func TestMemoryStoreSessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "s1", map[string]interface{}{"email": "a@b.edu"}))

	other, err := store.Get(ctx, "s2")
	require.NoError(t, err)
	assert.False(t, other.Has("email"))
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "s1", map[string]interface{}{"a": 1}))
	require.NoError(t, store.Clear(ctx, "s1"))

	draft, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, draft)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "s1", map[string]interface{}{"a": 1}))

	draft, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	draft["a"] = 99

	fresh, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.GetInt("a"))
}

func TestDraftHas(t *testing.T) {
	draft := Draft{"set": "x", "falsy": false, "nil": nil}

	assert.True(t, draft.Has("set"))
	assert.True(t, draft.Has("falsy"))
	assert.False(t, draft.Has("nil"))
	assert.False(t, draft.Has("missing"))
}

func TestDraftGetIntHandlesJSONNumbers(t *testing.T) {
	// Redis round-trips through JSON, so numbers come back as float64.
	var draft Draft
	require.NoError(t, json.Unmarshal([]byte(`{"graduation_year": 2021}`), &draft))

	assert.Equal(t, 2021, draft.GetInt("graduation_year"))
}

func TestDraftGetterDefaults(t *testing.T) {
	draft := Draft{}

	assert.Equal(t, "", draft.GetString("missing"))
	assert.False(t, draft.GetBool("missing"))
	assert.Equal(t, 0, draft.GetInt("missing"))
}

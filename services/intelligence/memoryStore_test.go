package ai

import (
	"context"
	"testing"
	"time"

	"harold/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore(now *time.Time) *MemoryContextStore {
	store := NewMemoryContextStore(30 * time.Minute)
	store.now = func() time.Time { return *now }
	return store
}

func TestMemoryContextStore_IdleConversationExpires(t *testing.T) {
	ctx := context.Background()
	now := testToday
	store := newTestMemoryStore(&now)

	require.NoError(t, store.SaveState(ctx, "c1", models.ConversationState{Intent: models.IntentBooking, Step: 1}))
	require.NoError(t, store.SaveEntities(ctx, "c1", models.BookingEntities{CheckInDate: "2025-06-10"}))
	require.NoError(t, store.AppendHistory(ctx, "c1", models.ChatMessage{Role: models.RoleUser, Content: "hi"}))

	now = now.Add(29 * time.Minute)
	st, err := store.LoadState(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, st, "still inside the ttl")

	now = now.Add(time.Minute)
	st, err = store.LoadState(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, st)
	e, err := store.LoadEntities(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, e.Empty())
	h, err := store.History(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestMemoryContextStore_WritesRefreshTTL(t *testing.T) {
	ctx := context.Background()
	now := testToday
	store := newTestMemoryStore(&now)

	require.NoError(t, store.SaveState(ctx, "c1", models.ConversationState{Intent: models.IntentBooking}))
	now = now.Add(20 * time.Minute)
	require.NoError(t, store.SaveEntities(ctx, "c1", models.BookingEntities{CheckInDate: "2025-06-10"}))
	now = now.Add(20 * time.Minute)

	st, err := store.LoadState(ctx, "c1")
	require.NoError(t, err)
	assert.NotNil(t, st)
}

func TestMemoryContextStore_SweepForgetsIdleConversationsAndLocks(t *testing.T) {
	ctx := context.Background()
	now := testToday
	store := newTestMemoryStore(&now)

	for _, id := range []string{"a", "b", "c"} {
		unlock, err := store.Lock(ctx, id)
		require.NoError(t, err)
		require.NoError(t, store.AppendHistory(ctx, id, models.ChatMessage{Role: models.RoleUser, Content: "hi"}))
		unlock()
	}
	held, err := store.Lock(ctx, "busy")
	require.NoError(t, err)
	require.Equal(t, 4, store.Len())

	now = now.Add(time.Hour)
	require.NoError(t, store.AppendHistory(ctx, "fresh", models.ChatMessage{Role: models.RoleUser, Content: "hi"}))

	assert.Equal(t, 1, store.Len())
	store.mu.Lock()
	_, freedKept := store.locks["a"]
	_, heldKept := store.locks["busy"]
	store.mu.Unlock()
	assert.False(t, freedKept)
	assert.True(t, heldKept, "a held lock survives the sweep")

	store.lockWait = 10 * time.Millisecond
	_, err = store.Lock(ctx, "busy")
	assert.ErrorIs(t, err, ErrConversationBusy)
	held()
}

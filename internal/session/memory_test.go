package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_PutGetDelete(t *testing.T) {
	store := NewInMemoryStore(0)
	ctx := context.Background()
	sess := &Session{ID: "abc", Type: "oauth2"}

	require.NoError(t, store.Put(ctx, sess, time.Hour))
	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "oauth2", got.Type)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_ExpiresAfterTTL(t *testing.T) {
	store := NewInMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &Session{ID: "short"}, time.Millisecond))

	time.Sleep(10 * time.Millisecond)
	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_EvictsOldestOverCapacity(t *testing.T) {
	store := NewInMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Session{ID: "a"}, time.Minute))
	require.NoError(t, store.Put(ctx, &Session{ID: "b"}, 2*time.Minute))
	require.NoError(t, store.Put(ctx, &Session{ID: "c"}, 3*time.Minute))

	_, errA := store.Get(ctx, "a")
	assert.ErrorIs(t, errA, ErrNotFound, "oldest-expiring entry should have been evicted")

	_, errB := store.Get(ctx, "b")
	assert.NoError(t, errB)
	_, errC := store.Get(ctx, "c")
	assert.NoError(t, errC)
}

func TestInMemoryStore_PutOverwritesExisting(t *testing.T) {
	store := NewInMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &Session{ID: "abc", Type: "v1"}, time.Hour))
	require.NoError(t, store.Put(ctx, &Session{ID: "abc", Type: "v2"}, time.Hour))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Type)
}

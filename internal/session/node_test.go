package session

import (
	"context"
	"testing"
	"time"

	"github.com/corehttpd/corehttpd/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_ProcessAsync_AttachesSessionAndContinues(t *testing.T) {
	store := NewInMemoryStore(0)
	require.NoError(t, store.Put(context.Background(), &Session{ID: "tok-1", Type: "oauth2"}, time.Hour))

	node := NewNode(NewAdapter(store, time.Hour))
	e := newEntity()
	e.Request.Headers.Set("Authorization", "Bearer tok-1")

	args, err := node.ProcessAsync(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, event.Continue, args.Kind)
	assert.Equal(t, "oauth2", e.Session.(*Session).Type)
}

func TestNode_ProcessAsync_NoSessionStillContinues(t *testing.T) {
	node := NewNode(NewAdapter(NewInMemoryStore(0), time.Hour))
	e := newEntity()
	args, err := node.ProcessAsync(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, event.Continue, args.Kind)
	assert.Nil(t, e.Session)
}

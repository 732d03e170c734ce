package audit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	before := time.Now().UTC()
	event := NewEvent(ActionVHostBlacklist, ActorSystem, ResultDeny)
	after := time.Now().UTC()

	assert.Equal(t, ActionVHostBlacklist, event.Action)
	assert.Equal(t, ActorSystem, event.Actor)
	assert.Equal(t, ResultDeny, event.Result)
	assert.NotNil(t, event.Details)
	assert.True(t, !event.Timestamp.Before(before) && !event.Timestamp.After(after))
	assert.Equal(t, time.UTC, event.Timestamp.Location())
}

func TestEvent_ChainedSetters(t *testing.T) {
	event := NewEvent(ActionPluginFault, ActorSystem, ResultFault).
		WithVHost("example.com").
		WithRequestID("req-1").
		WithClientIP("10.0.0.1").
		WithReason("loader returned nil symbol").
		WithAuthHeader("Authorization", "Bearer abcdef0123456789").
		WithError(errors.New("boom"))

	assert.Equal(t, "example.com", event.VHost)
	assert.Equal(t, "req-1", event.RequestID)
	assert.Equal(t, "10.0.0.1", event.ClientIP)
	assert.Equal(t, "loader returned nil symbol", event.Details["reason"])
	assert.Equal(t, "boom", event.Details["error"])
	assert.NotEqual(t, "Bearer abcdef0123456789", event.Details["Authorization"])
}

func TestEvent_WithDetailInitializesMap(t *testing.T) {
	event := &Event{Action: ActionPluginLoad, Actor: ActorSystem, Result: ResultAllow}
	event.WithDetail("k", "v")
	assert.Equal(t, "v", event.Details["k"])
}

func TestEvent_WithErrorNil(t *testing.T) {
	event := NewEvent(ActionPluginLoad, ActorSystem, ResultAllow)
	event.WithError(nil)
	_, exists := event.Details["error"]
	assert.False(t, exists)
}

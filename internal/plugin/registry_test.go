package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corehttpd/corehttpd/internal/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LoadUnitPublishesEndpointsToGroups(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	impl := &fakeImpl{name: "echo", endpoints: []Endpoint{echoEndpoint("/echo")}}
	l := NewManualLoader("echo-unit", []Factory{singleFactory(impl)}, nil, testLogger())

	require.NoError(t, r.LoadUnit(l, []string{"site-a", "site-b"}))

	state, ok := r.LoaderState("echo-unit")
	require.True(t, ok)
	assert.Equal(t, Loaded, state)

	assert.Len(t, r.Snapshot("site-a"), 1)
	assert.Len(t, r.Snapshot("site-b"), 1)
	assert.Empty(t, r.Snapshot("site-c"))
}

func TestRegistry_LoadUnitFailureDropsFromRotation(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	impl := &fakeImpl{name: "bad", initErr: errBoom}
	l := NewManualLoader("bad-unit", []Factory{singleFactory(impl)}, nil, testLogger())

	err := r.LoadUnit(l, []string{"site-a"})
	require.Error(t, err)
	_, ok := r.LoaderState("bad-unit")
	assert.False(t, ok)
}

func TestRegistry_LoadUnitFaultedKeepsUnitVisible(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	impl := &fakeImpl{name: "bad", loadErr: errBoom}
	l := NewManualLoader("bad-unit", []Factory{singleFactory(impl)}, nil, testLogger())

	err := r.LoadUnit(l, []string{"site-a"})
	require.Error(t, err)
	state, ok := r.LoaderState("bad-unit")
	require.True(t, ok)
	assert.Equal(t, Faulted, state)
}

func TestRegistry_UnloadUnitDropsEndpointsFromGroups(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	impl := &fakeImpl{name: "echo", endpoints: []Endpoint{echoEndpoint("/echo")}}
	l := NewManualLoader("echo-unit", []Factory{singleFactory(impl)}, nil, testLogger())
	require.NoError(t, r.LoadUnit(l, []string{"site-a"}))

	require.NoError(t, r.UnloadUnit("echo-unit"))
	assert.Empty(t, r.Snapshot("site-a"))
	_, ok := r.LoaderState("echo-unit")
	assert.False(t, ok)
}

func TestRegistry_ReloadUnitRebuildsEndpoints(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	impl := &fakeImpl{name: "echo", endpoints: []Endpoint{echoEndpoint("/echo")}}
	l := NewManualLoader("echo-unit", []Factory{singleFactory(impl)}, nil, testLogger())
	require.NoError(t, r.LoadUnit(l, []string{"site-a"}))

	require.NoError(t, r.ReloadUnit("echo-unit"))
	state, ok := r.LoaderState("echo-unit")
	require.True(t, ok)
	assert.Equal(t, Loaded, state)
	assert.Len(t, r.Snapshot("site-a"), 1)
}

func TestRegistry_ReloadAllAggregatesFailures(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	good := &fakeImpl{name: "good", endpoints: []Endpoint{echoEndpoint("/good")}}
	require.NoError(t, r.LoadUnit(NewManualLoader("good-unit", []Factory{singleFactory(good)}, nil, testLogger()), []string{"site-a"}))

	bad := &fakeImpl{name: "bad", endpoints: []Endpoint{echoEndpoint("/bad")}}
	badLoader := NewManualLoader("bad-unit", []Factory{singleFactory(bad)}, nil, testLogger())
	require.NoError(t, r.LoadUnit(badLoader, []string{"site-a"}))
	// sabotage the live instance so its next Unload call fails, forcing
	// ReloadAll to aggregate rather than stop at the first error.
	bad.unloadErr = errBoom

	err := r.ReloadAll()
	assert.Error(t, err)
	// the good unit still reloaded successfully despite the bad one's error.
	state, ok := r.LoaderState("good-unit")
	require.True(t, ok)
	assert.Equal(t, Loaded, state)
}

func TestRegistry_RouteConsoleFindsClaimingPlugin(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	impl := &fakeImpl{name: "echo", consoleOut: "pong"}
	l := NewManualLoader("echo-unit", []Factory{singleFactory(impl)}, nil, testLogger())
	require.NoError(t, r.LoadUnit(l, nil))

	out, err := r.RouteConsole("echo", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", out)

	_, err = r.RouteConsole("nobody", "ping")
	assert.Error(t, err)
}

func TestRegistry_ChangesSignalsOnLoadAndUnload(t *testing.T) {
	r := NewRegistry(testLogger(), nil)
	impl := &fakeImpl{name: "echo"}
	require.NoError(t, r.LoadUnit(NewManualLoader("echo-unit", []Factory{singleFactory(impl)}, nil, testLogger()), nil))

	select {
	case <-r.Changes():
	default:
		t.Fatal("expected a change signal after LoadUnit")
	}

	require.NoError(t, r.UnloadUnit("echo-unit"))
	select {
	case <-r.Changes():
	default:
		t.Fatal("expected a change signal after UnloadUnit")
	}
}

func TestRegistry_LoadUnitAudited(t *testing.T) {
	dir := t.TempDir()
	logger, err := audit.NewLogger(audit.Config{FilePath: filepath.Join(dir, "audit.jsonl")})
	require.NoError(t, err)
	defer logger.Close()

	r := NewRegistry(testLogger(), logger)
	impl := &fakeImpl{name: "echo", endpoints: []Endpoint{echoEndpoint("/echo")}}
	require.NoError(t, r.LoadUnit(NewManualLoader("echo-unit", []Factory{singleFactory(impl)}, nil, testLogger()), []string{"site-a"}))

	body, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "plugin.load")
}

package plugin

import (
	"context"
	"errors"

	"github.com/corehttpd/corehttpd/internal/httpcore"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger { return zap.NewNop() }

// fakeImpl is an in-memory stand-in for a plugin unit's exported
// implementation, used across loader_test.go and registry_test.go.
type fakeImpl struct {
	name       string
	initErr    error
	loadErr    error
	unloadErr  error
	endpoints  []Endpoint
	initCalls  int
	loadCalls  int
	unloadCall int
	lastCfg    map[string]string
	consoleOut string
	consoleErr error
}

func (f *fakeImpl) Name() string { return f.name }

func (f *fakeImpl) Init(cfg map[string]string) error {
	f.initCalls++
	f.lastCfg = cfg
	return f.initErr
}

func (f *fakeImpl) Load(pool *ServicePool) ([]Endpoint, error) {
	f.loadCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	pool.Publish(f.name+".service", f, ServiceShared)
	return f.endpoints, nil
}

func (f *fakeImpl) Unload() error {
	f.unloadCall++
	return f.unloadErr
}

func (f *fakeImpl) HandleConsoleCommand(cmd string) (string, error) {
	if f.consoleErr != nil {
		return "", f.consoleErr
	}
	return f.consoleOut, nil
}

func echoEndpoint(path string) Endpoint {
	return Endpoint{
		Path: path,
		Handler: func(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
			resp := httpcore.NewResponse()
			resp.SetStatus(200)
			return resp, nil
		},
	}
}

var errBoom = errors.New("boom")

// singleFactory wraps one pre-built implementation in a Factory that
// always returns it, for tests that don't care about reload producing
// a distinct instance.
func singleFactory(impl *fakeImpl) Factory { return func() Implementation { return impl } }

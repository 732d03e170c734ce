package plugin

import (
	"fmt"
	"plugin"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// implementationsSymbol is the exported symbol a dynamically loaded
// unit must provide: a func() []Implementation enumerating everything
// the unit wants the runtime to manage.
const implementationsSymbol = "Implementations"

// Loader owns one isolated code unit — one .so for a dynamic loader,
// or one statically-registered set of implementations for a manual
// one — and walks it through the §4.7 lifecycle.
type Loader struct {
	mu sync.Mutex

	ID   string // registry key: path for dynamic units, name for manual ones
	Path string // filesystem path; empty for manual loaders
	Cfg  map[string]string

	state        State
	impls        []Implementation
	pool         *ServicePool
	endpoints    []Endpoint
	loadedAt     time.Time
	loadDuration time.Duration

	log   *zap.Logger
	clone func() *Loader // rebuilds a fresh NotLoaded loader for reload
}

// NewDynamicLoader returns a loader that enumerates its
// implementations from a .so at path during Initialize.
func NewDynamicLoader(id, path string, cfg map[string]string, log *zap.Logger) *Loader {
	l := &Loader{ID: id, Path: path, Cfg: cfg, log: log}
	l.clone = func() *Loader { return NewDynamicLoader(id, path, cfg, log) }
	return l
}

// NewManualLoader returns a loader around implementations produced by
// factories, skipping plugin.Open entirely (see RegisterManual).
// Reload re-invokes the factories rather than reusing the prior
// implementation instances, matching dynamic reload's fresh-instance
// semantics.
func NewManualLoader(id string, factories []Factory, cfg map[string]string, log *zap.Logger) *Loader {
	build := func() []Implementation {
		out := make([]Implementation, len(factories))
		for i, f := range factories {
			out[i] = f()
		}
		return out
	}
	l := &Loader{ID: id, impls: build(), Cfg: cfg, log: log}
	l.clone = func() *Loader { return NewManualLoader(id, factories, cfg, log) }
	return l
}

// Clone returns a fresh NotLoaded loader for the same unit, used by
// Registry.ReloadUnit.
func (l *Loader) Clone() *Loader { return l.clone() }

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader) Endpoints() []Endpoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Endpoint(nil), l.endpoints...)
}

func (l *Loader) Services() *ServicePool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool
}

func (l *Loader) LoadedAt() time.Time { l.mu.Lock(); defer l.mu.Unlock(); return l.loadedAt }

// Initialize enumerates exported implementations (opening the .so for
// a dynamic loader) and calls each one's Init hook. A unit exporting
// zero implementations is logged, not faulted. A failing Init is
// logged and faults the whole loader — the caller drops it from the
// registry's rotation.
func (l *Loader) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != NotLoaded {
		return fmt.Errorf("plugin: loader %q: Initialize called from state %s", l.ID, l.state)
	}

	if l.Path != "" {
		unit, err := plugin.Open(l.Path)
		if err != nil {
			l.state = Faulted
			return fmt.Errorf("plugin: open %q: %w", l.Path, err)
		}
		sym, err := unit.Lookup(implementationsSymbol)
		if err != nil {
			l.log.Warn("plugin unit exports no Implementations symbol",
				zap.String("path", l.Path))
			l.impls = nil
		} else {
			factory, ok := sym.(func() []Implementation)
			if !ok {
				l.state = Faulted
				return fmt.Errorf("plugin: %q: Implementations has the wrong signature", l.Path)
			}
			l.impls = factory()
		}
	}

	if len(l.impls) == 0 {
		l.log.Info("plugin unit has zero exported implementations", zap.String("id", l.ID))
	}

	for _, impl := range l.impls {
		if err := impl.Init(l.Cfg); err != nil {
			l.log.Error("plugin init failed", zap.String("plugin", impl.Name()), zap.Error(err))
			l.state = Faulted
			return fmt.Errorf("plugin: %q: init: %w", impl.Name(), err)
		}
	}
	l.state = Initialized
	return nil
}

// Load runs every implementation's Load hook against a fresh
// ServicePool and collects the endpoints they publish.
func (l *Loader) Load() ([]Endpoint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Initialized {
		return nil, fmt.Errorf("plugin: loader %q: Load called from state %s", l.ID, l.state)
	}

	pool := NewServicePool()
	var all []Endpoint
	start := time.Now()
	for _, impl := range l.impls {
		eps, err := impl.Load(pool)
		if err != nil {
			l.log.Error("plugin load failed", zap.String("plugin", impl.Name()), zap.Error(err))
			l.state = Faulted
			return nil, fmt.Errorf("plugin: %q: load: %w", impl.Name(), err)
		}
		all = append(all, eps...)
	}
	l.pool = pool
	l.endpoints = all
	l.loadedAt = time.Now()
	l.loadDuration = time.Since(start)
	l.state = Loaded
	return append([]Endpoint(nil), all...), nil
}

// Unload always transitions the loader to NotLoaded, even when one or
// more implementations' Unload hooks fail — those failures are
// aggregated and returned, not swallowed.
func (l *Loader) Unload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs error
	for _, impl := range l.impls {
		if err := impl.Unload(); err != nil {
			l.log.Error("plugin unload failed", zap.String("plugin", impl.Name()), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	l.pool = nil
	l.endpoints = nil
	l.state = NotLoaded
	return errs
}

// HandleConsoleCommand dispatches cmd to the first implementation in
// this loader named name. claimed reports whether any implementation
// in this loader matched the name, regardless of whether it supports
// console commands.
func (l *Loader) HandleConsoleCommand(name, cmd string) (out string, claimed bool, err error) {
	l.mu.Lock()
	impls := l.impls
	l.mu.Unlock()
	for _, impl := range impls {
		if impl.Name() != name {
			continue
		}
		handler, ok := impl.(ConsoleHandler)
		if !ok {
			return "", true, fmt.Errorf("plugin: %q does not accept console commands", name)
		}
		out, err := handler.HandleConsoleCommand(cmd)
		return out, true, err
	}
	return "", false, nil
}

package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/corehttpd/corehttpd/internal/audit"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Registry tracks every loaded unit and the per-virtual-host endpoint
// snapshots their implementations have published, grounded on the
// retrieved event bus's buffered, drop-on-full broadcast for change
// notification: subscribers pull a fresh Snapshot after observing a
// signal on Changes() rather than the registry pushing data to them.
type Registry struct {
	mu         sync.RWMutex
	loaders    map[string]*Loader
	unitGroups map[string][]string
	groups     map[string][]Endpoint

	changeCh chan struct{}

	auditor *audit.Logger
	log     *zap.Logger
}

// NewRegistry returns an empty registry. auditor may be nil.
func NewRegistry(log *zap.Logger, auditor *audit.Logger) *Registry {
	if auditor == nil {
		auditor = audit.NewNullLogger()
	}
	return &Registry{
		loaders:    make(map[string]*Loader),
		unitGroups: make(map[string][]string),
		groups:     make(map[string][]Endpoint),
		changeCh:   make(chan struct{}, 1),
		auditor:    auditor,
		log:        log,
	}
}

// Changes signals (non-blocking, coalesced) whenever a loader's
// endpoint set changed. Subscribers re-pull Snapshot after a receive.
func (r *Registry) Changes() <-chan struct{} { return r.changeCh }

func (r *Registry) notifyChanged() {
	select {
	case r.changeCh <- struct{}{}:
	default:
	}
}

// LoadUnit initializes and loads loader, publishing its endpoints to
// every named service group (virtual host). On failure the loader is
// not added to the registry's rotation, per §4.7's failure semantics
// for Initialize; a failure during Load keeps the loader registered
// in its Faulted state so its status is still observable.
func (r *Registry) LoadUnit(loader *Loader, groups []string) error {
	if err := loader.Initialize(); err != nil {
		r.auditor.Log(audit.NewEvent(audit.ActionPluginFault, audit.ActorSystem, audit.ResultFault).
			WithDetail("unit", loader.ID).WithReason(err.Error()))
		return err
	}

	eps, err := loader.Load()
	if err != nil {
		r.auditor.Log(audit.NewEvent(audit.ActionPluginFault, audit.ActorSystem, audit.ResultFault).
			WithDetail("unit", loader.ID).WithReason(err.Error()))
		r.mu.Lock()
		r.loaders[loader.ID] = loader
		r.unitGroups[loader.ID] = groups
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.loaders[loader.ID] = loader
	r.unitGroups[loader.ID] = groups
	for _, g := range groups {
		r.groups[g] = append(append([]Endpoint(nil), r.groups[g]...), eps...)
	}
	r.mu.Unlock()
	r.auditor.Log(audit.NewEvent(audit.ActionPluginLoad, audit.ActorSystem, audit.ResultAllow).
		WithDetail("unit", loader.ID).WithDetail("endpoints", len(eps)))
	r.notifyChanged()
	return nil
}

// UnloadUnit notifies every subscribed group to drop the unit's
// endpoints, runs its Unload hook, and removes it from the registry.
func (r *Registry) UnloadUnit(id string) error {
	r.mu.Lock()
	loader, ok := r.loaders[id]
	groups := r.unitGroups[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("plugin: unknown unit %q", id)
	}

	dead := loader.Endpoints()
	r.mu.Lock()
	for _, g := range groups {
		r.groups[g] = dropEndpoints(r.groups[g], dead)
	}
	r.mu.Unlock()

	err := loader.Unload()
	if err != nil {
		r.auditor.Log(audit.NewEvent(audit.ActionPluginFault, audit.ActorSystem, audit.ResultFault).
			WithDetail("unit", id).WithReason(err.Error()))
	} else {
		r.auditor.Log(audit.NewEvent(audit.ActionPluginUnload, audit.ActorSystem, audit.ResultAllow).
			WithDetail("unit", id))
	}

	r.mu.Lock()
	delete(r.loaders, id)
	delete(r.unitGroups, id)
	r.mu.Unlock()
	r.notifyChanged()
	return err
}

// ReloadUnit unloads id and reloads it from a fresh Loader at the
// same path. Go's runtime cannot release an already-opened .so, so a
// reload always opens a new plugin handle rather than reusing one —
// repeated hot reloads leak the old code units' memory for the
// process lifetime, a known stdlib plugin limitation, not one this
// runtime can model away.
func (r *Registry) ReloadUnit(id string) error {
	r.mu.RLock()
	loader, ok := r.loaders[id]
	groups := append([]string(nil), r.unitGroups[id]...)
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("plugin: unknown unit %q", id)
	}

	var unloadErr error
	if loader.State() != NotLoaded {
		unloadErr = r.UnloadUnit(id)
	} else {
		r.mu.Lock()
		delete(r.loaders, id)
		delete(r.unitGroups, id)
		r.mu.Unlock()
	}

	next := loader.Clone()
	if err := r.LoadUnit(next, groups); err != nil {
		return multierr.Append(unloadErr, err)
	}
	return unloadErr
}

// ReloadAll reloads every registered unit, aggregating failures rather
// than stopping at the first one.
func (r *Registry) ReloadAll() error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.loaders))
	for id := range r.loaders {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)

	var errs error
	for _, id := range ids {
		if err := r.ReloadUnit(id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errs
}

// Snapshot returns the current endpoint set published to group.
func (r *Registry) Snapshot(group string) []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Endpoint(nil), r.groups[group]...)
}

// LoaderState reports a registered unit's lifecycle state.
func (r *Registry) LoaderState(id string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[id]
	if !ok {
		return NotLoaded, false
	}
	return l.State(), true
}

// RouteConsole sends cmd to the first registered plugin named name.
func (r *Registry) RouteConsole(name, cmd string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, loader := range r.loaders {
		out, claimed, err := loader.HandleConsoleCommand(name, cmd)
		if claimed {
			return out, err
		}
	}
	return "", fmt.Errorf("plugin: no loaded plugin claims %q", name)
}

// Package plugin implements the plugin runtime (C7): isolated loaders
// that enumerate, initialize, load and unload exported plugin
// implementations, publish their services and endpoints to subscribed
// virtual-host groups, support hot reload via a debounced directory
// watcher, and route console commands to the plugin that claims them.
package plugin

import (
	"context"
	"sync"

	"github.com/corehttpd/corehttpd/internal/httpcore"
)

// State is a loader's position in the §4.7 lifecycle:
// NotLoaded -> Initialized -> Loaded -> Unloaded -> (NotLoaded | Faulted).
type State int

const (
	NotLoaded State = iota
	Initialized
	Loaded
	Unloaded
	Faulted
)

func (s State) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Initialized:
		return "initialized"
	case Loaded:
		return "loaded"
	case Unloaded:
		return "unloaded"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// ServiceFlags tags how a published service may be consumed.
type ServiceFlags int

const (
	// ServiceShared marks an instance safe to share across requests.
	ServiceShared ServiceFlags = 1 << iota
	// ServicePerRequest marks a factory-like instance a caller must not retain.
	ServicePerRequest
)

// EndpointFunc is a plugin-exposed request handler. It takes the
// parsed request and returns a response, mirroring the default
// filesystem handler's surface but bypassing it entirely — the event
// processor calls into this directly when a request routes to a
// plugin endpoint instead of to static content.
type EndpointFunc func(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error)

// Endpoint is one path a loaded plugin implementation exposes to a
// virtual-host's service group.
type Endpoint struct {
	Path    string
	Handler EndpointFunc
}

// ConsoleHandler is the optional interface an Implementation may
// satisfy to receive console commands addressed to its plugin name.
type ConsoleHandler interface {
	HandleConsoleCommand(cmd string) (string, error)
}

// Implementation is one exported plugin unit's contract: initialize
// with config, load (publishing services and returning endpoints),
// and unload. A single loaded code unit may export more than one
// Implementation.
type Implementation interface {
	Name() string
	Init(cfg map[string]string) error
	Load(pool *ServicePool) ([]Endpoint, error)
	Unload() error
}

type serviceEntry struct {
	instance interface{}
	flags    ServiceFlags
}

// ServicePool collects the (type, instance, flags) triples a plugin
// implementation publishes during Load; it is disposed before the
// implementation's Unload hook returns.
type ServicePool struct {
	mu       sync.Mutex
	services map[string]serviceEntry
}

// NewServicePool returns an empty pool.
func NewServicePool() *ServicePool {
	return &ServicePool{services: make(map[string]serviceEntry)}
}

// Publish records instance under typ, overwriting any prior entry.
func (p *ServicePool) Publish(typ string, instance interface{}, flags ServiceFlags) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.services[typ] = serviceEntry{instance: instance, flags: flags}
}

// Lookup returns the instance published under typ, if any.
func (p *ServicePool) Lookup(typ string) (interface{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.services[typ]
	return e.instance, ok
}

// Types lists every type currently published in the pool.
func (p *ServicePool) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.services))
	for t := range p.services {
		out = append(out, t)
	}
	return out
}

func dropEndpoints(existing, remove []Endpoint) []Endpoint {
	if len(remove) == 0 {
		return existing
	}
	dead := make(map[string]bool, len(remove))
	for _, e := range remove {
		dead[e.Path] = true
	}
	out := existing[:0:0]
	for _, e := range existing {
		if !dead[e.Path] {
			out = append(out, e)
		}
	}
	return out
}

// Package httpd assembles C1-C9 into a running server: it builds one
// event.Chain and error-page cache per configured virtual host, wires
// the plugin registry and session adapter in as chain middleware, and
// implements httpcore.Handler by routing, dispatching, and finally
// streaming or compressing the chosen response body.
package httpd

import (
	"context"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/corehttpd/corehttpd/internal/audit"
	"github.com/corehttpd/corehttpd/internal/compress"
	"github.com/corehttpd/corehttpd/internal/config"
	"github.com/corehttpd/corehttpd/internal/errorpages"
	"github.com/corehttpd/corehttpd/internal/event"
	"github.com/corehttpd/corehttpd/internal/httpcore"
	"github.com/corehttpd/corehttpd/internal/httperr"
	"github.com/corehttpd/corehttpd/internal/logging"
	"github.com/corehttpd/corehttpd/internal/plugin"
	"github.com/corehttpd/corehttpd/internal/session"
	"github.com/corehttpd/corehttpd/internal/transport"
	"github.com/corehttpd/corehttpd/internal/vhost"
)

// Server composes C1-C9 and exposes Handler as an httpcore.Handler,
// per §5's "the server binds a listener per configured interface and
// drives each accepted connection through the state machine, the
// router, and the event chain" assembly.
type Server struct {
	cfg        config.HttpConfig
	router     *vhost.Router
	registry   *plugin.Registry
	compressor *compress.Manager
	fs         *event.FileHandler

	errorPages map[string]*errorpages.Cache
	chains     map[string]*event.Chain

	log *zap.Logger
}

// NewServer builds a Server from a parsed configuration document.
// registry and sessions may be nil (an empty registry is allocated;
// nil sessions means no session node is added to any chain).
func NewServer(doc *config.Document, registry *plugin.Registry, sessions *session.Adapter, auditor *audit.Logger, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if registry == nil {
		registry = plugin.NewRegistry(log, auditor)
	}

	cfg := config.BuildHttpConfig(doc.HTTP)
	vhosts, err := config.BuildVHostConfigs(doc.VirtualHosts)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		router:     vhost.New(vhosts, auditor),
		registry:   registry,
		compressor: compress.NewManager(),
		fs:         event.NewFileHandler(),
		errorPages: make(map[string]*errorpages.Cache, len(vhosts)),
		chains:     make(map[string]*event.Chain, len(vhosts)),
		log:        log,
	}

	for _, vh := range vhosts {
		cache, err := errorpages.LoadCache(errorFileSpecs(vh))
		if err != nil {
			return nil, err
		}
		s.errorPages[vh.Name] = cache
		s.chains[vh.Name] = event.NewChain(s.middlewareFor(sessions), s.fs, log)
	}

	return s, nil
}

func errorFileSpecs(vh *vhost.Config) []errorpages.FileSpec {
	specs := make([]errorpages.FileSpec, 0, len(vh.ErrorFiles))
	for _, ef := range vh.ErrorFiles {
		specs = append(specs, errorpages.FileSpec{Status: ef.Code, Path: ef.Path})
	}
	return specs
}

// middlewareFor builds the per-vhost node order: request id first (so
// every downstream node and log line can see it), then the session
// adapter (absence of a session is a fact later nodes decide on, per
// session.Node's doc), then plugin endpoint dispatch.
func (s *Server) middlewareFor(sessions *session.Adapter) []event.Middleware {
	nodes := []event.Middleware{event.NewRequestIDNode()}
	if sessions != nil {
		nodes = append(nodes, session.NewNode(sessions))
	}
	nodes = append(nodes, newPluginNode(s.registry))
	return nodes
}

// Handler implements httpcore.Handler: match a virtual host, dispatch
// the event chain, commit the resulting routine to resp, and apply the
// error-page and compression glue (C9) before returning.
func (s *Server) Handler(req *httpcore.Request, conn *transport.Conn) (*httpcore.Response, error) {
	peerIP, _, _ := net.SplitHostPort(req.RemoteAddr)
	addr, port := localAddrParts(conn)

	vh, err := s.router.Match(addr, port, req.Headers.Get("Host"), req.Path, peerIP)
	if err != nil {
		return routeErrorResponse(err), nil
	}

	resp := httpcore.NewResponse()
	e := event.NewHttpEntity(req, resp, vh, conn)

	ctx := logging.WithVHost(logging.WithRemoteIP(context.Background(), peerIP), vh.Name)
	if err := s.chains[vh.Name].Dispatch(ctx, e); err != nil {
		return nil, err
	}

	if e.Args.Kind == event.VirtualSkip {
		return e.Response, nil
	}

	event.ApplyRoutine(e, s.fs)
	switch e.Args.Kind {
	case event.Continue, event.ServeOther, event.ServeOtherFQ:
		if err := s.writeFileBody(req, e.Response, e.Args.Path); err != nil {
			return nil, err
		}
	}

	if cache, ok := s.errorPages[vh.Name]; ok {
		_ = cache.Apply(req, e.Response)
	}

	// Content-Length is committed last, after the filesystem and
	// error-page steps have both had a chance to set a body, per §4.4's
	// "status (and headers) committed last" ordering.
	e.Response.SetHeader("Content-Length", strconv.FormatInt(e.Response.BodyLength(), 10))
	return e.Response, nil
}

func routeErrorResponse(err error) *httpcore.Response {
	status := httperr.KindOf(err).Status()
	if e, ok := httperr.As(err); ok {
		status = e.Status
	}
	resp := httpcore.NewResponse()
	resp.SetStatus(status)
	resp.SetHeader("Content-Length", "0")
	return resp
}

// localAddrParts splits conn's local address into the (address, port)
// pair vhost.Router.Match expects, per §3's Interface{Address, Port}.
func localAddrParts(conn *transport.Conn) (string, int) {
	addr := conn.LocalAddr()
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String(), tcp.Port
	}
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// Package event implements the per-request middleware chain (C6): an
// HttpEntity carrying the request/response/routing views, a
// two-phase dispatch over an ordered middleware chain, and the
// default-filesystem routine (file lookup, extension filter, cache
// policy, Content-Language).
package event

import (
	"github.com/corehttpd/corehttpd/internal/httpcore"
	"github.com/corehttpd/corehttpd/internal/transport"
	"github.com/corehttpd/corehttpd/internal/vhost"
)

// RoutineKind tags the terminal action the chain settles on, per §3's
// FileProcessArgs tagged variant.
type RoutineKind int

const (
	Continue RoutineKind = iota
	VirtualSkip
	Deny
	Error
	NotFound
	Redirect
	ServeOther
	ServeOtherFQ
)

func (k RoutineKind) String() string {
	switch k {
	case Continue:
		return "continue"
	case VirtualSkip:
		return "virtual_skip"
	case Deny:
		return "deny"
	case Error:
		return "error"
	case NotFound:
		return "not_found"
	case Redirect:
		return "redirect"
	case ServeOther:
		return "serve_other"
	case ServeOtherFQ:
		return "serve_other_fq"
	default:
		return "continue"
	}
}

// FileProcessArgs is the tagged decision a middleware or the router
// emits; Path/URL are populated only for the kinds that use them.
type FileProcessArgs struct {
	Kind RoutineKind
	Path string // ServeOther/ServeOtherFQ: relative or fully-qualified path
	URL  string // Redirect: target URL
}

// ContinueArgs is the zero-value default routine: proceed to the
// default filesystem handling.
func ContinueArgs() FileProcessArgs { return FileProcessArgs{Kind: Continue} }

// Session is the minimal shape C8's adapter attaches to an entity; the
// field is an opaque `any` here so this package doesn't import
// internal/session and create a dependency cycle with its own
// middleware-facing consumers.
type Session any

// HttpEntity is the per-request value passed through the middleware
// chain: immutable handles to the request/response/vhost views, a
// mutable routing decision, and an optional attached session.
type HttpEntity struct {
	Request  *httpcore.Request
	Response *httpcore.Response
	VHost    *vhost.Config
	Conn     *transport.Conn

	RequestID string
	Args      FileProcessArgs
	Session Session
}

// NewHttpEntity builds an entity with the default Continue routine.
func NewHttpEntity(req *httpcore.Request, resp *httpcore.Response, vh *vhost.Config, conn *transport.Conn) *HttpEntity {
	return &HttpEntity{Request: req, Response: resp, VHost: vh, Conn: conn, Args: ContinueArgs()}
}

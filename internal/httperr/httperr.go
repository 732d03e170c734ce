// Package httperr defines the error-kind taxonomy the HTTP state machine
// and event processor use to decide how a failure is surfaced on the wire.
package httperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the HTTP behavior it implies, independent
// of the underlying cause. See spec §7 for the full propagation table.
type Kind int

const (
	// Internal is a catch-all for unexpected failures; always a 500, always closes.
	Internal Kind = iota
	// Malformed covers bad request lines, bad headers, CL/TE conflicts, missing Host.
	Malformed
	// PolicyRejected covers whitelist/blacklist/denied-extension denials.
	PolicyRejected
	// LimitExceeded covers header-count, upload-size, and 100-continue rejections.
	LimitExceeded
	// RouteUnmatched covers virtual-host, path-filter, and file-not-found misses.
	RouteUnmatched
	// UnsupportedMethod covers methods outside the recognized set.
	UnsupportedMethod
	// MisroutedRequest covers Host-header port mismatches under force_port_check.
	MisroutedRequest
	// UpgradeRequired covers protocol-upgrade preconditions that were not met.
	UpgradeRequired
	// Unavailable covers the open-connection ceiling.
	Unavailable
	// TransportTimeout covers read/write timeouts on the transport.
	TransportTimeout
	// TransportClosed covers a transport that is already gone.
	TransportClosed
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case PolicyRejected:
		return "policy_rejected"
	case LimitExceeded:
		return "limit_exceeded"
	case RouteUnmatched:
		return "route_unmatched"
	case UnsupportedMethod:
		return "unsupported_method"
	case MisroutedRequest:
		return "misrouted_request"
	case UpgradeRequired:
		return "upgrade_required"
	case Unavailable:
		return "unavailable"
	case TransportTimeout:
		return "transport_timeout"
	case TransportClosed:
		return "transport_closed"
	default:
		return "internal"
	}
}

// Status returns the default HTTP status code associated with the kind.
// Callers that know a more specific code (e.g. 416 vs 413 both being
// LimitExceeded-adjacent) should set Error.Status explicitly instead.
func (k Kind) Status() int {
	switch k {
	case Malformed:
		return 400
	case PolicyRejected:
		return 403
	case LimitExceeded:
		return 413
	case RouteUnmatched:
		return 404
	case UnsupportedMethod:
		return 405
	case MisroutedRequest:
		return 421
	case UpgradeRequired:
		return 426
	case Unavailable:
		return 503
	default:
		return 500
	}
}

// Error wraps a Kind with a status override and a cause.
type Error struct {
	Kind   Kind
	Status int
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error carrying the kind's default status.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Status: kind.Status(), Reason: reason}
}

// Newf builds an Error with a formatted reason.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// WithStatus overrides the status code carried by the kind default
// (used for e.g. 431 header-count vs. 413 upload-size, both LimitExceeded).
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// Wrap builds an Error of kind with the kind's default status and
// cause as its wrapped error.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Status: kind.Status(), Reason: reason, Cause: cause}
}

// As reports whether err is (or wraps) an *Error and extracts it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is an *Error, else Internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// Package audit provides an append-only JSON-lines sink for
// security-relevant decisions: virtual-host allow/deny, plugin faults,
// hot-reload cycles. It intentionally has no database-backed variant —
// persistence backends are out of scope for this core.
package audit

import (
	"time"

	"github.com/corehttpd/corehttpd/internal/redact"
)

// Event is a single audited decision.
type Event struct {
	Timestamp     time.Time              `json:"timestamp"`
	Action        string                 `json:"action"`
	Actor         string                 `json:"actor"`
	VHost         string                 `json:"vhost,omitempty"`
	RequestID     string                 `json:"request_id,omitempty"`
	ClientIP      string                 `json:"client_ip,omitempty"`
	Result        ResultType             `json:"result"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// ResultType is the outcome of an audited decision.
type ResultType string

const (
	ResultAllow ResultType = "allow"
	ResultDeny  ResultType = "deny"
	ResultFault ResultType = "fault"
)

// Canonical action names.
const (
	ActionVHostWhitelist  = "vhost.whitelist_deny"
	ActionVHostBlacklist  = "vhost.blacklist_deny"
	ActionVHostCORS       = "vhost.cors_deny"
	ActionPluginLoad      = "plugin.load"
	ActionPluginUnload    = "plugin.unload"
	ActionPluginFault     = "plugin.fault"
	ActionPluginReload    = "plugin.reload"
	ActionSessionRejected = "session.rejected"

	ActorSystem = "system"
)

// NewEvent creates an Event timestamped now.
func NewEvent(action, actor string, result ResultType) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Actor:     actor,
		Result:    result,
		Details:   make(map[string]interface{}),
	}
}

func (e *Event) WithVHost(name string) *Event {
	e.VHost = name
	return e
}

func (e *Event) WithRequestID(id string) *Event {
	e.RequestID = id
	return e
}

func (e *Event) WithClientIP(ip string) *Event {
	e.ClientIP = ip
	return e
}

func (e *Event) WithDetail(key string, value interface{}) *Event {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithReason records a human-readable reason for the decision, stored
// as given (it is not redacted).
func (e *Event) WithReason(reason string) *Event {
	return e.WithDetail("reason", reason)
}

// WithAuthHeader records a masked Authorization/Cookie-style header value.
func (e *Event) WithAuthHeader(name, value string) *Event {
	return e.WithDetail(name, redact.Header(name, value))
}

func (e *Event) WithError(err error) *Event {
	if err != nil {
		return e.WithDetail("error", err.Error())
	}
	return e
}

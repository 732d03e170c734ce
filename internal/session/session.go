// Package session implements the session adapter (C8): a minimal
// capability set middleware uses to attach and inspect OAuth2-style
// session state on a request, backed by an in-memory or Redis-backed
// store. The core never issues or validates credentials itself — it
// only carries whatever a session-issuing middleware already decided.
package session

import (
	"strings"
	"time"
)

// Session is an OAuth2-style session attached to a request. Scopes
// are free-form strings (e.g. "projects:read"); HasScope composes a
// "type:permission" key and tests case-insensitive substring
// containment against them, per §4.8.
type Session struct {
	ID               string
	Type             string
	AppID            string
	RefreshToken     string
	MaxTokenLifetime time.Duration
	IssuedAt         time.Time
	Scopes           []string
	Attributes       map[string]string
}

// HasScope reports whether any of the session's scopes contains
// "type:permission" as a case-insensitive substring.
func (s *Session) HasScope(typ, permission string) bool {
	if s == nil {
		return false
	}
	want := strings.ToLower(typ + ":" + permission)
	for _, scope := range s.Scopes {
		if strings.Contains(strings.ToLower(scope), want) {
			return true
		}
	}
	return false
}

// Expired reports whether the session has outlived MaxTokenLifetime.
// A zero MaxTokenLifetime means the session never expires on its own.
func (s *Session) Expired(now time.Time) bool {
	if s.MaxTokenLifetime <= 0 {
		return false
	}
	return now.After(s.IssuedAt.Add(s.MaxTokenLifetime))
}

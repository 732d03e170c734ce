package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/corehttpd/corehttpd/internal/event"
)

// Adapter is the §4.8 capability set: GetSession, IsSet, SessionType.
// It never issues or validates credentials — it only looks up
// whatever a session-issuing middleware already stored.
type Adapter struct {
	store Store
	ttl   time.Duration
}

// NewAdapter returns an Adapter backed by store. defaultTTL is used
// when Attach is called without an explicit one.
func NewAdapter(store Store, defaultTTL time.Duration) *Adapter {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Adapter{store: store, ttl: defaultTTL}
}

// sessionIDFromRequest extracts the Authorization bearer token as the
// store lookup key; cookies are not consulted. It returns "" when no
// bearer token is present.
func sessionIDFromRequest(e *event.HttpEntity) string {
	if e == nil || e.Request == nil {
		return ""
	}
	if auth := e.Request.Headers.Get("Authorization"); auth != "" {
		if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// GetSession looks up and attaches the session for e's request to
// e.Session, returning (nil, false) when no session id is present or
// none is on record.
func (a *Adapter) GetSession(ctx context.Context, e *event.HttpEntity) (*Session, bool) {
	id := sessionIDFromRequest(e)
	if id == "" {
		return nil, false
	}
	sess, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, false
	}
	if sess.Expired(time.Now()) {
		_ = a.store.Delete(ctx, id)
		return nil, false
	}
	e.Session = sess
	return sess, true
}

// Attach stores sess and makes it the session for e, using ttl (or
// the adapter's default when ttl <= 0).
func (a *Adapter) Attach(ctx context.Context, e *event.HttpEntity, sess *Session, ttl time.Duration) error {
	if sess == nil {
		return errors.New("session: cannot attach nil session")
	}
	if ttl <= 0 {
		ttl = a.ttl
	}
	if sess.IssuedAt.IsZero() {
		sess.IssuedAt = time.Now()
	}
	if err := a.store.Put(ctx, sess, ttl); err != nil {
		return err
	}
	e.Session = sess
	return nil
}

// IsSet reports whether e already carries an attached session.
func (a *Adapter) IsSet(e *event.HttpEntity) bool {
	_, ok := asSession(e)
	return ok
}

// SessionType returns the attached session's Type, or "" if unset.
func (a *Adapter) SessionType(e *event.HttpEntity) string {
	sess, ok := asSession(e)
	if !ok {
		return ""
	}
	return sess.Type
}

func asSession(e *event.HttpEntity) (*Session, bool) {
	if e == nil || e.Session == nil {
		return nil, false
	}
	sess, ok := e.Session.(*Session)
	return sess, ok
}

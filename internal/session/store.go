package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a store has no session under the
// requested id, including when it existed but expired.
var ErrNotFound = errors.New("session: not found")

// Store persists sessions keyed by id with a TTL, matching §4.8's
// requirement that the core never issues or validates credentials
// itself — a Store only remembers what an issuing middleware already
// decided and forgets it once the TTL lapses.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

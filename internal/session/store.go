package session

import (
	"context"
	"errors"
)

// ErrNotFound reports an unknown or expired session id. Callers treat it as
// "session expired or invalid", never as a fatal condition.
var ErrNotFound = errors.New("session not found")

// Store is the persistence contract for sessions. Update applies its
// mutator atomically with respect to concurrent updates on the same id;
// distinct sessions never block each other.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, mutate func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
	Active(ctx context.Context) ([]*Session, error)
	Close() error
}

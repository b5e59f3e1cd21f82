package session

import (
	"context"
	"strings"
	"time"
)

// Janitor is implemented by stores that expire idle sessions in the
// background.
type Janitor interface {
	StartJanitor(ctx context.Context, interval time.Duration)
}

// NewStore creates a postgres-backed store when configured, otherwise
// in-memory. Both honor the same TTL semantics.
func NewStore(ctx context.Context, databaseURL string, ttl time.Duration) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(ttl), nil
	}
	return NewPostgresStore(ctx, databaseURL, ttl)
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryStore keeps sessions in process memory. The outer lock guards the
// map only; each entry carries its own mutex so updates serialize per
// session id without a global lock.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	ttl     time.Duration
}

type memEntry struct {
	mu sync.Mutex
	s  *Session
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &InMemoryStore{
		entries: make(map[string]*memEntry),
		ttl:     ttl,
	}
}

func (st *InMemoryStore) Create(_ context.Context, s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.entries[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	st.entries[s.ID] = &memEntry{s: s.Clone()}
	return nil
}

func (st *InMemoryStore) Get(_ context.Context, id string) (*Session, error) {
	e, err := st.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), nil
}

func (st *InMemoryStore) Update(_ context.Context, id string, mutate func(*Session) error) (*Session, error) {
	e, err := st.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	// Mutate a copy so a failed mutator leaves the stored state untouched.
	working := e.s.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	e.s = working
	return working.Clone(), nil
}

func (st *InMemoryStore) Delete(_ context.Context, id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.entries[id]; !ok {
		return ErrNotFound
	}
	delete(st.entries, id)
	return nil
}

func (st *InMemoryStore) Active(_ context.Context) ([]*Session, error) {
	st.mu.RLock()
	entries := make([]*memEntry, 0, len(st.entries))
	for _, e := range st.entries {
		entries = append(entries, e)
	}
	st.mu.RUnlock()

	var out []*Session
	for _, e := range entries {
		e.mu.Lock()
		if !e.s.Stage.Terminal() {
			out = append(out, e.s.Clone())
		}
		e.mu.Unlock()
	}
	return out, nil
}

func (st *InMemoryStore) Close() error { return nil }

// StartJanitor periodically drops sessions idle past the TTL, so stale ids
// resolve to ErrNotFound exactly like expired durable rows would.
func (st *InMemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.expireIdle()
			}
		}
	}()
}

func (st *InMemoryStore) expireIdle() {
	cutoff := time.Now().UTC().Add(-st.ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, e := range st.entries {
		e.mu.Lock()
		idle := e.s.LastActivityAt.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(st.entries, id)
		}
	}
}

func (st *InMemoryStore) entry(id string) (*memEntry, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	e, ok := st.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

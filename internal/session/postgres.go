package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions in PostgreSQL. Each session is a single
// JSONB row; Update serializes per id with a row lock, so concurrent
// updates on different sessions proceed independently.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgresStore(ctx context.Context, databaseURL string, ttl time.Duration) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PostgresStore{pool: pool, ttl: ttl}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interview_sessions (
			id TEXT PRIMARY KEY,
			state JSONB NOT NULL,
			last_activity TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interview_sessions_last_activity ON interview_sessions (last_activity);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (st *PostgresStore) Create(ctx context.Context, s *Session) error {
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = st.pool.Exec(ctx,
		`INSERT INTO interview_sessions (id, state, last_activity) VALUES ($1, $2, $3)`,
		s.ID, state, s.LastActivityAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (st *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	var state []byte
	err := st.pool.QueryRow(ctx,
		`SELECT state FROM interview_sessions WHERE id=$1 AND last_activity > now() - $2::interval`,
		id, st.ttl.String()).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return unmarshalSession(state)
}

func (st *PostgresStore) Update(ctx context.Context, id string, mutate func(*Session) error) (*Session, error) {
	tx, err := st.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	var state []byte
	err = tx.QueryRow(ctx,
		`SELECT state FROM interview_sessions WHERE id=$1 FOR UPDATE`, id).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}

	s, err := unmarshalSession(state)
	if err != nil {
		return nil, err
	}
	if err := mutate(s); err != nil {
		return nil, err
	}

	next, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE interview_sessions SET state=$2, last_activity=$3 WHERE id=$1`,
		id, next, s.LastActivityAt); err != nil {
		return nil, fmt.Errorf("write session: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return s, nil
}

func (st *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := st.pool.Exec(ctx, `DELETE FROM interview_sessions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (st *PostgresStore) Active(ctx context.Context) ([]*Session, error) {
	rows, err := st.pool.Query(ctx,
		`SELECT state FROM interview_sessions
		 WHERE state->>'stage' <> 'completed' AND last_activity > now() - $1::interval
		 ORDER BY last_activity DESC`, st.ttl.String())
	if err != nil {
		return nil, fmt.Errorf("query active sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var state []byte
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		s, err := unmarshalSession(state)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

func (st *PostgresStore) Close() error {
	st.pool.Close()
	return nil
}

// StartJanitor periodically deletes rows idle past the TTL.
func (st *PostgresStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = st.pool.Exec(ctx,
					`DELETE FROM interview_sessions WHERE last_activity <= now() - $1::interval`,
					st.ttl.String())
			}
		}
	}()
}

func unmarshalSession(state []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(state, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

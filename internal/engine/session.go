package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"lakefence/internal/contextstore"
	"lakefence/internal/domain"
)

// Session pins one physical DuckDB connection for the duration of a single
// secure-executor invocation. The session key is a UUID installed as a
// DuckDB variable on the connection the first time the connection is seen;
// pooled connections keep their key across invocations, which reproduces
// exactly the key-reuse behavior the broker's clear discipline defends
// against.
type Session struct {
	conn   *sql.Conn
	key    domain.SessionKey
	reused bool
}

var _ contextstore.Session = (*Session)(nil)

// acquireSession checks a connection out of the pool and resolves its
// session key, assigning a fresh one to connections seen for the first time.
func acquireSession(ctx context.Context, db *sql.DB) (*Session, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire execution session: %w", err)
	}

	var existing sql.NullString
	err = conn.QueryRowContext(ctx,
		fmt.Sprintf("SELECT getvariable('%s')", contextstore.SessionVariable),
	).Scan(&existing)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read session key: %w", err)
	}

	if existing.Valid && existing.String != "" {
		return &Session{conn: conn, key: domain.SessionKey(existing.String), reused: true}, nil
	}

	key := uuid.NewString()
	// SET VARIABLE does not take bind parameters; the key is a UUID we just
	// generated, so inlining is safe.
	_, err = conn.ExecContext(ctx,
		fmt.Sprintf("SET VARIABLE %s = '%s'", contextstore.SessionVariable, key))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("install session key: %w", err)
	}

	return &Session{conn: conn, key: domain.SessionKey(key)}, nil
}

// Key returns the session's execution-session key.
func (s *Session) Key() domain.SessionKey { return s.key }

// Reused reports whether this invocation inherited the key from a previous
// invocation on the same pooled connection.
func (s *Session) Reused() bool { return s.reused }

// ExecContext runs a statement on the pinned connection.
func (s *Session) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.conn.ExecContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query on the pinned connection.
func (s *Session) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.conn.QueryRowContext(ctx, query, args...)
}

// QueryContext runs a query on the pinned connection.
func (s *Session) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, query, args...)
}

// Close returns the connection to the pool. The session key variable stays
// with the physical connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

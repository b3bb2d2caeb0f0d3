package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // The database driver
)

// Schema is the namespace that holds the newsletter tables.
const Schema = "vetnux_newsletter"

var migrations = []string{
	`CREATE SCHEMA IF NOT EXISTS vetnux_newsletter`,
	`CREATE TABLE IF NOT EXISTS vetnux_newsletter.subscribers (
		id SERIAL PRIMARY KEY,
		email VARCHAR NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_vetnux_newsletter_subscribers_id ON vetnux_newsletter.subscribers (id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ix_vetnux_newsletter_subscribers_email ON vetnux_newsletter.subscribers (email)`,
}

// Tx is the transactional handle a Session callback works with. *sqlx.Tx
// implements it.
type Tx interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	Commit() error
}

// Store owns the connection pool. It is safe for concurrent use.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an existing connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dbURL string) (*Store, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewStore(conn), nil
}

// DB returns the underlying pool.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema, the subscribers table and its indexes if they
// are missing. It is idempotent and runs in a single transaction.
func (s *Store) Migrate(ctx context.Context) error {
	return s.Session(ctx, func(tx Tx) error {
		for _, stmt := range migrations {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return tx.Commit()
	})
}

// Session runs fn inside a transaction. The transaction is always rolled back
// when fn returns, so fn must call tx.Commit itself to keep its changes.
func (s *Store) Session(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after a successful Commit returns sql.ErrTxDone and does nothing.
	defer tx.Rollback()

	return fn(tx)
}

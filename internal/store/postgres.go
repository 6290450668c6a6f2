// Package store is the message-flow engine's persistence layer: the
// catalog, publisher, lease engine, ack/nack engine, DLQ manager,
// janitor, and metrics all operate as methods on PostgresStore, each
// wrapping exactly one transaction.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Notifier is implemented by the optional fan-out wake-up accelerator
// (internal/queue). A nil Notifier is never stored; PostgresStore always
// holds at least a no-op implementation.
type Notifier interface {
	Notify(ctx context.Context, subscriptionID string)
}

// Archiver is implemented by the optional cold-storage exporter
// (internal/archive) the Janitor invokes before deleting acked rows.
type Archiver interface {
	ArchiveAcked(ctx context.Context, subscriptionID string, batch []byte) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string) {}

// PostgresStore backs every broker operation with a pgxpool.Pool.
type PostgresStore struct {
	pool     *pgxpool.Pool
	notifier Notifier
	archiver Archiver
}

// NewPostgresStore opens the pool, verifies connectivity, and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	s := &PostgresStore{pool: pool, notifier: noopNotifier{}}

	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// SetNotifier installs the fan-out wake-up notifier. Never required for
// correctness; nil resets to a no-op.
func (s *PostgresStore) SetNotifier(n Notifier) {
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

// SetArchiver installs the cold-storage exporter the Janitor calls before
// deleting acked rows. nil disables archiving.
func (s *PostgresStore) SetArchiver(a Archiver) {
	s.archiver = a
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ping reports whether the store is reachable; it backs the readiness
// probe and is the only place a ServiceUnavailable error kind surfaces.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres not initialized")
	}
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS topics (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			topic_id TEXT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
			filter JSONB NOT NULL DEFAULT '{}',
			max_delivery_attempts INT NOT NULL,
			backoff_min_seconds INT NOT NULL,
			backoff_max_seconds INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_topic_id ON subscriptions(topic_id)`,
		`CREATE TABLE IF NOT EXISTS subscription_messages (
			id UUID PRIMARY KEY,
			subscription_id TEXT NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
			payload JSONB NOT NULL,
			status TEXT NOT NULL,
			delivery_attempts INT NOT NULL DEFAULT 0,
			available_at TIMESTAMPTZ NOT NULL,
			locked_at TIMESTAMPTZ,
			locked_by TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			acked_at TIMESTAMPTZ,
			dedupe_key TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sub_messages_dedupe
			ON subscription_messages(subscription_id, dedupe_key) WHERE dedupe_key IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_sub_messages_available
			ON subscription_messages(subscription_id, available_at) WHERE status = 'available'`,
		`CREATE INDEX IF NOT EXISTS idx_sub_messages_delivered
			ON subscription_messages(subscription_id) WHERE status = 'delivered'`,
		`CREATE INDEX IF NOT EXISTS idx_sub_messages_dlq
			ON subscription_messages(subscription_id) WHERE status = 'dlq'`,
		`CREATE INDEX IF NOT EXISTS idx_sub_messages_payload
			ON subscription_messages USING GIN (payload)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kestrel-broker/kestrel/internal/domain"
)

// Metrics returns the fixed per-state row counts for subscriptionID,
// computed as a single filtered-aggregate query.
func (s *PostgresStore) Metrics(ctx context.Context, subscriptionID string) (*domain.Metrics, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE id = $1)`, subscriptionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup subscription for metrics: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, subscriptionID)
	}

	m := &domain.Metrics{SubscriptionID: subscriptionID}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'available'),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE status = 'acked'),
			COUNT(*) FILTER (WHERE status = 'dlq')
		FROM subscription_messages
		WHERE subscription_id = $1
	`, subscriptionID).Scan(&m.Available, &m.Delivered, &m.Acked, &m.DLQ)
	if err == pgx.ErrNoRows {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	return m, nil
}

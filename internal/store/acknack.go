package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kestrel-broker/kestrel/internal/metrics"
)

// Ack finalizes delivery of the given message ids owned by
// subscriptionID that are currently in `delivered`. Ids not in that
// state (already acked, rescheduled, or in DLQ) are silently skipped —
// ack is idempotent. Returns the count of rows transitioned.
func (s *PostgresStore) Ack(ctx context.Context, subscriptionID string, messageIDs []string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	ct, err := s.pool.Exec(ctx, `
		UPDATE subscription_messages
		SET status = 'acked', acked_at = $3, locked_at = NULL, locked_by = NULL
		WHERE subscription_id = $1 AND id = ANY($2) AND status = 'delivered'
	`, subscriptionID, messageIDs, now)
	if err != nil {
		return 0, fmt.Errorf("ack: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

// Nack reschedules or DLQ-promotes the given message ids owned by
// subscriptionID that are currently in `delivered`. Ids not in that
// state are silently skipped. Returns the count of rows transitioned.
func (s *PostgresStore) Nack(ctx context.Context, subscriptionID string, messageIDs []string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var maxAttempts, backoffMin, backoffMax int
	err = tx.QueryRow(ctx, `
		SELECT max_delivery_attempts, backoff_min_seconds, backoff_max_seconds FROM subscriptions WHERE id = $1
	`, subscriptionID).Scan(&maxAttempts, &backoffMin, &backoffMax)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, subscriptionID)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup subscription for nack: %w", err)
	}

	now := time.Now().UTC()

	// Promote to DLQ: delivery_attempts has already reached the bound.
	// available_at is left unchanged.
	ctDLQ, err := tx.Exec(ctx, `
		UPDATE subscription_messages
		SET status = 'dlq', locked_at = NULL, locked_by = NULL
		WHERE subscription_id = $1 AND id = ANY($2) AND status = 'delivered' AND delivery_attempts >= $3
	`, subscriptionID, messageIDs, maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("nack dlq promotion: %w", err)
	}

	// Reschedule with exponential backoff: min(backoff_max, backoff_min * 2^attempts).
	ctRetry, err := tx.Exec(ctx, `
		UPDATE subscription_messages
		SET status = 'available',
			locked_at = NULL,
			locked_by = NULL,
			available_at = $2 + (LEAST($5, $4 * POWER(2, delivery_attempts)) * INTERVAL '1 second')
		WHERE subscription_id = $1 AND id = ANY($6) AND status = 'delivered' AND delivery_attempts < $3
	`, subscriptionID, now, maxAttempts, backoffMin, backoffMax, messageIDs)
	if err != nil {
		return 0, fmt.Errorf("nack reschedule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit nack: %w", err)
	}
	metrics.AddDLQPromotions(int(ctDLQ.RowsAffected()))

	return int(ctDLQ.RowsAffected() + ctRetry.RowsAffected()), nil
}

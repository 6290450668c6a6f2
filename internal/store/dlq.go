package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-broker/kestrel/internal/domain"
)

// ListDLQ returns dead-lettered messages for subscriptionID ordered by
// created_at ascending, paginated.
func (s *PostgresStore) ListDLQ(ctx context.Context, subscriptionID string, offset, limit int) ([]*domain.Message, error) {
	offset, limit = NormalizePagination(offset, limit)
	rows, err := s.pool.Query(ctx, `
		SELECT id, subscription_id, payload, status, delivery_attempts, available_at, locked_at, locked_by, created_at, acked_at
		FROM subscription_messages
		WHERE subscription_id = $1 AND status = 'dlq'
		ORDER BY created_at ASC
		OFFSET $2 LIMIT $3
	`, subscriptionID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list dlq: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dlq message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// ReprocessDLQ moves the given dlq-state message ids back to available,
// resetting delivery_attempts to 0 and available_at to now. Ids not
// currently in dlq are silently skipped.
func (s *PostgresStore) ReprocessDLQ(ctx context.Context, subscriptionID string, messageIDs []string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	ct, err := s.pool.Exec(ctx, `
		UPDATE subscription_messages
		SET status = 'available', delivery_attempts = 0, available_at = $3
		WHERE subscription_id = $1 AND id = ANY($2) AND status = 'dlq'
	`, subscriptionID, messageIDs, now)
	if err != nil {
		return 0, fmt.Errorf("reprocess dlq: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-broker/kestrel/internal/domain"
)

// Consume atomically selects up to batchSize available messages for
// subscriptionID, locks them non-blockingly (FOR UPDATE SKIP LOCKED),
// and marks them delivered to consumerID. Returns an empty,
// non-nil slice when nothing is available — that is a legitimate
// success, not an error.
func (s *PostgresStore) Consume(ctx context.Context, subscriptionID, consumerID string, batchSize int) ([]*domain.Message, error) {
	if batchSize < 1 {
		batchSize = 1
	}
	if batchSize > 100 {
		batchSize = 100
	}

	now := time.Now().UTC()
	rows, err := s.pool.Query(ctx, `
		WITH candidate AS (
			SELECT id
			FROM subscription_messages
			WHERE subscription_id = $1
			  AND status = 'available'
			  AND available_at <= $2
			ORDER BY available_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $3
		), updated AS (
			UPDATE subscription_messages m
			SET status = 'delivered',
				locked_at = $2,
				locked_by = $4,
				delivery_attempts = m.delivery_attempts + 1
			FROM candidate c
			WHERE m.id = c.id
			RETURNING m.id, m.subscription_id, m.payload, m.status, m.delivery_attempts,
				m.available_at, m.locked_at, m.locked_by, m.created_at, m.acked_at
		)
		SELECT id, subscription_id, payload, status, delivery_attempts, available_at, locked_at, locked_by, created_at, acked_at
		FROM updated
		ORDER BY available_at ASC
	`, subscriptionID, now, batchSize, consumerID)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Message, 0, batchSize)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leased message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func scanMessage(scanner rowScanner) (*domain.Message, error) {
	var m domain.Message
	var lockedBy *string
	err := scanner.Scan(&m.ID, &m.SubscriptionID, &m.Payload, &m.Status, &m.DeliveryAttempts,
		&m.AvailableAt, &m.LockedAt, &lockedBy, &m.CreatedAt, &m.AckedAt)
	if err != nil {
		return nil, err
	}
	if lockedBy != nil {
		m.LockedBy = *lockedBy
	}
	return &m, nil
}

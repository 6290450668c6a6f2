package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kestrel-broker/kestrel/internal/domain"
)

// NormalizePagination clamps offset/limit to a sane contract: limit in
// [1,100] (defaulting to 20), offset >= 0.
func NormalizePagination(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return offset, limit
}

// CreateTopic persists a new topic. Fails with ErrTopicAlreadyExists on a
// duplicate id.
func (s *PostgresStore) CreateTopic(ctx context.Context, id string) (*domain.Topic, error) {
	if !domain.ValidIdentifier(id) {
		return nil, fmt.Errorf("%w: topic id must match %s", ErrValidation, domain.IdentifierPattern.String())
	}

	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, `INSERT INTO topics (id, created_at) VALUES ($1, $2)`, id, now)
	if err != nil {
		if isPGUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrTopicAlreadyExists, id)
		}
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	return &domain.Topic{ID: id, CreatedAt: now}, nil
}

// GetTopic looks up a topic by id.
func (s *PostgresStore) GetTopic(ctx context.Context, id string) (*domain.Topic, error) {
	var t domain.Topic
	err := s.pool.QueryRow(ctx, `SELECT id, created_at FROM topics WHERE id = $1`, id).Scan(&t.ID, &t.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return &t, nil
}

// ListTopics returns topics ordered by id ascending, paginated.
func (s *PostgresStore) ListTopics(ctx context.Context, offset, limit int) ([]*domain.Topic, error) {
	offset, limit = NormalizePagination(offset, limit)
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at FROM topics ORDER BY id ASC OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Topic, 0, limit)
	for rows.Next() {
		var t domain.Topic
		if err := rows.Scan(&t.ID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// DeleteTopic deletes a topic and, by cascade, all descendant
// subscriptions and messages.
func (s *PostgresStore) DeleteTopic(ctx context.Context, id string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrTopicNotFound, id)
	}
	return nil
}

// CreateSubscription persists a new subscription under topicID. Caller
// is expected to have already applied the config-level defaults for any
// omitted tunables.
func (s *PostgresStore) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	if !domain.ValidIdentifier(sub.ID) {
		return fmt.Errorf("%w: subscription id must match %s", ErrValidation, domain.IdentifierPattern.String())
	}
	if !domain.ValidIdentifier(sub.TopicID) {
		return fmt.Errorf("%w: topic_id must match %s", ErrValidation, domain.IdentifierPattern.String())
	}
	if sub.MaxDeliveryAttempts < 1 {
		return fmt.Errorf("%w: max_delivery_attempts must be >= 1", ErrValidation)
	}
	if sub.BackoffMinSeconds < 1 {
		return fmt.Errorf("%w: backoff_min_seconds must be >= 1", ErrValidation)
	}
	if sub.BackoffMaxSeconds < sub.BackoffMinSeconds {
		return fmt.Errorf("%w: backoff_max_seconds must be >= backoff_min_seconds", ErrValidation)
	}

	sub.CreatedAt = time.Now().UTC()
	filterJSON := domain.Filter(sub.Filter)
	if filterJSON == nil {
		filterJSON = domain.Filter{}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM topics WHERE id = $1)`, sub.TopicID).Scan(&exists); err != nil {
		return fmt.Errorf("lookup topic: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrTopicNotFound, sub.TopicID)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO subscriptions (id, topic_id, filter, max_delivery_attempts, backoff_min_seconds, backoff_max_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sub.ID, sub.TopicID, filterJSON, sub.MaxDeliveryAttempts, sub.BackoffMinSeconds, sub.BackoffMaxSeconds, sub.CreatedAt); err != nil {
		if isPGUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrSubscriptionAlreadyExists, sub.ID)
		}
		return fmt.Errorf("insert subscription: %w", err)
	}

	return tx.Commit(ctx)
}

// GetSubscription returns a subscription with its live per-state counts
// attached.
func (s *PostgresStore) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT s.id, s.topic_id, s.filter, s.max_delivery_attempts, s.backoff_min_seconds, s.backoff_max_seconds, s.created_at,
			COALESCE(c.available, 0), COALESCE(c.delivered, 0), COALESCE(c.acked, 0), COALESCE(c.dlq, 0)
		FROM subscriptions s
		LEFT JOIN LATERAL (
			SELECT
				COUNT(*) FILTER (WHERE status = 'available') AS available,
				COUNT(*) FILTER (WHERE status = 'delivered') AS delivered,
				COUNT(*) FILTER (WHERE status = 'acked') AS acked,
				COUNT(*) FILTER (WHERE status = 'dlq') AS dlq
			FROM subscription_messages m
			WHERE m.subscription_id = s.id
		) c ON TRUE
		WHERE s.id = $1
	`, id)
	return scanSubscription(row)
}

// ListSubscriptions returns subscriptions ordered by id ascending,
// paginated, each with its live per-state counts attached.
func (s *PostgresStore) ListSubscriptions(ctx context.Context, offset, limit int) ([]*domain.Subscription, error) {
	offset, limit = NormalizePagination(offset, limit)
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.topic_id, s.filter, s.max_delivery_attempts, s.backoff_min_seconds, s.backoff_max_seconds, s.created_at,
			COALESCE(c.available, 0), COALESCE(c.delivered, 0), COALESCE(c.acked, 0), COALESCE(c.dlq, 0)
		FROM subscriptions s
		LEFT JOIN LATERAL (
			SELECT
				COUNT(*) FILTER (WHERE status = 'available') AS available,
				COUNT(*) FILTER (WHERE status = 'delivered') AS delivered,
				COUNT(*) FILTER (WHERE status = 'acked') AS acked,
				COUNT(*) FILTER (WHERE status = 'dlq') AS dlq
			FROM subscription_messages m
			WHERE m.subscription_id = s.id
		) c ON TRUE
		ORDER BY s.id ASC OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Subscription, 0, limit)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// DeleteSubscription deletes a subscription and, by cascade, all its
// messages.
func (s *PostgresStore) DeleteSubscription(ctx context.Context, id string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*domain.Subscription, error) {
	var sub domain.Subscription
	var filter domain.Filter
	err := row.Scan(
		&sub.ID, &sub.TopicID, &filter, &sub.MaxDeliveryAttempts, &sub.BackoffMinSeconds, &sub.BackoffMaxSeconds, &sub.CreatedAt,
		&sub.Available, &sub.Delivered, &sub.Acked, &sub.DLQCount,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w", ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.Filter = filter
	return &sub, nil
}

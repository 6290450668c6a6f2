package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kestrel-broker/kestrel/internal/domain"
)

// Publish fans a batch of envelopes out to every subscription on
// topicID, inserting one available message row per (subscription,
// envelope) match. Non-object elements of rawMessages are silently
// dropped. Returns the total inserted row count.
//
// An envelope may carry a reserved top-level "dedupe_key" string field;
// when present, a repeat publish with the same (subscription_id,
// dedupe_key) is a no-op for that subscription — the field is stored
// as part of the payload as well as used for dedup, so omitting it
// reproduces plain fan-out semantics.
func (s *PostgresStore) Publish(ctx context.Context, topicID string, rawMessages []any) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var topicExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM topics WHERE id = $1)`, topicID).Scan(&topicExists); err != nil {
		return 0, fmt.Errorf("lookup topic: %w", err)
	}
	if !topicExists {
		return 0, fmt.Errorf("%w: %s", ErrTopicNotFound, topicID)
	}

	objects := make([]map[string]any, 0, len(rawMessages))
	for _, raw := range rawMessages {
		if m, ok := raw.(map[string]any); ok {
			objects = append(objects, m)
		}
	}
	if len(objects) == 0 {
		return 0, tx.Commit(ctx)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, filter FROM subscriptions WHERE topic_id = $1
	`, topicID)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions for publish: %w", err)
	}
	type target struct {
		ID     string
		Filter domain.Filter
	}
	targets := make([]target, 0)
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.ID, &t.Filter); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan subscription for publish: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate subscriptions for publish: %w", err)
	}
	rows.Close()

	now := time.Now().UTC()
	inserted := 0
	notify := make([]string, 0, len(targets))
	for _, t := range targets {
		touched := false
		for _, m := range objects {
			if !domain.MatchesFilter(t.Filter, m) {
				continue
			}
			payload, err := json.Marshal(m)
			if err != nil {
				return 0, fmt.Errorf("marshal payload: %w", err)
			}
			dedupeKey := dedupeKeyOf(m)

			ct, err := tx.Exec(ctx, `
				INSERT INTO subscription_messages
					(id, subscription_id, payload, status, delivery_attempts, available_at, created_at, dedupe_key)
				VALUES ($1, $2, $3, $4, 0, $5, $5, $6)
				ON CONFLICT (subscription_id, dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
			`, uuid.New().String(), t.ID, payload, domain.StatusAvailable, now, dedupeKey)
			if err != nil {
				return 0, fmt.Errorf("insert subscription message: %w", err)
			}
			if ct.RowsAffected() > 0 {
				inserted += int(ct.RowsAffected())
				touched = true
			}
		}
		if touched {
			notify = append(notify, t.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	for _, subID := range notify {
		s.notifier.Notify(ctx, subID)
	}
	return inserted, nil
}

func dedupeKeyOf(m map[string]any) *string {
	v, ok := m["dedupe_key"]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// ListMessages returns the most recently published envelopes for a
// topic, newest first, one entry per subscription copy (an envelope
// fanned out to N subscriptions appears N times). For observability
// only; not consumer-facing.
func (s *PostgresStore) ListMessages(ctx context.Context, topicID string, limit int) ([]json.RawMessage, error) {
	_, limit = NormalizePagination(0, limit)
	rows, err := s.pool.Query(ctx, `
		SELECT m.payload
		FROM subscription_messages m
		JOIN subscriptions s ON s.id = m.subscription_id
		WHERE s.topic_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2
	`, topicID, limit)
	if err != nil {
		return nil, fmt.Errorf("list topic messages: %w", err)
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0, limit)
	for rows.Next() {
		var payload json.RawMessage
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan topic message: %w", err)
		}
		out = append(out, payload)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrel-broker/kestrel/internal/logging"
)

// UnlockStuck clears the lease on every `delivered` row whose locked_at
// predates now-lockTimeout, returning it to `available`. delivery_attempts
// and available_at are untouched, so the next Consume re-leases the row
// immediately and bumps attempts itself.
func (s *PostgresStore) UnlockStuck(ctx context.Context, lockTimeout time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-lockTimeout)
	ct, err := s.pool.Exec(ctx, `
		UPDATE subscription_messages
		SET status = 'available', locked_at = NULL, locked_by = NULL
		WHERE status = 'delivered' AND locked_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("unlock stuck: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

// subscriptionMessageRow is the JSON shape archived to cold storage
// before an acked-GC sweep deletes the underlying row.
type subscriptionMessageRow struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      time.Time       `json:"created_at"`
	AckedAt        *time.Time      `json:"acked_at,omitempty"`
}

// GCAcked deletes rows with status='acked' and acked_at older than
// now-retentionAge. If an Archiver is installed, the batch
// being deleted is first written to cold storage, grouped by
// subscription; archive failures are logged and do not block GC —
// archival is best-effort, the delete is the source of truth.
func (s *PostgresStore) GCAcked(ctx context.Context, retentionAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retentionAge)

	if s.archiver != nil {
		if err := s.archiveAckedBefore(ctx, cutoff); err != nil {
			logging.Op().Warn("archive acked messages before gc failed", "error", err)
		}
	}

	ct, err := s.pool.Exec(ctx, `
		DELETE FROM subscription_messages WHERE status = 'acked' AND acked_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("gc acked: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

func (s *PostgresStore) archiveAckedBefore(ctx context.Context, cutoff time.Time) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, subscription_id, payload, created_at, acked_at
		FROM subscription_messages
		WHERE status = 'acked' AND acked_at < $1
		ORDER BY subscription_id ASC
	`, cutoff)
	if err != nil {
		return fmt.Errorf("select acked for archive: %w", err)
	}
	defer rows.Close()

	bySub := make(map[string][]subscriptionMessageRow)
	for rows.Next() {
		var r subscriptionMessageRow
		if err := rows.Scan(&r.ID, &r.SubscriptionID, &r.Payload, &r.CreatedAt, &r.AckedAt); err != nil {
			return fmt.Errorf("scan acked for archive: %w", err)
		}
		bySub[r.SubscriptionID] = append(bySub[r.SubscriptionID], r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for subID, batch := range bySub {
		data, err := json.Marshal(batch)
		if err != nil {
			return fmt.Errorf("marshal archive batch: %w", err)
		}
		if err := s.archiver.ArchiveAcked(ctx, subID, data); err != nil {
			return fmt.Errorf("archive subscription %s: %w", subID, err)
		}
	}
	return nil
}

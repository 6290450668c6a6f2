package main

import (
	"context"
	"time"

	"github.com/kestrel-broker/kestrel/internal/config"
	"github.com/kestrel-broker/kestrel/internal/domain"
	"github.com/kestrel-broker/kestrel/internal/logging"
	"github.com/kestrel-broker/kestrel/internal/metrics"
	"github.com/kestrel-broker/kestrel/internal/store"
)

func seedOneSubscription(ctx context.Context, s *store.PostgresStore, cfg *config.Config, topicID string, seed config.SeedSubscription) {
	sub := &domain.Subscription{
		ID:                  seed.ID,
		TopicID:             topicID,
		MaxDeliveryAttempts: seed.MaxDeliveryAttempts,
		BackoffMinSeconds:   seed.BackoffMinSeconds,
		BackoffMaxSeconds:   seed.BackoffMaxSeconds,
	}
	if filter, err := domain.ValidateFilter(seed.Filter); err == nil {
		sub.Filter = filter
	} else {
		logging.Op().Warn("seed subscription has invalid filter", "subscription_id", seed.ID, "error", err)
	}
	if sub.MaxDeliveryAttempts == 0 {
		sub.MaxDeliveryAttempts = cfg.Defaults.MaxDeliveryAttempts
	}
	if sub.BackoffMinSeconds == 0 {
		sub.BackoffMinSeconds = cfg.Defaults.BackoffMinSeconds
	}
	if sub.BackoffMaxSeconds == 0 {
		sub.BackoffMaxSeconds = cfg.Defaults.BackoffMaxSeconds
	}
	if err := s.CreateSubscription(ctx, sub); err != nil && !isAlreadyExists(err) {
		logging.Op().Warn("seed subscription failed", "subscription_id", seed.ID, "error", err)
	}
}

// runJanitorLoop runs the unlock and GC sweeps on cfg.Janitor.Interval until
// stop is closed or ctx is cancelled.
func runJanitorLoop(ctx context.Context, s *store.PostgresStore, cfg *config.Config, stop <-chan struct{}) {
	ticker := time.NewTicker(cfg.Janitor.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			sweepOnce(ctx, s, cfg)
		}
	}
}

func sweepOnce(ctx context.Context, s *store.PostgresStore, cfg *config.Config) {
	unlocked, err := s.UnlockStuck(ctx, cfg.Janitor.LockTimeout)
	if err != nil {
		logging.Op().Error("janitor unlock sweep failed", "error", err)
	} else {
		metrics.AddJanitorUnlocked(unlocked)
		if unlocked > 0 {
			logging.Op().Info("janitor unlocked stuck leases", "count", unlocked)
		}
	}

	gced, err := s.GCAcked(ctx, cfg.Janitor.RetentionAge)
	if err != nil {
		logging.Op().Error("janitor gc sweep failed", "error", err)
	} else {
		metrics.AddJanitorGCed(gced)
		if gced > 0 {
			logging.Op().Info("janitor garbage-collected acked messages", "count", gced)
		}
	}

	for offset := 0; ; offset += 100 {
		subs, err := s.ListSubscriptions(ctx, offset, 100)
		if err != nil {
			logging.Op().Error("janitor subscription gauge refresh failed", "error", err)
			break
		}
		for _, sub := range subs {
			metrics.SetSubscriptionState(sub.ID, int64(sub.Available), int64(sub.Delivered), int64(sub.Acked), int64(sub.DLQCount))
		}
		if len(subs) < 100 {
			break
		}
	}
}

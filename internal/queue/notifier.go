// Package queue provides a push-based wake-up accelerator for consumer
// polling loops. It complements, never replaces, the store-backed poll:
// a missed notification is always recovered by the next poll tick, so
// every Notifier implementation — including the default no-op — keeps
// the broker fully correct on its own.
package queue

import (
	"context"

	"github.com/kestrel-broker/kestrel/internal/logging"
)

// Notifier signals that new messages may be available on a
// subscription. Notify is fire-and-forget: implementations log their
// own failures and never propagate an error to the publish path.
type Notifier interface {
	Notify(ctx context.Context, subscriptionID string)
}

// NoopNotifier never sends anything; consumers rely purely on polling.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

func (NoopNotifier) Notify(context.Context, string) {}

func warnNotifyFailed(subscriptionID string, err error) {
	logging.Op().Warn("notify subscription failed", "subscription_id", subscriptionID, "error", err)
}

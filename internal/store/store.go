package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kestrel-broker/kestrel/internal/domain"
)

// BrokerStore is the message-flow engine's persistence contract. Every
// method is exactly one transaction; PostgresStore is the only
// production implementation, and the interface exists so the API and CLI
// layers can be exercised against a stub in tests.
type BrokerStore interface {
	Close() error
	Ping(ctx context.Context) error

	CreateTopic(ctx context.Context, id string) (*domain.Topic, error)
	GetTopic(ctx context.Context, id string) (*domain.Topic, error)
	ListTopics(ctx context.Context, offset, limit int) ([]*domain.Topic, error)
	DeleteTopic(ctx context.Context, id string) error

	CreateSubscription(ctx context.Context, sub *domain.Subscription) error
	GetSubscription(ctx context.Context, id string) (*domain.Subscription, error)
	ListSubscriptions(ctx context.Context, offset, limit int) ([]*domain.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error

	Publish(ctx context.Context, topicID string, rawMessages []any) (int, error)
	ListMessages(ctx context.Context, topicID string, limit int) ([]json.RawMessage, error)

	Consume(ctx context.Context, subscriptionID, consumerID string, batchSize int) ([]*domain.Message, error)

	Ack(ctx context.Context, subscriptionID string, messageIDs []string) (int, error)
	Nack(ctx context.Context, subscriptionID string, messageIDs []string) (int, error)

	ListDLQ(ctx context.Context, subscriptionID string, offset, limit int) ([]*domain.Message, error)
	ReprocessDLQ(ctx context.Context, subscriptionID string, messageIDs []string) (int, error)

	UnlockStuck(ctx context.Context, lockTimeout time.Duration) (int, error)
	GCAcked(ctx context.Context, retentionAge time.Duration) (int, error)

	Metrics(ctx context.Context, subscriptionID string) (*domain.Metrics, error)
}

var _ BrokerStore = (*PostgresStore)(nil)

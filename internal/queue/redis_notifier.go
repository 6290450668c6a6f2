package queue

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
)

const redisChannelPrefix = "kestrel:sub:wake:"

// RedisNotifier is a distributed, Redis-backed wake-up notifier: PUBLISH
// on successful publish, SUBSCRIBE from a long-polling consumer loop, so
// a waiting consumer wakes immediately instead of waiting out its poll
// interval. Purely a latency accelerator — never load-bearing for
// correctness.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Notify publishes a wake-up signal for subscriptionID. Failures are
// logged, never returned — a missed notification just means the next
// poll tick finds the message instead.
func (n *RedisNotifier) Notify(ctx context.Context, subscriptionID string) {
	if err := n.client.Publish(ctx, redisChannelPrefix+subscriptionID, "1").Err(); err != nil {
		warnNotifyFailed(subscriptionID, err)
	}
}

// Wait blocks until either a wake-up signal arrives for subscriptionID
// or the context is cancelled or reaches its deadline — whichever is
// first. A
// long-polling consume loop calls this between poll attempts instead of
// sleeping a fixed interval.
func (n *RedisNotifier) Wait(ctx context.Context, subscriptionID string) {
	pubsub := n.client.Subscribe(ctx, redisChannelPrefix+subscriptionID)
	defer pubsub.Close()

	var once sync.Once
	done := make(chan struct{})
	go func() {
		<-pubsub.Channel()
		once.Do(func() { close(done) })
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
}

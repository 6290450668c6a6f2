package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kestrel-broker/kestrel/internal/config"
	"github.com/kestrel-broker/kestrel/internal/domain"
	"github.com/kestrel-broker/kestrel/internal/store"
)

// fakeStore is a minimal in-memory stand-in for store.BrokerStore, enough
// to exercise the control-plane routing and error-mapping without a
// database.
type fakeStore struct {
	topics map[string]*domain.Topic
	subs   map[string]*domain.Subscription
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		topics: make(map[string]*domain.Topic),
		subs:   make(map[string]*domain.Subscription),
	}
}

func (f *fakeStore) Close() error              { return nil }
func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) CreateTopic(ctx context.Context, id string) (*domain.Topic, error) {
	if _, ok := f.topics[id]; ok {
		return nil, fmt.Errorf("%w: %s", store.ErrTopicAlreadyExists, id)
	}
	t := &domain.Topic{ID: id, CreatedAt: time.Now().UTC()}
	f.topics[id] = t
	return t, nil
}

func (f *fakeStore) GetTopic(ctx context.Context, id string) (*domain.Topic, error) {
	t, ok := f.topics[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrTopicNotFound, id)
	}
	return t, nil
}

func (f *fakeStore) ListTopics(ctx context.Context, offset, limit int) ([]*domain.Topic, error) {
	var out []*domain.Topic
	for _, t := range f.topics {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) DeleteTopic(ctx context.Context, id string) error {
	if _, ok := f.topics[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrTopicNotFound, id)
	}
	delete(f.topics, id)
	return nil
}

func (f *fakeStore) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	if _, ok := f.subs[sub.ID]; ok {
		return fmt.Errorf("%w: %s", store.ErrSubscriptionAlreadyExists, sub.ID)
	}
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeStore) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSubscriptionNotFound, id)
	}
	return s, nil
}

func (f *fakeStore) ListSubscriptions(ctx context.Context, offset, limit int) ([]*domain.Subscription, error) {
	var out []*domain.Subscription
	for _, s := range f.subs {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) DeleteSubscription(ctx context.Context, id string) error {
	if _, ok := f.subs[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrSubscriptionNotFound, id)
	}
	delete(f.subs, id)
	return nil
}

func (f *fakeStore) Publish(ctx context.Context, topicID string, rawMessages []any) (int, error) {
	if _, ok := f.topics[topicID]; !ok {
		return 0, fmt.Errorf("%w: %s", store.ErrTopicNotFound, topicID)
	}
	return len(rawMessages), nil
}

func (f *fakeStore) ListMessages(ctx context.Context, topicID string, limit int) ([]json.RawMessage, error) {
	return nil, nil
}

func (f *fakeStore) Consume(ctx context.Context, subscriptionID, consumerID string, batchSize int) ([]*domain.Message, error) {
	return []*domain.Message{}, nil
}

func (f *fakeStore) Ack(ctx context.Context, subscriptionID string, messageIDs []string) (int, error) {
	return len(messageIDs), nil
}

func (f *fakeStore) Nack(ctx context.Context, subscriptionID string, messageIDs []string) (int, error) {
	return len(messageIDs), nil
}

func (f *fakeStore) ListDLQ(ctx context.Context, subscriptionID string, offset, limit int) ([]*domain.Message, error) {
	return nil, nil
}

func (f *fakeStore) ReprocessDLQ(ctx context.Context, subscriptionID string, messageIDs []string) (int, error) {
	return len(messageIDs), nil
}

func (f *fakeStore) UnlockStuck(ctx context.Context, lockTimeout time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeStore) GCAcked(ctx context.Context, retentionAge time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeStore) Metrics(ctx context.Context, subscriptionID string) (*domain.Metrics, error) {
	if _, ok := f.subs[subscriptionID]; !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSubscriptionNotFound, subscriptionID)
	}
	return &domain.Metrics{SubscriptionID: subscriptionID}, nil
}

var _ store.BrokerStore = (*fakeStore)(nil)

// fakeNotifier records Wait calls and returns immediately, standing in
// for a Redis-backed notifier in tests.
type fakeNotifier struct {
	waited []string
}

func (n *fakeNotifier) Wait(ctx context.Context, subscriptionID string) {
	n.waited = append(n.waited, subscriptionID)
}

var _ Notifier = (*fakeNotifier)(nil)

func newTestRouter(s store.BrokerStore) http.Handler {
	return NewRouter(s, config.SubscriptionDefaults{MaxDeliveryAttempts: 5, BackoffMinSeconds: 1, BackoffMaxSeconds: 60}, nil)
}

func newTestRouterWithNotifier(s store.BrokerStore, n Notifier) http.Handler {
	return NewRouter(s, config.SubscriptionDefaults{MaxDeliveryAttempts: 5, BackoffMinSeconds: 1, BackoffMaxSeconds: 60}, n)
}

func TestCreateAndGetTopic(t *testing.T) {
	router := newTestRouter(newFakeStore())

	body := bytes.NewBufferString(`{"id":"orders"}`)
	req := httptest.NewRequest(http.MethodPost, "/topics", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create topic: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/topics/orders", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get topic: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/topics/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get missing topic: expected 404, got %d", rec.Code)
	}
	var body404 map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body404); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if _, ok := body404["detail"]; !ok {
		t.Fatal("expected a detail field in the error body")
	}
}

func TestCreateTopicConflict(t *testing.T) {
	s := newFakeStore()
	router := newTestRouter(s)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/topics", bytes.NewBufferString(`{"id":"orders"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if i == 0 && rec.Code != http.StatusCreated {
			t.Fatalf("first create: expected 201, got %d", rec.Code)
		}
		if i == 1 && rec.Code != http.StatusConflict {
			t.Fatalf("second create: expected 409, got %d", rec.Code)
		}
	}
}

func TestCreateSubscriptionAppliesDefaults(t *testing.T) {
	s := newFakeStore()
	s.topics["orders"] = &domain.Topic{ID: "orders"}
	router := newTestRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewBufferString(`{"id":"sub-1","topic_id":"orders"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if s.subs["sub-1"].MaxDeliveryAttempts != 5 {
		t.Fatalf("expected default max_delivery_attempts 5, got %d", s.subs["sub-1"].MaxDeliveryAttempts)
	}
}

func TestCreateSubscriptionInvalidFilter(t *testing.T) {
	router := newTestRouter(newFakeStore())
	req := httptest.NewRequest(http.MethodPost, "/subscriptions",
		bytes.NewBufferString(`{"id":"sub-1","topic_id":"orders","filter":{"country":"not-an-array"}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid filter, got %d", rec.Code)
	}
}

func TestAckAlwaysNoContent(t *testing.T) {
	s := newFakeStore()
	s.subs["sub-1"] = &domain.Subscription{ID: "sub-1"}
	router := newTestRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/sub-1/acks", bytes.NewBufferString(`[]`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 even for an empty ack batch, got %d", rec.Code)
	}
}

func TestConsumeRequiresConsumerID(t *testing.T) {
	s := newFakeStore()
	s.subs["sub-1"] = &domain.Subscription{ID: "sub-1"}
	router := newTestRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without consumer_id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1/messages?consumer_id=worker-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with consumer_id, got %d", rec.Code)
	}
}

func TestReadinessReflectsPingError(t *testing.T) {
	s := newFakeStore()
	router := newTestRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/readiness", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when store is reachable, got %d", rec.Code)
	}

	s.pingErr = fmt.Errorf("connection refused")
	req = httptest.NewRequest(http.MethodGet, "/readiness", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when store is unreachable, got %d", rec.Code)
	}
}

func TestListTopicsRejectsOutOfRangePagination(t *testing.T) {
	router := newTestRouter(newFakeStore())

	cases := []string{
		"/topics?offset=-1",
		"/topics?limit=0",
		"/topics?limit=101",
		"/topics?offset=abc",
		"/topics?limit=abc",
	}
	for _, path := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/topics?offset=0&limit=50", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for in-range pagination, got %d", rec.Code)
	}
}

func TestConsumeRejectsOutOfRangeBatchSize(t *testing.T) {
	s := newFakeStore()
	s.subs["sub-1"] = &domain.Subscription{ID: "sub-1"}
	router := newTestRouter(s)

	cases := []string{
		"/subscriptions/sub-1/messages?consumer_id=worker-1&batch_size=0",
		"/subscriptions/sub-1/messages?consumer_id=worker-1&batch_size=101",
		"/subscriptions/sub-1/messages?consumer_id=worker-1&batch_size=nope",
	}
	for _, path := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", path, rec.Code)
		}
	}
}

func TestConsumeRejectsOutOfRangeWait(t *testing.T) {
	s := newFakeStore()
	s.subs["sub-1"] = &domain.Subscription{ID: "sub-1"}
	router := newTestRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1/messages?consumer_id=worker-1&wait=21", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for wait above the cap, got %d", rec.Code)
	}
}

// TestConsumeLongPollsWhenEmpty asserts that a wait value paired with an
// empty poll result blocks on the notifier's Wait before returning,
// rather than coming back empty immediately.
func TestConsumeLongPollsWhenEmpty(t *testing.T) {
	s := newFakeStore()
	s.subs["sub-1"] = &domain.Subscription{ID: "sub-1"}
	notifier := &fakeNotifier{}
	router := newTestRouterWithNotifier(s, notifier)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1/messages?consumer_id=worker-1&wait=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(notifier.waited) != 1 || notifier.waited[0] != "sub-1" {
		t.Fatalf("expected Wait to be called once for sub-1, got %v", notifier.waited)
	}
}

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerBeforeInit(t *testing.T) {
	active = nil
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)
	if rec.Code != 503 {
		t.Fatalf("expected 503 before Init, got %d", rec.Code)
	}
}

func TestInitAndScrape(t *testing.T) {
	Init("kestrel_test")
	defer func() { active = nil }()

	AddFannedOut(3)
	AddDLQPromotions(1)
	AddJanitorUnlocked(2)
	AddJanitorGCed(5)
	SetSubscriptionState("sub-1", 1, 2, 3, 4)
	ObserveOp("publish", true, 12.5)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"kestrel_test_publish_fanout_total",
		"kestrel_test_dlq_promotions_total",
		"kestrel_test_janitor_unlocked_total",
		"kestrel_test_janitor_gc_total",
		"kestrel_test_subscription_messages",
		"kestrel_test_operations_total",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected scrape output to contain %q", want)
		}
	}
}

func TestRecordingHelpersNoopWithoutInit(t *testing.T) {
	active = nil
	// None of these should panic when no registry is active.
	AddFannedOut(1)
	AddDLQPromotions(1)
	AddJanitorUnlocked(1)
	AddJanitorGCed(1)
	SetSubscriptionState("sub-1", 0, 0, 0, 0)
	ObserveOp("publish", false, 1)
}

package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kestrel-broker/kestrel/internal/domain"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"json":  FormatJSON,
		"JSON":  FormatJSON,
		"yaml":  FormatYAML,
		"yml":   FormatYAML,
		"table": FormatTable,
		"":      FormatTable,
		"xml":   FormatTable,
	}
	for in, want := range cases {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrintTopicsJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(FormatJSON)
	p.SetWriter(&buf)

	topics := []*domain.Topic{{ID: "orders", CreatedAt: time.Unix(0, 0).UTC()}}
	if err := p.PrintTopics(topics); err != nil {
		t.Fatalf("PrintTopics: %v", err)
	}

	var decoded []*domain.Topic
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ID != "orders" {
		t.Fatalf("unexpected decoded topics: %+v", decoded)
	}
}

func TestPrintTopicsTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(FormatTable)
	p.SetWriter(&buf)

	if err := p.PrintTopics(nil); err != nil {
		t.Fatalf("PrintTopics: %v", err)
	}
	if !strings.Contains(buf.String(), "No topics found") {
		t.Fatalf("expected empty-state message, got %q", buf.String())
	}
}

func TestPrintSubscriptionsTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(FormatTable)
	p.noColor = true
	p.SetWriter(&buf)

	subs := []*domain.Subscription{{
		ID: "sub-1", TopicID: "orders", MaxDeliveryAttempts: 5,
		Available: 3, Delivered: 1, Acked: 10, DLQCount: 0,
	}}
	if err := p.PrintSubscriptions(subs); err != nil {
		t.Fatalf("PrintSubscriptions: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "sub-1") || !strings.Contains(out, "orders") {
		t.Fatalf("expected row data in table output, got %q", out)
	}
}

func TestPrintMetricsYAML(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(FormatYAML)
	p.SetWriter(&buf)

	m := &domain.Metrics{SubscriptionID: "sub-1", Available: 1, Delivered: 2, Acked: 3, DLQ: 4}
	if err := p.PrintMetrics(m); err != nil {
		t.Fatalf("PrintMetrics: %v", err)
	}
	if !strings.Contains(buf.String(), "sub-1") {
		t.Fatalf("expected subscription id in yaml output, got %q", buf.String())
	}
}

package store

import "testing"

func TestNormalizePagination(t *testing.T) {
	cases := []struct {
		offset, limit         int
		wantOffset, wantLimit int
	}{
		{0, 0, 0, 20},
		{-5, 10, 0, 10},
		{3, 500, 3, 100},
		{3, -1, 3, 20},
		{10, 50, 10, 50},
	}
	for _, c := range cases {
		gotOffset, gotLimit := NormalizePagination(c.offset, c.limit)
		if gotOffset != c.wantOffset || gotLimit != c.wantLimit {
			t.Fatalf("NormalizePagination(%d, %d) = (%d, %d), want (%d, %d)",
				c.offset, c.limit, gotOffset, gotLimit, c.wantOffset, c.wantLimit)
		}
	}
}

func TestDedupeKeyOf(t *testing.T) {
	if k := dedupeKeyOf(map[string]any{}); k != nil {
		t.Fatalf("expected nil for missing dedupe_key, got %v", *k)
	}
	if k := dedupeKeyOf(map[string]any{"dedupe_key": ""}); k != nil {
		t.Fatalf("expected nil for empty dedupe_key, got %v", *k)
	}
	if k := dedupeKeyOf(map[string]any{"dedupe_key": 5.0}); k != nil {
		t.Fatalf("expected nil for non-string dedupe_key, got %v", *k)
	}
	k := dedupeKeyOf(map[string]any{"dedupe_key": "order-1"})
	if k == nil || *k != "order-1" {
		t.Fatalf("expected 'order-1', got %v", k)
	}
}

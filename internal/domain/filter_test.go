package domain

import "testing"

func TestMatchesFilter_AcceptsAllWhenEmpty(t *testing.T) {
	if !MatchesFilter(nil, map[string]any{"k": 1.0}) {
		t.Fatal("nil filter should accept everything")
	}
	if !MatchesFilter(Filter{}, map[string]any{"k": 1.0}) {
		t.Fatal("empty filter should accept everything")
	}
}

func TestMatchesFilter_StringCoercion(t *testing.T) {
	f := Filter{"country": {"BR"}}
	if !MatchesFilter(f, map[string]any{"country": "BR"}) {
		t.Fatal("expected BR to match")
	}
	if MatchesFilter(f, map[string]any{"country": "US"}) {
		t.Fatal("expected US to not match")
	}
	if MatchesFilter(f, map[string]any{}) {
		t.Fatal("missing field must not match")
	}
}

func TestMatchesFilter_NumericAndBooleanCoercion(t *testing.T) {
	f := Filter{"n": {float64(1), "a", true}}
	if !MatchesFilter(f, map[string]any{"n": float64(1)}) {
		t.Fatal("expected numeric 1 to match text '1'")
	}
	if !MatchesFilter(f, map[string]any{"n": true}) {
		t.Fatal("expected true to match text 'true'")
	}
	if !MatchesFilter(f, map[string]any{"n": "a"}) {
		t.Fatal("expected string 'a' to match")
	}
	if MatchesFilter(f, map[string]any{"n": float64(2)}) {
		t.Fatal("expected 2 to not match")
	}
}

func TestMatchesFilter_NonArrayValueIgnored(t *testing.T) {
	if !MatchesFilter(Filter{"k": nil}, map[string]any{}) {
		t.Fatal("nil/non-array filter value should be ignored, not reject")
	}
}

func TestMatchesFilter_MultiKeyAllMustMatch(t *testing.T) {
	f := Filter{
		"country": {"BR"},
		"tier":    {"gold", "platinum"},
	}
	if !MatchesFilter(f, map[string]any{"country": "BR", "tier": "gold"}) {
		t.Fatal("expected match when both keys satisfy allow-list")
	}
	if MatchesFilter(f, map[string]any{"country": "BR", "tier": "silver"}) {
		t.Fatal("expected no match when one key fails")
	}
}

func TestValidateFilter(t *testing.T) {
	if _, err := ValidateFilter(nil); err != nil {
		t.Fatalf("nil filter should be valid: %v", err)
	}
	if _, err := ValidateFilter(map[string]any{"f": "not_an_array"}); err == nil {
		t.Fatal("expected error for non-array filter value")
	}
	out, err := ValidateFilter(map[string]any{"f": []any{float64(1), "a", true}})
	if err != nil {
		t.Fatalf("expected mixed-primitive array to validate: %v", err)
	}
	if len(out["f"]) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(out["f"]))
	}
	if _, err := ValidateFilter(map[string]any{"f": []any{nil}}); err == nil {
		t.Fatal("expected error for null element")
	}
	if _, err := ValidateFilter(map[string]any{"f": []any{map[string]any{}}}); err == nil {
		t.Fatal("expected error for nested object element")
	}
}

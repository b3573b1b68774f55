package cli

import (
	"testing"

	"github.com/splitlab/splitlab/internal/store"
)

func TestParseVariants_TwoWay(t *testing.T) {
	variants, err := parseVariants("Control:50,Challenger:50")
	if err != nil {
		t.Fatalf("parseVariants failed: %v", err)
	}

	if len(variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(variants))
	}

	if variants[0].ID != "control" || variants[0].Name != "Control" || variants[0].Weight != 50 {
		t.Errorf("unexpected first variant: %+v", variants[0])
	}
	if variants[1].ID != "challenger" || variants[1].Weight != 50 {
		t.Errorf("unexpected second variant: %+v", variants[1])
	}
}

func TestParseVariants_SlugifiesNames(t *testing.T) {
	variants, err := parseVariants("Free Trial CTA:100")
	if err != nil {
		t.Fatalf("parseVariants failed: %v", err)
	}

	if variants[0].ID != "free-trial-cta" {
		t.Errorf("expected slug 'free-trial-cta', got %q", variants[0].ID)
	}
}

func TestParseVariants_Invalid(t *testing.T) {
	cases := []string{
		"Control",        // no weight
		"Control:abc",    // non-numeric weight
		"Control:-5",     // negative weight
		":50",            // empty name
		"Control:50,B:x", // bad second entry
	}

	for _, spec := range cases {
		if _, err := parseVariants(spec); err == nil {
			t.Errorf("expected error for %q, got nil", spec)
		}
	}
}

func TestParseRule_Equals(t *testing.T) {
	rule, err := parseRule("country=US")
	if err != nil {
		t.Fatalf("parseRule failed: %v", err)
	}

	if rule.Type != "country" || rule.Operator != store.OpEquals || rule.Value != "US" {
		t.Errorf("unexpected rule: %+v", rule)
	}
}

func TestParseRule_In(t *testing.T) {
	rule, err := parseRule("plan in pro, team")
	if err != nil {
		t.Fatalf("parseRule failed: %v", err)
	}

	if rule.Type != "plan" || rule.Operator != store.OpIn {
		t.Errorf("unexpected rule: %+v", rule)
	}
	if len(rule.Values) != 2 || rule.Values[0] != "pro" || rule.Values[1] != "team" {
		t.Errorf("unexpected values: %v", rule.Values)
	}
}

func TestParseRule_Invalid(t *testing.T) {
	if _, err := parseRule("country"); err == nil {
		t.Error("expected error for rule without operator")
	}
	if _, err := parseRule("=US"); err == nil {
		t.Error("expected error for rule without attribute")
	}
}

func TestParseContext(t *testing.T) {
	userCtx, err := parseContext([]string{"country=US", "plan=pro"})
	if err != nil {
		t.Fatalf("parseContext failed: %v", err)
	}

	if userCtx["country"] != "US" || userCtx["plan"] != "pro" {
		t.Errorf("unexpected context: %v", userCtx)
	}

	if _, err := parseContext([]string{"country"}); err == nil {
		t.Error("expected error for pair without '='")
	}

	empty, err := parseContext(nil)
	if err != nil || empty != nil {
		t.Errorf("expected nil map for no pairs, got %v, %v", empty, err)
	}
}

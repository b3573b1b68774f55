package engine_test

import (
	"testing"

	"github.com/splitlab/splitlab/internal/engine"
	"github.com/splitlab/splitlab/internal/store"
)

func TestRulesMatch(t *testing.T) {
	tests := []struct {
		name    string
		rules   []store.TargetingRule
		userCtx map[string]string
		want    bool
	}{
		{
			name: "equals match",
			rules: []store.TargetingRule{
				{Type: "country", Operator: store.OpEquals, Value: "US"},
			},
			userCtx: map[string]string{"country": "US"},
			want:    true,
		},
		{
			name: "equals mismatch",
			rules: []store.TargetingRule{
				{Type: "country", Operator: store.OpEquals, Value: "US"},
			},
			userCtx: map[string]string{"country": "CA"},
			want:    false,
		},
		{
			name: "in match",
			rules: []store.TargetingRule{
				{Type: "plan", Operator: store.OpIn, Values: []string{"pro", "team"}},
			},
			userCtx: map[string]string{"plan": "team"},
			want:    true,
		},
		{
			name: "in mismatch",
			rules: []store.TargetingRule{
				{Type: "plan", Operator: store.OpIn, Values: []string{"pro", "team"}},
			},
			userCtx: map[string]string{"plan": "free"},
			want:    false,
		},
		{
			name: "all rules must match",
			rules: []store.TargetingRule{
				{Type: "country", Operator: store.OpEquals, Value: "US"},
				{Type: "plan", Operator: store.OpIn, Values: []string{"pro"}},
			},
			userCtx: map[string]string{"country": "US", "plan": "free"},
			want:    false,
		},
		{
			name: "missing attribute fails closed",
			rules: []store.TargetingRule{
				{Type: "country", Operator: store.OpEquals, Value: "US"},
			},
			userCtx: map[string]string{"plan": "pro"},
			want:    false,
		},
		{
			name: "nil context fails closed",
			rules: []store.TargetingRule{
				{Type: "country", Operator: store.OpEquals, Value: "US"},
			},
			userCtx: nil,
			want:    false,
		},
		{
			name: "unknown operator fails closed",
			rules: []store.TargetingRule{
				{Type: "country", Operator: "matches", Value: "US"},
			},
			userCtx: map[string]string{"country": "US"},
			want:    false,
		},
		{
			name:    "no rules always match",
			rules:   nil,
			userCtx: nil,
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.RulesMatch(tt.rules, tt.userCtx); got != tt.want {
				t.Errorf("RulesMatch() = %v, want %v", got, tt.want)
			}
		})
	}
}

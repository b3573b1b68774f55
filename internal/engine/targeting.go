package engine

import "github.com/splitlab/splitlab/internal/store"

// RulesMatch reports whether the user context satisfies every targeting rule
// (logical AND). A missing context attribute or an unrecognized operator
// never matches, so unknown rule shapes fail closed.
func RulesMatch(rules []store.TargetingRule, userCtx map[string]string) bool {
	for _, rule := range rules {
		if !ruleMatches(rule, userCtx) {
			return false
		}
	}
	return true
}

func ruleMatches(rule store.TargetingRule, userCtx map[string]string) bool {
	value, ok := userCtx[rule.Type]
	if !ok {
		return false
	}

	switch rule.Operator {
	case store.OpEquals:
		return value == rule.Value
	case store.OpIn:
		for _, candidate := range rule.Values {
			if value == candidate {
				return true
			}
		}
		return false
	default:
		return false
	}
}

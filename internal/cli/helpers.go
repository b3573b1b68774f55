package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/splitlab/splitlab/internal/store"
)

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// tokenFilePath returns the path of the API token file, kept alongside the
// database.
func tokenFilePath() string {
	return filepath.Join(filepath.Dir(dbPath), ".splitlab-token")
}

// parseVariants parses a "Name:weight,Name:weight" spec into variants.
// Variant ids are slugs of the names.
func parseVariants(spec string) ([]store.Variant, error) {
	parts := strings.Split(spec, ",")
	variants := make([]store.Variant, 0, len(parts))

	for _, part := range parts {
		name, weightStr, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid variant %q: expected Name:weight", part)
		}

		weight, err := strconv.Atoi(weightStr)
		if err != nil || weight < 0 {
			return nil, fmt.Errorf("invalid weight for variant %q: %q", name, weightStr)
		}

		variants = append(variants, store.Variant{
			ID:     slugify(name),
			Name:   name,
			Weight: weight,
		})
	}

	return variants, nil
}

// parseRule parses a targeting rule flag. Two forms:
//
//	"country=US"          equals rule
//	"plan in pro,team"    in rule
func parseRule(spec string) (store.TargetingRule, error) {
	if attr, list, found := strings.Cut(spec, " in "); found {
		values := strings.Split(list, ",")
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}
		attr = strings.TrimSpace(attr)
		if attr == "" || len(values) == 0 {
			return store.TargetingRule{}, fmt.Errorf("invalid rule %q: expected \"attr in a,b\"", spec)
		}
		return store.TargetingRule{Type: attr, Operator: store.OpIn, Values: values}, nil
	}

	attr, value, found := strings.Cut(spec, "=")
	if !found || strings.TrimSpace(attr) == "" {
		return store.TargetingRule{}, fmt.Errorf("invalid rule %q: expected \"attr=value\" or \"attr in a,b\"", spec)
	}
	return store.TargetingRule{Type: strings.TrimSpace(attr), Operator: store.OpEquals, Value: strings.TrimSpace(value)}, nil
}

// parseContext parses repeated "key=value" flags into a user context map.
func parseContext(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	userCtx := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid context %q: expected key=value", pair)
		}
		userCtx[key] = value
	}
	return userCtx, nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	return strings.Trim(slug, "-")
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}

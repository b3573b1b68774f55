package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/splitlab/splitlab/internal/store"
)

// Bucket maps a (user, experiment) pair to a stable bucket in [0, 100) using
// FNV-1a over "experimentID:userID". The mapping is part of observable
// behavior: the same pair always lands in the same bucket, independent of
// call order, process, or time.
func Bucket(experimentID, userID string) int {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%s", experimentID, userID)
	return int(h.Sum32() % 100)
}

// AssignUser resolves the user's variant for an experiment. An existing
// assignment is returned verbatim with no further checks, even if the
// experiment's status, weights, or targeting changed since it was written.
// First-time resolution requires an active experiment and a user context
// satisfying every targeting rule, then buckets the user deterministically
// across the declared variants.
func (e *Engine) AssignUser(ctx context.Context, userID, experimentID string, userCtx map[string]string) (*store.Assignment, error) {
	existing, err := e.store.GetAssignment(ctx, experimentID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up assignment: %w", err)
	}

	exp, err := e.store.GetExperiment(ctx, experimentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrExperimentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	if exp.Status != store.StatusActive {
		return nil, ErrExperimentNotActive
	}

	if !RulesMatch(exp.TargetingRules, userCtx) {
		return nil, ErrTargetingNotMet
	}

	assignment := &store.Assignment{
		ExperimentID: experimentID,
		UserID:       userID,
		VariantID:    pickVariant(exp.Variants, Bucket(experimentID, userID)),
		AssignedAt:   time.Now(),
	}

	// Create-if-absent at the store: a concurrent first request may have
	// won the race, in which case its row comes back instead of ours.
	stored, err := e.store.CreateAssignment(ctx, assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	return stored, nil
}

// pickVariant walks the variants in declared order, accumulating weights,
// and selects the first variant whose cumulative boundary exceeds the bucket.
func pickVariant(variants []store.Variant, bucket int) string {
	cumulative := 0
	for _, v := range variants {
		cumulative += v.Weight
		if bucket < cumulative {
			return v.ID
		}
	}
	// Unreachable for valid experiments: weights sum to 100 and buckets
	// are below 100.
	return variants[len(variants)-1].ID
}

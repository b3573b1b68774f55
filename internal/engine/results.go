package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/splitlab/splitlab/internal/stats"
	"github.com/splitlab/splitlab/internal/store"
)

// ExperimentResults aggregates assignments and conversions per variant and
// computes the winner determination. Every declared variant appears in the
// output, including variants nobody has been assigned to yet.
func (e *Engine) ExperimentResults(ctx context.Context, experimentID string) (*stats.Results, error) {
	exp, err := e.store.GetExperiment(ctx, experimentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrExperimentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	variantStats, err := e.store.GetVariantStats(ctx, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant stats: %w", err)
	}

	return stats.Analyze(exp, variantStats), nil
}

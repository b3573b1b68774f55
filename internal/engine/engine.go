package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/splitlab/splitlab/internal/store"
)

// Engine is the experimentation core: experiment registry, deterministic
// variant assignment, conversion attribution, and results analysis. It holds
// no state beyond the injected store, so multiple engines can share a process.
type Engine struct {
	store store.Store
}

func New(s store.Store) *Engine {
	return &Engine{store: s}
}

type CreateExperimentInput struct {
	Name           string
	Variants       []store.Variant
	TargetingRules []store.TargetingRule
	Status         store.ExperimentStatus
	StartDate      time.Time
}

// CreateExperiment validates the variant weights and persists a new
// experiment. Weights must be non-negative and sum to exactly 100; anything
// else is rejected, never normalized. Status defaults to draft.
func (e *Engine) CreateExperiment(ctx context.Context, input CreateExperimentInput) (*store.Experiment, error) {
	total := 0
	for _, v := range input.Variants {
		if v.Weight < 0 {
			return nil, ErrInvalidWeights
		}
		total += v.Weight
	}
	if total != 100 {
		return nil, ErrInvalidWeights
	}

	status := input.Status
	if status == "" {
		status = store.StatusDraft
	}

	now := time.Now()
	exp := &store.Experiment{
		ID:             uuid.NewString(),
		Name:           input.Name,
		Variants:       input.Variants,
		TargetingRules: input.TargetingRules,
		Status:         status,
		StartDate:      input.StartDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.store.CreateExperiment(ctx, exp); err != nil {
		return nil, fmt.Errorf("failed to create experiment: %w", err)
	}

	return exp, nil
}

func (e *Engine) GetExperiment(ctx context.Context, experimentID string) (*store.Experiment, error) {
	exp, err := e.store.GetExperiment(ctx, experimentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrExperimentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}
	return exp, nil
}

// UpdateExperimentStatus persists the new status and updated_at, leaving the
// rest of the experiment untouched. Any status value is accepted; transition
// semantics belong to the caller.
func (e *Engine) UpdateExperimentStatus(ctx context.Context, experimentID string, status store.ExperimentStatus) error {
	err := e.store.UpdateExperimentStatus(ctx, experimentID, status)
	if errors.Is(err, store.ErrNotFound) {
		return ErrExperimentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update experiment status: %w", err)
	}
	return nil
}

// UserExperiments returns the user's assignments across all experiments, in
// store order.
func (e *Engine) UserExperiments(ctx context.Context, userID string) ([]*store.Assignment, error) {
	assignments, err := e.store.ListUserAssignments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

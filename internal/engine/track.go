package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/splitlab/splitlab/internal/store"
)

// TrackConversion attributes a named event to the user's existing assignment.
// The variant id is copied from the assignment, never re-derived, and there
// is no implicit assignment-on-convert. Value may be nil; such events still
// count as conversions and contribute zero to value aggregates.
func (e *Engine) TrackConversion(ctx context.Context, userID, experimentID, eventName string, value *float64) (*store.Conversion, error) {
	assignment, err := e.store.GetAssignment(ctx, experimentID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotAssigned
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up assignment: %w", err)
	}

	conversion := &store.Conversion{
		ExperimentID: experimentID,
		UserID:       userID,
		VariantID:    assignment.VariantID,
		EventName:    eventName,
		Value:        value,
		CreatedAt:    time.Now(),
	}

	if err := e.store.RecordConversion(ctx, conversion); err != nil {
		return nil, fmt.Errorf("failed to record conversion: %w", err)
	}

	return conversion, nil
}

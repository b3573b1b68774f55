package engine

import "errors"

// Operation failures surfaced to callers. Store-level failures (IO, busy
// database) are wrapped and propagated separately; the engine never retries
// them.
var (
	ErrInvalidWeights      = errors.New("variant weights must sum to 100")
	ErrExperimentNotFound  = errors.New("experiment not found")
	ErrExperimentNotActive = errors.New("experiment is not active")
	ErrTargetingNotMet     = errors.New("user does not meet targeting criteria")
	ErrNotAssigned         = errors.New("user is not assigned to this experiment")
)

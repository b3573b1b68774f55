package store

import "context"

// Store defines the interface for experiment storage operations. The engine
// takes it as a constructor parameter so stores can be swapped per tenant or
// in tests.
type Store interface {
	// Experiment operations
	CreateExperiment(ctx context.Context, exp *Experiment) error
	GetExperiment(ctx context.Context, id string) (*Experiment, error)
	ListExperiments(ctx context.Context) ([]*Experiment, error)
	UpdateExperimentStatus(ctx context.Context, id string, status ExperimentStatus) error

	// Assignment operations. CreateAssignment is create-if-absent: when a
	// row already exists for (experiment, user) the stored row is returned
	// and the candidate is discarded.
	GetAssignment(ctx context.Context, experimentID, userID string) (*Assignment, error)
	CreateAssignment(ctx context.Context, a *Assignment) (*Assignment, error)
	ListAssignments(ctx context.Context, experimentID string) ([]*Assignment, error)
	ListUserAssignments(ctx context.Context, userID string) ([]*Assignment, error)

	// Conversion operations
	RecordConversion(ctx context.Context, c *Conversion) error
	ListConversions(ctx context.Context, experimentID string) ([]*Conversion, error)
	GetVariantStats(ctx context.Context, experimentID string) ([]VariantStats, error)

	// Lifecycle
	Close() error
}

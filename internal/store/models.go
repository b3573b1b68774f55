package store

import "time"

type ExperimentStatus string

const (
	StatusDraft     ExperimentStatus = "draft"
	StatusActive    ExperimentStatus = "active"
	StatusPaused    ExperimentStatus = "paused"
	StatusCompleted ExperimentStatus = "completed"
)

// Targeting rule operators. Anything else never matches.
const (
	OpEquals = "equals"
	OpIn     = "in"
)

// Variant is one arm of an experiment. Weight is a share of traffic in
// percent; the weights of an experiment sum to exactly 100.
type Variant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// TargetingRule is a predicate over a user-context attribute. Type names the
// attribute, Operator selects the comparison: "equals" compares against
// Value, "in" tests membership of Values.
type TargetingRule struct {
	Type     string   `json:"type"`
	Operator string   `json:"operator"`
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"`
}

type Experiment struct {
	ID             string
	Name           string
	Variants       []Variant       // Decoded from JSON
	TargetingRules []TargetingRule // Optional, decoded from JSON
	Status         ExperimentStatus
	StartDate      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Assignment binds one user to one variant of one experiment. At most one
// exists per (experiment, user) pair and it is never rewritten.
type Assignment struct {
	ID           int64
	ExperimentID string
	UserID       string
	VariantID    string
	AssignedAt   time.Time
}

// Conversion is an append-only record of a tracked action performed under an
// assignment. Value is nil for events tracked without a numeric value.
type Conversion struct {
	ID           int64
	ExperimentID string
	UserID       string
	VariantID    string
	EventName    string
	Value        *float64
	CreatedAt    time.Time
}

type VariantStats struct {
	VariantID   string
	Users       int
	Conversions int
	TotalValue  float64
}

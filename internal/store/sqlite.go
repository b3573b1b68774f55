package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    variants TEXT NOT NULL,
    targeting_rules TEXT,
    status TEXT NOT NULL DEFAULT 'draft',
    start_date INTEGER,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status);

CREATE TABLE IF NOT EXISTS assignments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    experiment_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    assigned_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (experiment_id) REFERENCES experiments(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_pair ON assignments(experiment_id, user_id);
CREATE INDEX IF NOT EXISTS idx_assignments_user ON assignments(user_id);
CREATE INDEX IF NOT EXISTS idx_assignments_variant ON assignments(experiment_id, variant_id);

CREATE TABLE IF NOT EXISTS conversions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    experiment_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    event_name TEXT NOT NULL,
    value REAL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (experiment_id) REFERENCES experiments(id)
);

CREATE INDEX IF NOT EXISTS idx_conversions_experiment ON conversions(experiment_id);
CREATE INDEX IF NOT EXISTS idx_conversions_variant ON conversions(experiment_id, variant_id);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateExperiment(ctx context.Context, exp *Experiment) error {
	variantsJSON, err := json.Marshal(exp.Variants)
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}

	var rulesJSON []byte
	if len(exp.TargetingRules) > 0 {
		rulesJSON, err = json.Marshal(exp.TargetingRules)
		if err != nil {
			return fmt.Errorf("failed to marshal targeting rules: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, variants, targeting_rules, status, start_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.Name, string(variantsJSON), nullableString(rulesJSON), string(exp.Status),
		nullableTime(exp.StartDate), exp.CreatedAt.Unix(), exp.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert experiment: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetExperiment(ctx context.Context, id string) (*Experiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, variants, targeting_rules, status, start_date, created_at, updated_at
		 FROM experiments WHERE id = ?`, id,
	)

	exp, err := scanExperiment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	return exp, nil
}

func (s *SQLiteStore) ListExperiments(ctx context.Context) ([]*Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, variants, targeting_rules, status, start_date, created_at, updated_at
		 FROM experiments ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var experiments []*Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		experiments = append(experiments, exp)
	}

	return experiments, rows.Err()
}

// UpdateExperimentStatus persists only the status and updated_at columns.
// Transition legality is the caller's concern.
func (s *SQLiteStore) UpdateExperimentStatus(ctx context.Context, id string, status ExperimentStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE experiments SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update experiment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) GetAssignment(ctx context.Context, experimentID, userID string) (*Assignment, error) {
	var a Assignment
	var assignedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, experiment_id, user_id, variant_id, assigned_at
		 FROM assignments WHERE experiment_id = ? AND user_id = ?`,
		experimentID, userID,
	).Scan(&a.ID, &a.ExperimentID, &a.UserID, &a.VariantID, &assignedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	a.AssignedAt = time.Unix(assignedAt, 0)
	return &a, nil
}

// CreateAssignment inserts the assignment unless one already exists for the
// pair. INSERT OR IGNORE against the unique (experiment_id, user_id) index
// makes racing first-time writers converge on a single row; the read-back
// returns whichever row won.
func (s *SQLiteStore) CreateAssignment(ctx context.Context, a *Assignment) (*Assignment, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO assignments (experiment_id, user_id, variant_id, assigned_at)
		 VALUES (?, ?, ?, ?)`,
		a.ExperimentID, a.UserID, a.VariantID, a.AssignedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	return s.GetAssignment(ctx, a.ExperimentID, a.UserID)
}

func (s *SQLiteStore) ListAssignments(ctx context.Context, experimentID string) ([]*Assignment, error) {
	return s.listAssignments(ctx,
		`SELECT id, experiment_id, user_id, variant_id, assigned_at
		 FROM assignments WHERE experiment_id = ? ORDER BY id`, experimentID)
}

func (s *SQLiteStore) ListUserAssignments(ctx context.Context, userID string) ([]*Assignment, error) {
	return s.listAssignments(ctx,
		`SELECT id, experiment_id, user_id, variant_id, assigned_at
		 FROM assignments WHERE user_id = ? ORDER BY id`, userID)
}

func (s *SQLiteStore) listAssignments(ctx context.Context, query, arg string) ([]*Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*Assignment
	for rows.Next() {
		var a Assignment
		var assignedAt int64
		if err := rows.Scan(&a.ID, &a.ExperimentID, &a.UserID, &a.VariantID, &assignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.AssignedAt = time.Unix(assignedAt, 0)
		assignments = append(assignments, &a)
	}

	return assignments, rows.Err()
}

func (s *SQLiteStore) RecordConversion(ctx context.Context, c *Conversion) error {
	var value sql.NullFloat64
	if c.Value != nil {
		value = sql.NullFloat64{Float64: *c.Value, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (experiment_id, user_id, variant_id, event_name, value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ExperimentID, c.UserID, c.VariantID, c.EventName, value, c.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record conversion: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		c.ID = id
	}

	return nil
}

func (s *SQLiteStore) ListConversions(ctx context.Context, experimentID string) ([]*Conversion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, experiment_id, user_id, variant_id, event_name, value, created_at
		 FROM conversions WHERE experiment_id = ? ORDER BY id`,
		experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close()

	var conversions []*Conversion
	for rows.Next() {
		var c Conversion
		var value sql.NullFloat64
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.ExperimentID, &c.UserID, &c.VariantID, &c.EventName, &value, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		if value.Valid {
			v := value.Float64
			c.Value = &v
		}
		c.CreatedAt = time.Unix(createdAt, 0)
		conversions = append(conversions, &c)
	}

	return conversions, rows.Err()
}

// GetVariantStats aggregates assignment and conversion counts per variant.
// Variants with no rows in either table are absent from the result.
func (s *SQLiteStore) GetVariantStats(ctx context.Context, experimentID string) ([]VariantStats, error) {
	byVariant := make(map[string]*VariantStats)
	var order []string

	stat := func(variantID string) *VariantStats {
		if vs, ok := byVariant[variantID]; ok {
			return vs
		}
		vs := &VariantStats{VariantID: variantID}
		byVariant[variantID] = vs
		order = append(order, variantID)
		return vs
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT variant_id, COUNT(*) FROM assignments
		 WHERE experiment_id = ? GROUP BY variant_id ORDER BY variant_id`,
		experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var variantID string
		var users int
		if err := rows.Scan(&variantID, &users); err != nil {
			return nil, fmt.Errorf("failed to scan assignment counts: %w", err)
		}
		stat(variantID).Users = users
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	convRows, err := s.db.QueryContext(ctx,
		`SELECT variant_id, COUNT(*), COALESCE(SUM(value), 0) FROM conversions
		 WHERE experiment_id = ? GROUP BY variant_id ORDER BY variant_id`,
		experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count conversions: %w", err)
	}
	defer convRows.Close()

	for convRows.Next() {
		var variantID string
		var conversions int
		var totalValue float64
		if err := convRows.Scan(&variantID, &conversions, &totalValue); err != nil {
			return nil, fmt.Errorf("failed to scan conversion counts: %w", err)
		}
		vs := stat(variantID)
		vs.Conversions = conversions
		vs.TotalValue = totalValue
	}
	if err := convRows.Err(); err != nil {
		return nil, err
	}

	stats := make([]VariantStats, 0, len(order))
	for _, variantID := range order {
		stats = append(stats, *byVariant[variantID])
	}

	return stats, nil
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperiment(row rowScanner) (*Experiment, error) {
	var exp Experiment
	var variantsJSON string
	var rulesJSON sql.NullString
	var startDate sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&exp.ID, &exp.Name, &variantsJSON, &rulesJSON, &exp.Status, &startDate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(variantsJSON), &exp.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}

	if rulesJSON.Valid && rulesJSON.String != "" {
		if err := json.Unmarshal([]byte(rulesJSON.String), &exp.TargetingRules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal targeting rules: %w", err)
		}
	}

	if startDate.Valid {
		exp.StartDate = time.Unix(startDate.Int64, 0)
	}

	exp.CreatedAt = time.Unix(createdAt, 0)
	exp.UpdatedAt = time.Unix(updatedAt, 0)

	return &exp, nil
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullableTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

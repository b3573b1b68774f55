package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/splitlab/splitlab/internal/engine"
	"github.com/splitlab/splitlab/internal/store"
	"github.com/splitlab/splitlab/tests/testutil"
)

func fiftyFifty() []store.Variant {
	return []store.Variant{
		{ID: "var_a", Name: "Control", Weight: 50},
		{ID: "var_b", Name: "Challenger", Weight: 50},
	}
}

func createActive(t *testing.T, eng *engine.Engine, rules []store.TargetingRule) *store.Experiment {
	t.Helper()

	exp, err := eng.CreateExperiment(context.Background(), engine.CreateExperimentInput{
		Name:           "checkout-cta",
		Variants:       fiftyFifty(),
		TargetingRules: rules,
		Status:         store.StatusActive,
	})
	if err != nil {
		t.Fatalf("CreateExperiment failed: %v", err)
	}
	return exp
}

func TestCreateExperiment_WeightValidation(t *testing.T) {
	eng, _ := testutil.SetupTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		weights []int
	}{
		{"sum below 100", []int{50, 49}},
		{"sum above 100", []int{50, 51}},
		{"negative weight", []int{150, -50}},
		{"empty variants", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			variants := make([]store.Variant, len(tc.weights))
			for i, w := range tc.weights {
				variants[i] = store.Variant{ID: fmt.Sprintf("var_%d", i), Name: fmt.Sprintf("V%d", i), Weight: w}
			}

			_, err := eng.CreateExperiment(ctx, engine.CreateExperimentInput{Name: "bad", Variants: variants})
			if !errors.Is(err, engine.ErrInvalidWeights) {
				t.Errorf("expected ErrInvalidWeights, got %v", err)
			}
		})
	}
}

func TestCreateExperiment_DefaultsToDraft(t *testing.T) {
	eng, _ := testutil.SetupTestEngine(t)

	exp, err := eng.CreateExperiment(context.Background(), engine.CreateExperimentInput{
		Name:     "checkout-cta",
		Variants: fiftyFifty(),
	})
	if err != nil {
		t.Fatalf("CreateExperiment failed: %v", err)
	}

	if exp.ID == "" {
		t.Error("expected a generated id")
	}
	if exp.Status != store.StatusDraft {
		t.Errorf("expected draft status, got %s", exp.Status)
	}
	if exp.CreatedAt.IsZero() || exp.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be stamped")
	}
}

func TestAssignUser_ExperimentNotFound(t *testing.T) {
	eng, _ := testutil.SetupTestEngine(t)

	_, err := eng.AssignUser(context.Background(), "user-42", "missing", nil)
	if !errors.Is(err, engine.ErrExperimentNotFound) {
		t.Errorf("expected ErrExperimentNotFound, got %v", err)
	}
}

func TestAssignUser_NotActive(t *testing.T) {
	eng, _ := testutil.SetupTestEngine(t)
	ctx := context.Background()

	for _, status := range []store.ExperimentStatus{store.StatusDraft, store.StatusPaused, store.StatusCompleted} {
		exp, err := eng.CreateExperiment(ctx, engine.CreateExperimentInput{
			Name:     "checkout-cta",
			Variants: fiftyFifty(),
			Status:   status,
		})
		if err != nil {
			t.Fatalf("CreateExperiment failed: %v", err)
		}

		_, err = eng.AssignUser(ctx, "user-42", exp.ID, nil)
		if !errors.Is(err, engine.ErrExperimentNotActive) {
			t.Errorf("status %s: expected ErrExperimentNotActive, got %v", status, err)
		}
	}
}

func TestAssignUser_Idempotent(t *testing.T) {
	eng, s := testutil.SetupTestEngine(t)
	ctx := context.Background()

	exp := createActive(t, eng, nil)

	first, err := eng.AssignUser(ctx, "user-42", exp.ID, nil)
	if err != nil {
		t.Fatalf("first AssignUser failed: %v", err)
	}

	second, err := eng.AssignUser(ctx, "user-42", exp.ID, nil)
	if err != nil {
		t.Fatalf("second AssignUser failed: %v", err)
	}

	if second.VariantID != first.VariantID || second.ID != first.ID {
		t.Errorf("assignment not idempotent: %+v != %+v", second, first)
	}

	assignments, err := s.ListAssignments(ctx, exp.ID)
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(assignments) != 1 {
		t.Errorf("expected 1 assignment document, got %d", len(assignments))
	}
}

func TestAssignUser_ExistingAssignmentSurvivesChanges(t *testing.T) {
	eng, _ := testutil.SetupTestEngine(t)
	ctx := context.Background()

	exp := createActive(t, eng, nil)

	first, err := eng.AssignUser(ctx, "user-42", exp.ID, nil)
	if err != nil {
		t.Fatalf("AssignUser failed: %v", err)
	}

	// Pausing the experiment does not strand already-assigned users
	if err := eng.UpdateExperimentStatus(ctx, exp.ID, store.StatusPaused); err != nil {
		t.Fatalf("UpdateExperimentStatus failed: %v", err)
	}

	again, err := eng.AssignUser(ctx, "user-42", exp.ID, nil)
	if err != nil {
		t.Fatalf("AssignUser after pause failed: %v", err)
	}

	if again.VariantID != first.VariantID {
		t.Errorf("variant changed after pause: %s != %s", again.VariantID, first.VariantID)
	}
}

func TestAssignUser_Targeting(t *testing.T) {
	eng, s := testutil.SetupTestEngine(t)
	ctx := context.Background()

	exp := createActive(t, eng, []store.TargetingRule{
		{Type: "country", Operator: store.OpEquals, Value: "US"},
		{Type: "plan", Operator: store.OpIn, Values: []string{"pro", "team"}},
	})

	// Context satisfying both rules is assigned
	if _, err := eng.AssignUser(ctx, "user-ok", exp.ID, map[string]string{"country": "US", "plan": "pro"}); err != nil {
		t.Fatalf("expected assignment, got %v", err)
	}

	// Failing either rule, or missing context entirely, is rejected
	rejected := []map[string]string{
		{"country": "CA", "plan": "pro"},
		{"country": "US", "plan": "free"},
		{"country": "US"},
		nil,
	}
	for i, userCtx := range rejected {
		userID := fmt.Sprintf("user-no-%d", i)
		_, err := eng.AssignUser(ctx, userID, exp.ID, userCtx)
		if !errors.Is(err, engine.ErrTargetingNotMet) {
			t.Errorf("context %v: expected ErrTargetingNotMet, got %v", userCtx, err)
		}

		// No assignment document is written on rejection
		if _, err := s.GetAssignment(ctx, exp.ID, userID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("context %v: unexpected assignment persisted", userCtx)
		}
	}
}

func TestAssignUser_Distribution(t *testing.T) {
	eng, _ := testutil.SetupTestEngine(t)
	ctx := context.Background()

	exp := createActive(t, eng, nil)

	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		assignment, err := eng.AssignUser(ctx, fmt.Sprintf("user-%d", i), exp.ID, nil)
		if err != nil {
			t.Fatalf("AssignUser failed: %v", err)
		}
		counts[assignment.VariantID]++
	}

	// 50/50 split within ±5%
	for _, variantID := range []string{"var_a", "var_b"} {
		if counts[variantID] < 4500 || counts[variantID] > 5500 {
			t.Errorf("variant %s got %d of 10000 users, expected ~5000", variantID, counts[variantID])
		}
	}
}

func TestTrackConversion_RequiresAssignment(t *testing.T) {
	eng, s := testutil.SetupTestEngine(t)
	ctx := context.Background()

	exp := createActive(t, eng, nil)

	_, err := eng.TrackConversion(ctx, "user-42", exp.ID, "signup", nil)
	if !errors.Is(err, engine.ErrNotAssigned) {
		t.Errorf("expected ErrNotAssigned, got %v", err)
	}

	conversions, err := s.ListConversions(ctx, exp.ID)
	if err != nil {
		t.Fatalf("ListConversions failed: %v", err)
	}
	if len(conversions) != 0 {
		t.Errorf("expected no conversions persisted, got %d", len(conversions))
	}
}

func TestTrackConversion_CopiesVariantFromAssignment(t *testing.T) {
	eng, _ := testutil.SetupTestEngine(t)
	ctx := context.Background()

	exp := createActive(t, eng, nil)

	assignment, err := eng.AssignUser(ctx, "user-42", exp.ID, nil)
	if err != nil {
		t.Fatalf("AssignUser failed: %v", err)
	}

	value := 29.99
	conversion, err := eng.TrackConversion(ctx, "user-42", exp.ID, "purchase", &value)
	if err != nil {
		t.Fatalf("TrackConversion failed: %v", err)
	}

	if conversion.VariantID != assignment.VariantID {
		t.Errorf("conversion variant %s != assignment variant %s", conversion.VariantID, assignment.VariantID)
	}
	if conversion.Value == nil || *conversion.Value != 29.99 {
		t.Errorf("expected value 29.99, got %v", conversion.Value)
	}

	// A second event under the same assignment is fine
	if _, err := eng.TrackConversion(ctx, "user-42", exp.ID, "signup", nil); err != nil {
		t.Fatalf("second TrackConversion failed: %v", err)
	}
}

func TestExperimentResults_WinnerFlow(t *testing.T) {
	eng, s := testutil.SetupTestEngine(t)
	ctx := context.Background()

	exp := createActive(t, eng, nil)

	// Seed 50 users per variant directly, then convert 10 on var_a and
	// 20 on var_b through the engine.
	for i := 0; i < 50; i++ {
		for _, variantID := range []string{"var_a", "var_b"} {
			userID := fmt.Sprintf("%s-user-%d", variantID, i)
			if _, err := s.CreateAssignment(ctx, &store.Assignment{
				ExperimentID: exp.ID, UserID: userID, VariantID: variantID, AssignedAt: time.Now(),
			}); err != nil {
				t.Fatalf("CreateAssignment failed: %v", err)
			}
		}
	}
	for i := 0; i < 10; i++ {
		if _, err := eng.TrackConversion(ctx, fmt.Sprintf("var_a-user-%d", i), exp.ID, "signup", nil); err != nil {
			t.Fatalf("TrackConversion failed: %v", err)
		}
	}
	for i := 0; i < 20; i++ {
		if _, err := eng.TrackConversion(ctx, fmt.Sprintf("var_b-user-%d", i), exp.ID, "signup", nil); err != nil {
			t.Fatalf("TrackConversion failed: %v", err)
		}
	}

	results, err := eng.ExperimentResults(ctx, exp.ID)
	if err != nil {
		t.Fatalf("ExperimentResults failed: %v", err)
	}

	if len(results.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(results.Variants))
	}
	if results.Variants[0].ConversionRate != 20 {
		t.Errorf("expected var_a rate 20, got %f", results.Variants[0].ConversionRate)
	}
	if results.Variants[1].ConversionRate != 40 {
		t.Errorf("expected var_b rate 40, got %f", results.Variants[1].ConversionRate)
	}
	if results.Winner != "var_b" {
		t.Errorf("expected winner 'var_b', got %q", results.Winner)
	}
	if results.ConfidenceLevel <= 0 {
		t.Errorf("expected positive confidence, got %f", results.ConfidenceLevel)
	}
}

func TestExperimentResults_EmptyExperiment(t *testing.T) {
	eng, _ := testutil.SetupTestEngine(t)
	ctx := context.Background()

	exp := createActive(t, eng, nil)

	results, err := eng.ExperimentResults(ctx, exp.ID)
	if err != nil {
		t.Fatalf("ExperimentResults failed: %v", err)
	}

	// Declared variants appear with zero users
	if len(results.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(results.Variants))
	}
	for _, v := range results.Variants {
		if v.TotalUsers != 0 || v.ConversionRate != 0 {
			t.Errorf("expected zero metrics, got %+v", v)
		}
	}
	if results.Winner != "" {
		t.Errorf("expected no winner, got %q", results.Winner)
	}
}

func TestExperimentResults_NotFound(t *testing.T) {
	eng, _ := testutil.SetupTestEngine(t)

	_, err := eng.ExperimentResults(context.Background(), "missing")
	if !errors.Is(err, engine.ErrExperimentNotFound) {
		t.Errorf("expected ErrExperimentNotFound, got %v", err)
	}
}

func TestUserExperiments(t *testing.T) {
	eng, _ := testutil.SetupTestEngine(t)
	ctx := context.Background()

	first := createActive(t, eng, nil)
	second := createActive(t, eng, nil)

	if _, err := eng.AssignUser(ctx, "user-42", first.ID, nil); err != nil {
		t.Fatalf("AssignUser failed: %v", err)
	}
	if _, err := eng.AssignUser(ctx, "user-42", second.ID, nil); err != nil {
		t.Fatalf("AssignUser failed: %v", err)
	}
	if _, err := eng.AssignUser(ctx, "user-99", first.ID, nil); err != nil {
		t.Fatalf("AssignUser failed: %v", err)
	}

	assignments, err := eng.UserExperiments(ctx, "user-42")
	if err != nil {
		t.Fatalf("UserExperiments failed: %v", err)
	}

	if len(assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assignments))
	}
	if assignments[0].ExperimentID != first.ID || assignments[1].ExperimentID != second.ID {
		t.Errorf("unexpected order: %s, %s", assignments[0].ExperimentID, assignments[1].ExperimentID)
	}
}

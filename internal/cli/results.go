package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/splitlab/splitlab/internal/engine"
	"github.com/splitlab/splitlab/internal/stats"
	"github.com/splitlab/splitlab/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results <experiment-id>",
	Short: "Show detailed results for an experiment",
	Long:  `Show detailed results including conversion rates, confidence intervals, and the winner determination.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	experimentID := args[0]

	return withStore(func(s *store.SQLiteStore) error {
		eng := engine.New(s)
		ctx := context.Background()

		exp, err := eng.GetExperiment(ctx, experimentID)
		if err != nil {
			if errors.Is(err, engine.ErrExperimentNotFound) {
				return fmt.Errorf("experiment '%s' not found", experimentID)
			}
			return err
		}

		results, err := eng.ExperimentResults(ctx, experimentID)
		if err != nil {
			return err
		}

		// Print header
		fmt.Printf("EXPERIMENT: %s\n", exp.Name)
		fmt.Printf("STATUS: %s\n", exp.Status)
		fmt.Printf("CREATED: %s\n", exp.CreatedAt.Format("2006-01-02"))
		fmt.Println()

		// Print table
		fmt.Println("VARIANT           USERS    CONVERSIONS  RATE     VALUE     95% CI")
		fmt.Println(strings.Repeat("─", 70))

		for _, v := range results.Variants {
			indicator := ""
			if v.VariantID == results.Winner {
				indicator = " ← WINNER"
			}

			ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", v.CILower, v.CIUpper)
			if v.TotalUsers == 0 {
				ciStr = "N/A"
			}

			// Truncate name if too long
			name := v.Name
			if len(name) > 16 {
				name = name[:13] + "..."
			}

			fmt.Printf("%-16s  %-7d  %-11d  %-7s  %-8.2f  %s%s\n",
				name,
				v.TotalUsers,
				v.Conversions,
				formatRate(v.ConversionRate),
				v.TotalValue,
				ciStr,
				indicator,
			)
		}

		fmt.Println()
		printSignificance(results)

		return nil
	})
}

func printSignificance(results *stats.Results) {
	if results.Winner != "" {
		fmt.Printf("Statistical significance: %.1f%% confident '%s' is the winner\n", results.ConfidenceLevel, results.Winner)
		return
	}

	if results.ConfidenceLevel > 0 {
		fmt.Printf("Statistical significance: %.1f%% confidence (winner requires %.0f%%)\n",
			results.ConfidenceLevel, stats.WinnerConfidence)
		return
	}

	fmt.Printf("Statistical significance: not enough data (winner requires %d+ users per variant)\n", stats.MinSampleSize)
}

func formatRate(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate)
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/splitlab/splitlab/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all experiments",
	Long:  `List all experiments with their status and totals.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		experiments, err := s.ListExperiments(ctx)
		if err != nil {
			return fmt.Errorf("failed to list experiments: %w", err)
		}

		if len(experiments) == 0 {
			fmt.Println("No experiments yet.")
			fmt.Println()
			fmt.Println("Create one with:")
			fmt.Println("  splitlab create checkout-cta --variants \"Control:50,Challenger:50\"")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tVARIANTS\tUSERS\tCONVERSIONS\tCREATED")

		for _, exp := range experiments {
			variantStats, err := s.GetVariantStats(ctx, exp.ID)
			if err != nil {
				return fmt.Errorf("failed to get stats for experiment %s: %w", exp.ID, err)
			}

			totalUsers := 0
			totalConversions := 0
			for _, stat := range variantStats {
				totalUsers += stat.Users
				totalConversions += stat.Conversions
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				shortID(exp.ID),
				exp.Name,
				strings.ToUpper(string(exp.Status)),
				len(exp.Variants),
				formatNumber(totalUsers),
				formatNumber(totalConversions),
				exp.CreatedAt.Format("2006-01-02"),
			)
		}

		return w.Flush()
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

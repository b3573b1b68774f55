package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/splitlab/splitlab/internal/engine"
	"github.com/splitlab/splitlab/internal/store"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		variants string
		rules    []string
		activate bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new experiment",
		Long: `Create a new experiment with weighted variants. Weights are percentages
and must sum to exactly 100.

Examples:
  splitlab create checkout-cta --variants "Control:50,Challenger:50"
  splitlab create pricing --variants "Monthly:40,Annual:40,Lifetime:20" --activate
  splitlab create onboarding --variants "A:50,B:50" --rule "country=US"
  splitlab create upsell --variants "A:50,B:50" --rule "plan in pro,team"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			variantList, err := parseVariants(variants)
			if err != nil {
				return err
			}

			var targetingRules []store.TargetingRule
			for _, spec := range rules {
				rule, err := parseRule(spec)
				if err != nil {
					return err
				}
				targetingRules = append(targetingRules, rule)
			}

			status := store.StatusDraft
			if activate {
				status = store.StatusActive
			}

			return withStore(func(s *store.SQLiteStore) error {
				exp, err := engine.New(s).CreateExperiment(context.Background(), engine.CreateExperimentInput{
					Name:           name,
					Variants:       variantList,
					TargetingRules: targetingRules,
					Status:         status,
				})
				if err != nil {
					return fmt.Errorf("failed to create experiment: %w", err)
				}

				fmt.Printf("Created experiment '%s' (%s) with %d variants:\n", exp.Name, exp.ID, len(exp.Variants))
				for _, v := range exp.Variants {
					fmt.Printf("  %s: %s (%d%%)\n", v.ID, v.Name, v.Weight)
				}
				for _, rule := range exp.TargetingRules {
					if rule.Operator == store.OpIn {
						fmt.Printf("  Rule: %s in %v\n", rule.Type, rule.Values)
					} else {
						fmt.Printf("  Rule: %s %s %s\n", rule.Type, rule.Operator, rule.Value)
					}
				}
				fmt.Printf("  Status: %s\n", exp.Status)
				if exp.Status == store.StatusDraft {
					fmt.Printf("\nActivate with: splitlab status %s --set active\n", exp.ID)
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&variants, "variants", "v", "", "comma-separated Name:weight pairs (required)")
	cmd.Flags().StringArrayVar(&rules, "rule", nil, "targeting rule, \"attr=value\" or \"attr in a,b\" (repeatable)")
	cmd.Flags().BoolVar(&activate, "activate", false, "create the experiment as active instead of draft")
	cmd.MarkFlagRequired("variants")

	return cmd
}

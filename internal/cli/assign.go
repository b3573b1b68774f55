package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/splitlab/splitlab/internal/engine"
	"github.com/splitlab/splitlab/internal/store"
)

func init() {
	rootCmd.AddCommand(newAssignCmd())
}

func newAssignCmd() *cobra.Command {
	var contextPairs []string

	cmd := &cobra.Command{
		Use:   "assign <experiment-id> <user-id>",
		Short: "Assign a user to a variant",
		Long: `Resolve a user's variant for an experiment. Assignment is deterministic
and idempotent: repeating the command returns the same variant, and changing
the experiment afterwards does not move already-assigned users.

Examples:
  splitlab assign 6e7c... user-42
  splitlab assign 6e7c... user-42 --ctx "country=US" --ctx "plan=pro"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			experimentID, userID := args[0], args[1]

			userCtx, err := parseContext(contextPairs)
			if err != nil {
				return err
			}

			return withStore(func(s *store.SQLiteStore) error {
				assignment, err := engine.New(s).AssignUser(context.Background(), userID, experimentID, userCtx)
				if err != nil {
					return err
				}

				fmt.Printf("User %s -> variant %s (assigned %s)\n",
					assignment.UserID,
					assignment.VariantID,
					assignment.AssignedAt.Format("2006-01-02 15:04:05"),
				)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&contextPairs, "ctx", nil, "user context attribute, key=value (repeatable)")

	return cmd
}

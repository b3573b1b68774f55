package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/splitlab/splitlab/internal/engine"
	"github.com/splitlab/splitlab/internal/store"
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	var newStatus string

	cmd := &cobra.Command{
		Use:   "status <experiment-id>",
		Short: "Update an experiment's status",
		Long: `Update an experiment's status. Only active experiments accept new
assignments; existing assignments survive any status change.

Without --set, prompts for the new status interactively.

Examples:
  splitlab status 6e7c... --set active
  splitlab status 6e7c... --set completed
  splitlab status 6e7c...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			experimentID := args[0]

			status := store.ExperimentStatus(newStatus)
			if status == "" {
				picked, err := promptStatus()
				if err != nil {
					return err
				}
				status = picked
			}

			return withStore(func(s *store.SQLiteStore) error {
				if err := engine.New(s).UpdateExperimentStatus(context.Background(), experimentID, status); err != nil {
					return err
				}

				fmt.Printf("Experiment %s is now %s\n", experimentID, status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&newStatus, "set", "", "new status (draft, active, paused, completed)")

	return cmd
}

func promptStatus() (store.ExperimentStatus, error) {
	statuses := []store.ExperimentStatus{
		store.StatusDraft,
		store.StatusActive,
		store.StatusPaused,
		store.StatusCompleted,
	}

	items := make([]string, len(statuses))
	for i, status := range statuses {
		items[i] = string(status)
	}

	prompt := promptui.Select{
		Label: "New status",
		Items: items,
		Size:  len(items),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			os.Exit(0)
		}
		return "", err
	}

	return statuses[idx], nil
}

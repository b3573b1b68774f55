package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/splitlab/splitlab/internal/engine"
	"github.com/splitlab/splitlab/internal/store"
)

func init() {
	rootCmd.AddCommand(newTrackCmd())
}

func newTrackCmd() *cobra.Command {
	var value float64

	cmd := &cobra.Command{
		Use:   "track <experiment-id> <user-id> <event>",
		Short: "Track a conversion event",
		Long: `Track a conversion event for a user. The user must already be assigned
to the experiment; the event is attributed to their assigned variant.

Examples:
  splitlab track 6e7c... user-42 signup
  splitlab track 6e7c... user-42 purchase --value 29.99`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			experimentID, userID, eventName := args[0], args[1], args[2]

			var eventValue *float64
			if cmd.Flags().Changed("value") {
				eventValue = &value
			}

			return withStore(func(s *store.SQLiteStore) error {
				conversion, err := engine.New(s).TrackConversion(context.Background(), userID, experimentID, eventName, eventValue)
				if err != nil {
					return err
				}

				if conversion.Value != nil {
					fmt.Printf("Tracked '%s' (%.2f) for user %s on variant %s\n",
						conversion.EventName, *conversion.Value, conversion.UserID, conversion.VariantID)
				} else {
					fmt.Printf("Tracked '%s' for user %s on variant %s\n",
						conversion.EventName, conversion.UserID, conversion.VariantID)
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&value, "value", 0, "numeric value of the conversion (optional)")

	return cmd
}

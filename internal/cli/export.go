package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/splitlab/splitlab/internal/store"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <experiment-id>",
	Short: "Export raw conversion data",
	Long: `Export raw conversion events in CSV or JSON format.

Examples:
  splitlab export 6e7c... --format csv > conversions.csv
  splitlab export 6e7c... --format json > conversions.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv or json)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	experimentID := args[0]

	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("invalid format: must be 'csv' or 'json'")
	}

	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		// Verify experiment exists
		if _, err := s.GetExperiment(ctx, experimentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("experiment '%s' not found", experimentID)
			}
			return fmt.Errorf("failed to get experiment: %w", err)
		}

		conversions, err := s.ListConversions(ctx, experimentID)
		if err != nil {
			return fmt.Errorf("failed to list conversions: %w", err)
		}

		if exportFormat == "csv" {
			return exportCSV(conversions)
		}
		return exportJSON(conversions)
	})
}

func exportCSV(conversions []*store.Conversion) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "user_id", "variant_id", "event_name", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, c := range conversions {
		value := ""
		if c.Value != nil {
			value = strconv.FormatFloat(*c.Value, 'f', -1, 64)
		}
		row := []string{
			strconv.FormatInt(c.CreatedAt.Unix(), 10),
			c.UserID,
			c.VariantID,
			c.EventName,
			value,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

type jsonExport struct {
	Conversions []jsonConversion `json:"conversions"`
}

type jsonConversion struct {
	Timestamp int64    `json:"timestamp"`
	UserID    string   `json:"user_id"`
	VariantID string   `json:"variant_id"`
	EventName string   `json:"event_name"`
	Value     *float64 `json:"value,omitempty"`
}

func exportJSON(conversions []*store.Conversion) error {
	export := jsonExport{
		Conversions: make([]jsonConversion, len(conversions)),
	}

	for i, c := range conversions {
		export.Conversions[i] = jsonConversion{
			Timestamp: c.CreatedAt.Unix(),
			UserID:    c.UserID,
			VariantID: c.VariantID,
			EventName: c.EventName,
			Value:     c.Value,
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

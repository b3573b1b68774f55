package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show the current API token",
	Long: `Show the access token for the experiment management API.

Use this when you've scrolled past the startup message.

Example:
  splitlab token`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(tokenFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no server running. Start with: splitlab serve")
		}
		return fmt.Errorf("failed to read token file: %w", err)
	}

	token := string(data)
	if token == "" {
		return fmt.Errorf("token file is empty. Restart the server with: splitlab serve")
	}

	fmt.Printf("API token: %s\n", token)
	fmt.Println()
	fmt.Println("Pass it as ?token=... on management endpoints.")
	return nil
}

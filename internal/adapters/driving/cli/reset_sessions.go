package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetSessionsCmd = &cobra.Command{
	Use:   "reset-sessions",
	Short: "Clear session history so every passage is eligible again",
	Args:  cobra.NoArgs,
	RunE:  runResetSessions,
}

func init() {
	rootCmd.AddCommand(resetSessionsCmd)
}

func runResetSessions(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Explorer == nil {
		return errors.New("explorer service not configured")
	}

	if err := services.Explorer.ResetSessions(cmd.Context()); err != nil {
		return fmt.Errorf("reset sessions: %w", err)
	}
	cmd.Println("Session history cleared.")
	return nil
}

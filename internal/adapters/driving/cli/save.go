package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save [passage-id]",
	Short: "Add a passage to your saved collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	if services == nil || services.Explorer == nil {
		return errors.New("explorer service not configured")
	}

	if err := services.Explorer.SavePassage(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("save passage: %w", err)
	}
	cmd.Println("Passage saved.")
	return nil
}

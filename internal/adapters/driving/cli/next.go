package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

var nextJSON bool

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show a passage you have not seen recently",
	Long: `Samples one passage from the indexed library, excluding everything
shown within the last 30 days. When nothing qualifies the window widens
once to 60 days before giving up.`,
	Args: cobra.NoArgs,
	RunE: runNext,
}

func init() {
	nextCmd.Flags().BoolVar(&nextJSON, "json", false, "output the passage as JSON")
	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Explorer == nil {
		return errors.New("explorer service not configured")
	}

	passage, err := services.Explorer.NextPassage(cmd.Context())
	if errors.Is(err, domain.ErrNoPassagesAvailable) {
		cmd.Println("No unseen passages available. Index more documents or run `passage reset-sessions`.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("select passage: %w", err)
	}

	if nextJSON {
		return printJSON(cmd, passage)
	}
	printPassage(cmd, passage)
	return nil
}

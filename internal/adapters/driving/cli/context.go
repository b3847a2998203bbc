package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var contextWords int

var contextCmd = &cobra.Command{
	Use:   "context [passage-id]",
	Short: "Show a passage inside its surrounding text",
	Long: `Re-reads the passage's source document and widens the excerpt along
paragraph boundaries until it reaches roughly the requested word count,
capped by the document itself.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().IntVarP(&contextWords, "words", "w", 0, "target context size in words (0 = configured default)")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	if services == nil || services.Explorer == nil {
		return errors.New("explorer service not configured")
	}

	text, err := services.Explorer.Context(cmd.Context(), args[0], contextWords)
	if err != nil {
		return fmt.Errorf("widen passage: %w", err)
	}
	cmd.Println(text)
	return nil
}

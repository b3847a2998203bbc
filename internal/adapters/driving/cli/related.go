package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

var relatedLimit int

var relatedCmd = &cobra.Command{
	Use:   "related [passage-id]",
	Short: "Find passages semantically close to one you have read",
	Long: `Searches the embedding index for the passages closest in meaning to
the given one, skipping passages from the same document and anything
already shown this session. Requires a reachable embedding service.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelated,
}

func init() {
	relatedCmd.Flags().IntVarP(&relatedLimit, "limit", "n", 2, "maximum number of related passages")
	rootCmd.AddCommand(relatedCmd)
}

func runRelated(cmd *cobra.Command, args []string) error {
	if services == nil || services.Explorer == nil {
		return errors.New("explorer service not configured")
	}

	related, err := services.Explorer.Related(cmd.Context(), args[0], relatedLimit)
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		cmd.Println("Semantic similarity is unavailable: the embedding service is offline.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find related passages: %w", err)
	}
	if len(related) == 0 {
		cmd.Println("No related passages found.")
		return nil
	}

	for i := range related {
		if i > 0 {
			cmd.Println()
		}
		printPassage(cmd, &related[i])
	}
	return nil
}

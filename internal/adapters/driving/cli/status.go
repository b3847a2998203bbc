package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexing progress",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Indexer == nil {
		return errors.New("indexer service not configured")
	}

	progress, err := services.Indexer.Progress(cmd.Context())
	if err != nil {
		return fmt.Errorf("read progress: %w", err)
	}

	if progress.Total() == 0 {
		cmd.Println("No documents discovered yet. Run `passage index` to scan the library.")
		return nil
	}
	cmd.Printf("Indexed %d of %d files", progress.Completed, progress.Total())
	if progress.Indexing > 0 {
		cmd.Printf(", %d indexing", progress.Indexing)
	}
	if progress.Pending > 0 {
		cmd.Printf(", %d pending", progress.Pending)
	}
	if progress.Failed > 0 {
		cmd.Printf(", %d failed", progress.Failed)
	}
	cmd.Println()
	return nil
}

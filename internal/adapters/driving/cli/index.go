package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

var (
	indexBatchSize  int
	indexBackground bool
	indexWatch      bool
)

var indexCmd = &cobra.Command{
	Use:   "index [file]",
	Short: "Index library documents into passages",
	Long: `Scans the library directory for new documents and indexes a batch of
them. With a file argument only that file is indexed, immediately and
synchronously. --background returns straight away and keeps indexing
until the queue drains; --watch additionally keeps the library under
watch until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var indexResetCmd = &cobra.Command{
	Use:   "reset [file]",
	Short: "Revert a stuck or failed file to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexReset,
}

func init() {
	indexCmd.Flags().IntVarP(&indexBatchSize, "batch-size", "n", 0, "maximum files per batch (0 = configured default)")
	indexCmd.Flags().BoolVar(&indexBackground, "background", false, "index in the background until the queue drains")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep watching the library for new files (implies --background)")
	indexCmd.AddCommand(indexResetCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if services == nil || services.Indexer == nil {
		return errors.New("indexer service not configured")
	}
	ctx := cmd.Context()

	if len(args) == 1 {
		passages, err := services.Indexer.IndexFile(ctx, args[0])
		if errors.Is(err, domain.ErrIndexingInProgress) {
			cmd.Println("Indexing is already running.")
			return nil
		}
		if errors.Is(err, domain.ErrUnsupportedType) {
			cmd.Printf("Unsupported file type. Supported extensions: %s\n",
				strings.Join(domain.SupportedExtensions(), ", "))
			return nil
		}
		if err != nil {
			return fmt.Errorf("index file: %w", err)
		}
		cmd.Printf("Indexed %s: %d passages\n", args[0], len(passages))
		return nil
	}

	if indexBackground || indexWatch {
		return runIndexBackground(cmd)
	}

	summary, err := services.Indexer.RunBatch(ctx, indexBatchSize)
	var cancelled *domain.CancelledError
	switch {
	case errors.As(err, &cancelled):
		cmd.Printf("Indexing cancelled: %d files completed, %d left pending\n",
			cancelled.Completed, cancelled.Pending)
		return nil
	case errors.Is(err, domain.ErrIndexingInProgress):
		cmd.Println("Indexing is already running.")
		return nil
	case err != nil:
		return fmt.Errorf("index batch: %w", err)
	}

	cmd.Printf("Indexed %d files (%d passages), %d failed, %d remaining\n",
		summary.Processed, summary.Passages, summary.Failed, summary.Remaining)
	return nil
}

// runIndexBackground triggers a background run and, with --watch, holds
// the process open re-triggering as the watcher reports new files.
func runIndexBackground(cmd *cobra.Command) error {
	ctx := cmd.Context()

	err := services.Indexer.TriggerBatch(ctx)
	if err != nil && !errors.Is(err, domain.ErrIndexingInProgress) {
		return fmt.Errorf("start indexing: %w", err)
	}

	if !indexWatch {
		cmd.Println("Indexing started in the background.")
		return nil
	}

	if services.StartWatcher == nil {
		return errors.New("library watcher not configured")
	}
	stop, err := services.StartWatcher(ctx)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer stop()

	cmd.Println("Watching the library. Press Ctrl-C to stop.")
	<-ctx.Done()
	return nil
}

func runIndexReset(cmd *cobra.Command, args []string) error {
	if services == nil || services.Indexer == nil {
		return errors.New("indexer service not configured")
	}
	if err := services.Indexer.ResetFile(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("reset file: %w", err)
	}
	cmd.Printf("Reset %s to pending\n", args[0])
	return nil
}

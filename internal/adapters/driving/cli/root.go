// Package cli implements the command line interface driving the core
// services.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/passage-cli/internal/core/ports/driving"
	"github.com/custodia-labs/passage-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services holds the core services the commands drive. StartWatcher is
// optional; when set, `index --watch` keeps the library under watch
// until interrupted.
type Services struct {
	Explorer     driving.Explorer
	Indexer      driving.Indexer
	StartWatcher func(ctx context.Context) (stop func(), err error)
}

// services holds the current wiring.
var services *Services

// SetServices wires the core services into the commands. Must be called
// before Execute.
func SetServices(s *Services) {
	services = s
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "passage",
	Short: "A serendipitous passage explorer for your document library",
	Long: `Passage surfaces short excerpts from the documents in your library,
one at a time. It indexes text, HTML, Markdown and PDF files in the
background, then serves passages you have not seen in the last month,
finds semantically related ones and widens any passage into its
surrounding context.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Command passage-cli explores a personal document library one passage
// at a time.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/custodia-labs/passage-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/passage-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/passage-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/passage-cli/internal/adapters/driven/vector"
	"github.com/custodia-labs/passage-cli/internal/adapters/driven/watcher"
	"github.com/custodia-labs/passage-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/passage-cli/internal/core/services"
	"github.com/custodia-labs/passage-cli/internal/extractors"
	"github.com/custodia-labs/passage-cli/internal/logger"
	"github.com/custodia-labs/passage-cli/internal/segmenter"
)

const shutdownGrace = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	registry := extractors.Default(time.Duration(cfg.GetInt("pdf_timeout_seconds")) * time.Second)
	embedder := connectEmbedder(ctx, cfg)
	if embedder != nil {
		defer embedder.Close()
	}

	vectors := vector.NewIndex()
	if embedder != nil {
		if err := loadVectors(ctx, store.PassageStore(), vectors); err != nil {
			return err
		}
	}

	segm := newSegmenter(cfg, embedder)

	libraryPath := cfg.GetString("library_path")
	if libraryPath != "" {
		if libraryPath, err = filepath.Abs(libraryPath); err != nil {
			return fmt.Errorf("resolve library path: %w", err)
		}
	}

	indexer := services.NewIndexerService(
		services.IndexerConfig{
			LibraryPath:          libraryPath,
			InitialBatchSize:     cfg.GetInt("initial_batch_size"),
			ProgressiveBatchSize: cfg.GetInt("progressive_batch_size"),
		},
		registry, segm,
		store.PassageStore(), store.IndexStatusStore(), store.UsageStore(),
		embedder, vectors,
	)
	defer indexer.Stop(shutdownGrace)

	selCfg := services.SelectionConfig{
		ContextWords:     cfg.GetInt("context_words"),
		ContextTolerance: cfg.GetInt("context_tolerance"),
	}
	if days := cfg.GetInt("session_history_days"); days > 0 {
		selCfg.HistoryDays = days
		selCfg.WidenedHistoryDays = 2 * days
	}
	explorer := services.NewSelectionService(
		selCfg,
		store.PassageStore(), store.SessionStore(), store.SavedStore(), store.UsageStore(),
		registry, embedder, vectors,
	)

	cli.SetServices(&cli.Services{
		Explorer: explorer,
		Indexer:  indexer,
		StartWatcher: func(ctx context.Context) (func(), error) {
			if libraryPath == "" {
				return nil, errors.New("library_path is not configured")
			}
			w, err := watcher.New(store.IndexStatusStore(), registry, func() {
				if err := indexer.TriggerBatch(context.Background()); err != nil &&
					!errors.Is(err, domain.ErrIndexingInProgress) {
					logger.Warn("Failed to start indexing: %v", err)
				}
			})
			if err != nil {
				return nil, err
			}
			if err := w.Start(ctx, libraryPath); err != nil {
				w.Close()
				return nil, err
			}
			return func() { w.Close() }, nil
		},
	})

	usage := store.UsageStore()
	if err := usage.Record(ctx, domain.UsageAppStart, ""); err != nil {
		logger.Debug("Failed to record usage event: %v", err)
	}
	defer func() {
		if err := usage.Record(context.Background(), domain.UsageAppExit, ""); err != nil {
			logger.Debug("Failed to record usage event: %v", err)
		}
	}()

	return cli.Execute(ctx)
}

// connectEmbedder builds the Ollama embedding service and pings it.
// An unreachable service degrades the whole process to structural-only
// behaviour instead of failing.
func connectEmbedder(ctx context.Context, cfg driven.ConfigStore) driven.EmbeddingService {
	svc := ollama.NewEmbeddingService(ollama.Config{
		BaseURL:    cfg.GetString("embedding.base_url"),
		Model:      cfg.GetString("embedding.model"),
		Dimensions: cfg.GetInt("embedding.dimensions"),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := svc.Ping(pingCtx); err != nil {
		logger.Warn("Embedding service unavailable, running structural-only: %v", err)
		svc.Close()
		return nil
	}
	return svc
}

// loadVectors rebuilds the in-memory similarity index from the stored
// embeddings.
func loadVectors(ctx context.Context, passages driven.PassageStore, vectors *vector.Index) error {
	embedded, err := passages.ListEmbedded(ctx)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}
	for i := range embedded {
		if err := vectors.Add(ctx, embedded[i].ID, embedded[i].Embedding); err != nil {
			logger.Debug("Skipping stored vector %s: %v", embedded[i].ID, err)
		}
	}
	logger.Debug("Loaded %d stored vectors", len(embedded))
	return nil
}

func newSegmenter(cfg driven.ConfigStore, embedder driven.EmbeddingService) *segmenter.Segmenter {
	var opts []segmenter.Option
	minLen := cfg.GetInt("min_passage_length")
	maxLen := cfg.GetInt("max_passage_length")
	if minLen > 0 || maxLen > 0 {
		if minLen <= 0 {
			minLen = domain.DefaultMinPassageLength
		}
		if maxLen <= 0 {
			maxLen = domain.DefaultMaxPassageLength
		}
		opts = append(opts, segmenter.WithBounds(minLen, maxLen))
	}
	if threshold := cfg.GetFloat("coherence_threshold"); threshold > 0 {
		opts = append(opts, segmenter.WithCoherenceThreshold(threshold))
	}
	if embedder != nil {
		opts = append(opts, segmenter.WithEmbedder(embedder))
	}
	return segmenter.New(opts...)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mfreed/repodex/internal/config"
	"github.com/mfreed/repodex/internal/embedder"
	"github.com/mfreed/repodex/internal/source"
	"github.com/mfreed/repodex/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync all configured sources and refresh embeddings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runSync(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

// stageNames indexed by syncer stage number.
var stageNames = map[int]string{
	syncer.StageCollect: "Collecting repositories",
	syncer.StageEnrich:  "Fetching readmes",
	syncer.StageEmbed:   "Updating embeddings",
}

// consoleObserver prints sync progress to stderr, leaving stdout for
// the final summary.
type consoleObserver struct{}

func (consoleObserver) OnStage(stage int, name string) {
	fmt.Fprintf(os.Stderr, "[%d/3] %s\n", stage, stageNames[stage])
}

func (consoleObserver) OnProgress(msg string, current, total int) {
	if total > 0 {
		fmt.Fprintf(os.Stderr, "  %s (%d/%d)\n", msg, current, total)
		return
	}
	fmt.Fprintf(os.Stderr, "  %s\n", msg)
}

// buildAdapters assembles the source adapters the configuration
// enables, in sync order.
func buildAdapters(cfg *config.Config) []source.Adapter {
	var adapters []source.Adapter

	if cfg.Forge.Token != "" {
		client := source.NewGitHubClient(cfg.Forge.Token, "")
		adapters = append(adapters, source.NewForgeAdapter(client, cfg.Forge.BasePaths, cfg.Sync.Workers))
	}

	if cfg.Hub.User != "" {
		client := source.NewHuggingFaceClient(cfg.Hub.Token, "")
		adapters = append(adapters, source.NewHubAdapter(client, cfg.Hub.User,
			cfg.Hub.DatasetPaths, cfg.Hub.ModelPaths, cfg.Hub.SpacePaths, cfg.Sync.Workers))
	}

	for _, local := range cfg.Locals {
		adapters = append(adapters, source.NewLocalAdapter(local.Name, local.Path))
	}

	return adapters
}

func newEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	return embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		CacheSize: cfg.Embedding.CacheSize,
	})
}

func runSync(ctx context.Context, cfg *config.Config) error {
	adapters := buildAdapters(cfg)
	if len(adapters) == 0 {
		return fmt.Errorf("no sources configured; set a forge token, hub user, or local paths")
	}

	store, index, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	defer index.Close()

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := syncer.New(store, index, emb, adapters,
		syncer.WithObserver(consoleObserver{}),
		syncer.WithBatchSize(cfg.Embedding.BatchSize))

	result, err := s.Sync(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Synced %d repositories (%d changed)\n", result.Total, result.Changed)
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfreed/repodex/internal/config"
	"github.com/mfreed/repodex/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog counts and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runStatus(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func describeSource(src types.Source) string {
	switch src {
	case types.SourceForge:
		return "GitHub"
	case types.SourceHub:
		return "HuggingFace"
	default:
		return string(src)
	}
}

func runStatus(ctx context.Context, cfg *config.Config) error {
	store, index, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	defer index.Close()

	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	pending, err := store.NeedingEmbedding(ctx)
	if err != nil {
		return err
	}
	indexed, err := index.Count(ctx)
	if err != nil {
		return err
	}
	lastSync, err := store.LastSyncTime(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Data directory:  %s\n", cfg.DataDir)
	fmt.Printf("Repositories:    %d\n", total)

	for _, src := range []types.Source{types.SourceForge, types.SourceHub} {
		repos, err := store.BySource(ctx, src)
		if err != nil {
			return err
		}
		if len(repos) > 0 {
			fmt.Printf("  %-14s %d\n", describeSource(src)+":", len(repos))
		}
	}
	for _, local := range cfg.Locals {
		repos, err := store.BySource(ctx, types.LocalSource(local.Name))
		if err != nil {
			return err
		}
		if len(repos) > 0 {
			fmt.Printf("  %-14s %d\n", local.Name+":", len(repos))
		}
	}

	fmt.Printf("Indexed:         %d\n", indexed)
	fmt.Printf("Pending embed:   %d\n", len(pending))
	if lastSync.IsZero() {
		fmt.Printf("Last sync:       never\n")
	} else {
		fmt.Printf("Last sync:       %s\n", lastSync.Local().Format("2006-01-02 15:04:05"))
	}

	fmt.Printf("Embedding model: %s\n", config.ModelDisplayName(cfg.Embedding.Model))
	fmt.Printf("Chat model:      %s\n", config.ModelDisplayName(cfg.Chat.Model))
	if !cfg.IsConfigured() {
		fmt.Println("Note: forge token or embedding API key missing; remote sync is disabled")
	}
	return nil
}

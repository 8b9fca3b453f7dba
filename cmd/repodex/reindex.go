package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild all embeddings from scratch",
	Long: `Reindex clears the vector index, flags every catalog record for
re-embedding, and runs a sync cycle. Use it after switching embedding
models.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, index, err := openStores(cfg)
		if err != nil {
			return err
		}

		err = func() error {
			defer store.Close()
			defer index.Close()

			if err := store.ClearAllEmbeddings(ctx); err != nil {
				return fmt.Errorf("clear embeddings: %w", err)
			}
			return index.Clear(ctx)
		}()
		if err != nil {
			return err
		}

		// The stores reopen inside the sync cycle.
		return runSync(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfreed/repodex/internal/catalog"
	"github.com/mfreed/repodex/pkg/types"
)

var removeSource string

var removeCmd = &cobra.Command{
	Use:   "remove [full-name]",
	Short: "Remove repositories from the catalog and index",
	Long: `Remove deletes a single record by its full name, or with --source
every record of one source. The next sync re-adds anything the source
still reports.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if (len(args) == 0) == (removeSource == "") {
			return fmt.Errorf("provide a full name or --source, not both")
		}

		ctx := cmd.Context()
		store, index, err := openStores(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		defer index.Close()

		if removeSource != "" {
			src := types.Source(removeSource)
			repos, err := store.BySource(ctx, src)
			if err != nil {
				return err
			}
			n, err := store.DeleteBySource(ctx, src)
			if err != nil {
				return err
			}
			for _, rec := range repos {
				if err := index.Delete(ctx, rec.FullName); err != nil {
					return err
				}
			}
			fmt.Printf("Removed %d repositories from %s\n", n, removeSource)
			return nil
		}

		fullName := args[0]
		if err := store.Delete(ctx, fullName); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("no repository named %q", fullName)
			}
			return err
		}
		if err := index.Delete(ctx, fullName); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", fullName)
		return nil
	},
}

func init() {
	removeCmd.Flags().StringVar(&removeSource, "source", "", "remove every record of this source (github, huggingface, or a local source name)")
	rootCmd.AddCommand(removeCmd)
}

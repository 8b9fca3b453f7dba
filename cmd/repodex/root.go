package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mfreed/repodex/internal/catalog"
	"github.com/mfreed/repodex/internal/config"
	"github.com/mfreed/repodex/internal/vecindex"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "repodex",
		Short: "Repodex: multi-source repository catalog and search",
		Long: `Repodex keeps a searchable catalog of your repositories across
GitHub, HuggingFace, and local directory trees. It syncs metadata into
a local SQLite catalog, embeds each record for semantic search, and
answers hybrid keyword+semantic queries from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Repodex\n")
			fmt.Printf("Version: %s\n", version)
			fmt.Printf("Build Time: %s\n", buildTime)
			fmt.Printf("Build Mode: %s\n", catalog.BuildMode)
			fmt.Printf("SQLite Driver: %s\n", catalog.DriverName)
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration and installs the default logger.
// Every subcommand starts here.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	slog.SetDefault(newLogger(cfg.Log.Level))
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}

// openStores opens the catalog and vector index under the data
// directory, creating it when missing.
func openStores(cfg *config.Config) (catalog.Store, *vecindex.Index, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := catalog.NewSQLiteStore(cfg.CatalogPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}

	index, err := vecindex.New(cfg.VectorIndexPath())
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("open vector index: %w", err)
	}
	return store, index, nil
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfreed/repodex/internal/chat"
	"github.com/mfreed/repodex/internal/config"
)

// askContextLimit caps how many catalog records are inlined into the
// system prompt.
const askContextLimit = 200

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your repositories",
	Long: `Ask sends your question to the configured chat model together with a
summary of the catalog, so answers can reference your actual
repositories.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runAsk(cmd.Context(), cfg, args[0])
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, cfg *config.Config, question string) error {
	if cfg.Chat.APIKey == "" {
		return fmt.Errorf("no chat API key configured; set %s", config.EnvOpenRouterKey)
	}

	store, index, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	defer index.Close()

	repos, err := store.All(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("You answer questions about the user's repository catalog. ")
	sb.WriteString("The catalog contains the following repositories:\n")
	for i, rec := range repos {
		if i >= askContextLimit {
			fmt.Fprintf(&sb, "... and %d more\n", len(repos)-i)
			break
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", rec.FullName, rec.Source, rec.Description)
	}

	client, err := chat.New(cfg.Chat.APIKey, cfg.Chat.Model, "")
	if err != nil {
		return err
	}

	err = client.Stream(ctx, []chat.Message{chat.User(question)}, sb.String(), func(delta string) error {
		fmt.Print(delta)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Println()
	return nil
}

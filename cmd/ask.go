package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/config"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single health question from the terminal",
	Long: `Runs one retrieval-augmented turn without the HTTP server or the
conversation log. Useful for smoke-testing the knowledge base and the
API key.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger()

	system, err := rag.New(rag.Config{
		Settings: cfg,
		Logger:   logger.With("component", "rag"),
	})
	if err != nil {
		return fmt.Errorf("building answer pipeline: %w", err)
	}

	question := strings.Join(args, " ")
	answer := system.Answer(context.Background(), question, nil)

	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

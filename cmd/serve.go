package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Neerajramb/medical-assistant-project-v2/api"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/config"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/database"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/history"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/rag"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API that powers chat frontends.

The server answers POST /api/chat with retrieval-augmented responses,
serves conversation transcripts on GET /api/history, and produces
session greetings on GET /api/welcome. It shuts down gracefully on
SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides configuration)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening chat database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("closing chat database", "error", closeErr)
		}
	}()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrating chat database: %w", err)
	}

	system, err := rag.New(rag.Config{
		Settings: cfg,
		Logger:   logger.With("component", "rag"),
	})
	if err != nil {
		return fmt.Errorf("building answer pipeline: %w", err)
	}

	if !cmd.Flags().Changed("addr") {
		serveAddr = cfg.Addr
	}

	messages := history.New(db, logger.With("component", "history"))
	server := api.NewServer(system, messages, db, logger.With("component", "api"))
	return server.Run(ctx, serveAddr)
}

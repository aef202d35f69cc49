// Package cmd implements the medassist command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/log"
)

var (
	debug   bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "medassist",
	Short: "Medical information assistant with retrieval-augmented answers",
	Long: `Medassist answers health questions with a Gemini model grounded in a
local medical knowledge base. It serves a REST API for chat frontends
and ships companion commands for indexing documents and asking one-off
questions from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(loadDotenv)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
}

// loadDotenv loads a .env file from the working directory when present.
// A missing file is the normal case and not reported.
func loadDotenv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}
}

// newLogger builds the process logger from the persistent flags.
// MEDASSIST_DEBUG=1 enables debug logging without a flag, which is
// handy for containerized deployments.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if debug || os.Getenv("MEDASSIST_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: logJSON})
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runVersion(cmd)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "medassist %s\n", AppVersion)
	fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
	fmt.Fprintln(out)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Model: %s\n", cfg.ModelName)
	fmt.Fprintf(out, "  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Fprintf(out, "  Knowledge base: %s\n", cfg.ChromaPath)
	fmt.Fprintf(out, "  Chat database: %s\n", cfg.DatabasePath)
	fmt.Fprintf(out, "  Address: %s\n", cfg.Addr)

	// Report key presence without printing it.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		fmt.Fprintln(out, "  GEMINI_API_KEY: configured")
	} else {
		fmt.Fprintln(out, "  GEMINI_API_KEY: not set")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Hint: set GEMINI_API_KEY in the environment or a .env file")
	}
	return nil
}

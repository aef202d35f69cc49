package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/config"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/gemini"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/knowledge"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index documents into the medical knowledge base",
	Long: `Reads .txt and .md files, splits them into chunks, embeds each chunk
with the Gemini embedding model, and stores the vectors locally.
Directories are walked recursively; unsupported files are skipped.

Re-running ingest on the same files replaces their chunks, so it is
safe to use for updates.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger()

	client := gemini.NewClient(cfg, logger.With("component", "gemini"))
	if !client.Configured() {
		return errors.New("GEMINI_API_KEY is not set; ingestion needs the embedding API")
	}

	store, err := knowledge.Open(cfg.ChromaPath, config.CollectionName, logger.With("component", "knowledge"))
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}

	indexer := knowledge.NewIndexer(store, client, logger.With("component", "indexer"))

	ctx := context.Background()
	var total knowledge.IndexResult
	for _, path := range args {
		res, err := indexer.IndexPath(ctx, path)
		if err != nil {
			return fmt.Errorf("indexing %q: %w", path, err)
		}
		total.FilesIndexed += res.FilesIndexed
		total.FilesSkipped += res.FilesSkipped
		total.ChunksAdded += res.ChunksAdded
		total.Duration += res.Duration
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d file(s), %d chunk(s) in %s (%d skipped)\n",
		total.FilesIndexed, total.ChunksAdded, total.Duration.Round(time.Millisecond), total.FilesSkipped)
	fmt.Fprintf(cmd.OutOrStdout(), "Knowledge base now holds %d chunk(s)\n", store.Count())
	return nil
}

package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/log"
)

// supportedExtensions are the file types the indexer ingests.
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// maxChunkLen bounds chunk size so each chunk stays well within the
// embedding model's token limit (~2048 tokens for text-embedding-004).
const maxChunkLen = 2000

// IndexResult summarizes an ingestion run.
type IndexResult struct {
	FilesIndexed int
	FilesSkipped int
	ChunksAdded  int
	Duration     time.Duration
}

// Indexer ingests local text files into the vector store: read,
// chunk, embed, upsert. Ingestion is an offline collaborator path;
// the chat hot path only queries.
type Indexer struct {
	store    *Store
	embedder Embedder
	logger   log.Logger
}

// NewIndexer creates a file indexer.
func NewIndexer(store *Store, embedder Embedder, logger log.Logger) *Indexer {
	return &Indexer{store: store, embedder: embedder, logger: logger}
}

// IndexPath ingests a file, or every supported file under a
// directory. Unsupported files are skipped, not failed.
func (ix *Indexer) IndexPath(ctx context.Context, path string) (IndexResult, error) {
	start := time.Now()
	var res IndexResult

	info, err := os.Stat(path)
	if err != nil {
		return res, fmt.Errorf("stat %q: %w", path, err)
	}

	if !info.IsDir() {
		added, err := ix.indexFile(ctx, path)
		if err != nil {
			return res, err
		}
		res.FilesIndexed = 1
		res.ChunksAdded = added
		res.Duration = time.Since(start)
		return res, nil
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(p))] {
			res.FilesSkipped++
			return nil
		}
		added, err := ix.indexFile(ctx, p)
		if err != nil {
			// Keep going; one unreadable file should not abort a run.
			ix.logger.Warn("skipping file", "path", p, "error", err)
			res.FilesSkipped++
			return nil
		}
		res.FilesIndexed++
		res.ChunksAdded += added
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("walking %q: %w", path, err)
	}

	res.Duration = time.Since(start)
	return res, nil
}

// indexFile chunks one file and upserts each chunk with its embedding.
// Chunk IDs are deterministic per (file, index), so re-ingesting a
// file replaces its previous chunks instead of duplicating them.
func (ix *Indexer) indexFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %q: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	chunks := chunkText(string(data), maxChunkLen)
	now := time.Now()
	for i, chunk := range chunks {
		embedding, err := ix.embedder.Embed(ctx, chunk)
		if err != nil {
			return i, fmt.Errorf("embedding chunk %d of %q: %w", i, path, err)
		}

		doc := Document{
			ID:      fmt.Sprintf("file:%s#%d", fileID(abs), i),
			Content: chunk,
			Metadata: map[string]string{
				"source": abs,
				"chunk":  fmt.Sprintf("%d", i),
			},
			CreateAt: now,
		}
		if err := ix.store.Upsert(ctx, doc, embedding); err != nil {
			return i, err
		}
	}

	ix.logger.Info("indexed file", "path", path, "chunks", len(chunks))
	return len(chunks), nil
}

// splitIndex returns the largest index <= max that falls on a UTF-8
// rune boundary, so a hard split never cuts a rune in half.
func splitIndex(s string, max int) int {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return max
	}
	return cut
}

// fileID derives a stable short identifier from the absolute path.
func fileID(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(sum[:8])
}

// chunkText splits text into paragraph-aligned chunks no longer than
// maxLen. Paragraphs are merged until the limit is reached; a single
// oversized paragraph is split hard.
func chunkText(text string, maxLen int) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// Hard-split paragraphs that alone exceed the limit.
		for len(para) > maxLen {
			flush()
			cut := splitIndex(para, maxLen)
			chunks = append(chunks, strings.TrimSpace(para[:cut]))
			para = strings.TrimSpace(para[cut:])
		}
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > maxLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

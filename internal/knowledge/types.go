// Package knowledge manages the persistent vector index of medical
// reference documents. It wraps chromem-go, an embedded vector store
// persisted on the local filesystem, so the service needs no external
// database for retrieval.
package knowledge

import (
	"context"
	"time"
)

// Document represents an indexed text chunk. Documents are immutable
// once indexed; re-ingesting the same ID replaces the stored copy.
type Document struct {
	ID       string            // Stable identifier
	Content  string            // Document text content
	Metadata map[string]string // Optional metadata (source path, chunk index)
	CreateAt time.Time         // Ingestion timestamp
}

// Result represents a single nearest-neighbor match.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity score (0-1)
}

// Embedder converts text to a fixed-dimension vector. Defined here,
// at the consumer, so the store and indexer can be tested with a stub;
// gemini.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

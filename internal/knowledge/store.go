package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/log"
)

// metaCreatedAt is the metadata key holding the ingestion timestamp.
const metaCreatedAt = "created_at"

// Store is a persistent vector index over document embeddings.
// Opening the same path twice yields the same logical store, and a
// successful Upsert is durably visible to subsequent queries.
//
// Store is safe for concurrent use once opened.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     log.Logger
}

// Open opens (or creates) the vector store at path and binds the named
// collection. Idempotent: repeated opens against the same path attach
// to the same persisted data.
func Open(path, collection string, logger log.Logger) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store at %q: %w", path, err)
	}

	// Embeddings are always supplied explicitly by the caller, so the
	// collection's own embedding func must never run.
	col, err := db.GetOrCreateCollection(collection, nil, rejectImplicitEmbedding)
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", collection, err)
	}

	logger.Debug("vector store opened",
		"path", path,
		"collection", collection,
		"documents", col.Count())

	return &Store{db: db, collection: col, logger: logger}, nil
}

// rejectImplicitEmbedding guards against accidental use of chromem's
// built-in embedding providers.
func rejectImplicitEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("knowledge: embeddings are computed externally")
}

// Upsert stores a document with its embedding. An existing document
// with the same ID is replaced.
func (s *Store) Upsert(ctx context.Context, doc Document, embedding []float32) error {
	if doc.ID == "" {
		return errors.New("document ID must not be empty")
	}
	if doc.Content == "" {
		return fmt.Errorf("document %q has no content", doc.ID)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("document %q has an empty embedding", doc.ID)
	}

	metadata := make(map[string]string, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		metadata[k] = v
	}
	createAt := doc.CreateAt
	if createAt.IsZero() {
		createAt = time.Now()
	}
	metadata[metaCreatedAt] = createAt.UTC().Format(time.RFC3339)

	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: embedding,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("upserted document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Query returns up to k documents nearest to the given embedding,
// ordered by descending similarity. Fewer than k results, including
// zero, is success, not failure.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(embedding) == 0 {
		return nil, errors.New("query embedding is empty")
	}

	// chromem rejects nResults larger than the collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	matches, err := s.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			Document: Document{
				ID:       m.ID,
				Content:  m.Content,
				Metadata: m.Metadata,
				CreateAt: parseCreatedAt(m.Metadata),
			},
			Similarity: m.Similarity,
		})
	}
	return results, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count() int {
	return s.collection.Count()
}

func parseCreatedAt(metadata map[string]string) time.Time {
	t, err := time.Parse(time.RFC3339, metadata[metaCreatedAt])
	if err != nil {
		return time.Time{}
	}
	return t
}

package rag

import (
	"context"
	"errors"
	"fmt"
)

// ErrRetrievalUnavailable wraps failures of the embed-and-query stage.
// Callers that can answer without context should treat it as a
// degraded mode rather than a hard failure.
var ErrRetrievalUnavailable = errors.New("rag: retrieval unavailable")

// Retrieve embeds the query and returns the contents of the k nearest
// documents, best match first. An empty knowledge base yields an empty
// slice and no error.
func (s *System) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	index, err := s.ensureIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: open store: %v", ErrRetrievalUnavailable, err)
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrRetrievalUnavailable, err)
	}

	results, err := index.Query(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrRetrievalUnavailable, err)
	}

	docs := make([]string, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.Document.Content)
	}
	return docs, nil
}

package rag

import (
	"context"
	"errors"
	"sync"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/config"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/gemini"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/knowledge"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/log"
)

// Completer is the LLM gateway surface the pipeline depends on.
// *gemini.Client satisfies it.
type Completer interface {
	// Configured reports whether an API key is present.
	Configured() bool
	// Generate returns the model's reply or a classified error.
	Generate(ctx context.Context, prompt string) (string, error)
	// Complete returns the model's reply, or a fixed fallback sentence
	// when the call fails. It never returns an error.
	Complete(ctx context.Context, prompt string) string
}

// Embedder turns text into a vector. *gemini.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the nearest-neighbor lookup surface of the vector store.
// *knowledge.Store satisfies it.
type Index interface {
	Query(ctx context.Context, embedding []float32, k int) ([]knowledge.Result, error)
}

// Config assembles a System. Settings and Logger are required. The
// remaining fields override the default dependencies and exist mainly
// for tests; when nil, the LLM client and embedder are built from
// Settings, and the vector store is opened lazily on first use.
type Config struct {
	Settings *config.Config
	Logger   log.Logger

	Completer Completer
	Embedder  Embedder
	Index     Index
}

// System owns the RAG pipeline state shared across requests. Methods
// are safe for concurrent use.
type System struct {
	settings *config.Config
	logger   log.Logger
	llm      Completer
	embedder Embedder

	mu    sync.Mutex
	index Index
}

// New builds a System. It performs no I/O: the vector store is opened
// on the first request that needs it.
func New(cfg Config) (*System, error) {
	if cfg.Settings == nil {
		return nil, errors.New("rag: settings are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	s := &System{
		settings: cfg.Settings,
		logger:   cfg.Logger,
		llm:      cfg.Completer,
		embedder: cfg.Embedder,
		index:    cfg.Index,
	}

	if s.llm == nil || s.embedder == nil {
		client := gemini.NewClient(cfg.Settings, cfg.Logger.With("component", "gemini"))
		if s.llm == nil {
			s.llm = client
		}
		if s.embedder == nil {
			s.embedder = client
		}
	}
	return s, nil
}

// HistoryWindow reports how many recent messages a chat turn should
// carry as conversational context.
func (s *System) HistoryWindow() int {
	return s.settings.HistoryWindow
}

// ensureIndex opens the vector store on first use. Concurrent first
// callers initialize it exactly once; a failed open leaves the field
// nil so the next request retries instead of caching the failure.
func (s *System) ensureIndex() (Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index, nil
	}

	store, err := knowledge.Open(s.settings.ChromaPath, config.CollectionName,
		s.logger.With("component", "knowledge"))
	if err != nil {
		return nil, err
	}
	s.index = store
	return store, nil
}

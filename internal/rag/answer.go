package rag

import (
	"context"
	"errors"
	"strings"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/gemini"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/history"
)

// passthrough holds answers that must never have the disclaimer
// appended: the off-topic redirect and every canned failure sentence.
var passthrough = map[string]struct{}{
	OffTopicReply:             {},
	MsgInitFailed:             {},
	MsgInternalError:          {},
	gemini.MsgNotConfigured:   {},
	gemini.MsgConnectivity:    {},
	gemini.MsgCheckConfig:     {},
	gemini.MsgUnusualResponse: {},
	gemini.MsgInternal:        {},
}

// Answer runs one chat turn: retrieve context for the query, compose
// the prompt with the recent conversation window, and complete it.
// The window is oldest-first and already truncated by the caller.
//
// Answer never returns an error and never panics outward. Every
// failure mode maps to a fixed sentence: MsgInitFailed when the vector
// store cannot be opened, the gateway's own fallbacks when the LLM
// call fails, and MsgInternalError for anything unexpected. A
// retrieval failure after successful initialization degrades to an
// empty-context answer instead of failing the turn.
func (s *System) Answer(ctx context.Context, query string, window []history.Message) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in answer pipeline", "panic", r)
			answer = MsgInternalError
		}
	}()

	if _, err := s.ensureIndex(); err != nil {
		s.logger.Error("vector store initialization failed", "error", err)
		return MsgInitFailed
	}

	docs, err := s.Retrieve(ctx, query, s.settings.TopK)
	if err != nil {
		if !errors.Is(err, ErrRetrievalUnavailable) {
			s.logger.Error("retrieval failed", "error", err)
			return MsgInternalError
		}
		s.logger.Warn("retrieval unavailable, answering without context", "error", err)
		docs = nil
	}

	prompt := composePrompt(query, window, docs)
	s.logger.Debug("answering", "query_len", len(query), "history", len(window), "docs", len(docs))

	return ensureDisclaimer(s.llm.Complete(ctx, prompt))
}

// ensureDisclaimer appends the mandatory disclaimer to a medical
// answer that does not already end with it. A disclaimer buried
// mid-answer does not count: the contract is that medical answers
// terminate with the sentence. Redirects and canned failure sentences
// pass through untouched.
func ensureDisclaimer(answer string) string {
	if _, ok := passthrough[answer]; ok {
		return answer
	}
	if strings.HasSuffix(strings.TrimSpace(answer), Disclaimer) {
		return answer
	}
	return answer + "\n\n" + Disclaimer
}

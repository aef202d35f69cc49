package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/config"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/gemini"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/history"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/knowledge"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/log"
)

type stubLLM struct {
	configured bool
	reply      string
	err        error
	panics     bool
	prompts    []string
}

func (s *stubLLM) Configured() bool { return s.configured }

func (s *stubLLM) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubLLM) Complete(_ context.Context, prompt string) string {
	if s.panics {
		panic("stub completer exploded")
	}
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return gemini.MsgConnectivity
	}
	return s.reply
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return s.vec, s.err
}

type stubIndex struct {
	results []knowledge.Result
	err     error
}

func (s *stubIndex) Query(context.Context, []float32, int) ([]knowledge.Result, error) {
	return s.results, s.err
}

func testSettings() *config.Config {
	return &config.Config{
		GeminiAPIKey:  "test-key",
		ModelName:     config.DefaultModelName,
		EmbedderModel: config.DefaultEmbedderModel,
		TopK:          config.DefaultTopK,
		HistoryWindow: config.DefaultHistoryWindow,
	}
}

func newTestSystem(t *testing.T, llm *stubLLM, embedder Embedder, index Index) *System {
	t.Helper()
	sys, err := New(Config{
		Settings:  testSettings(),
		Logger:    log.NewNop(),
		Completer: llm,
		Embedder:  embedder,
		Index:     index,
	})
	require.NoError(t, err)
	return sys
}

func TestNewRequiresSettings(t *testing.T) {
	_, err := New(Config{Logger: log.NewNop()})
	require.Error(t, err)
}

func TestComposePromptDeterministic(t *testing.T) {
	window := []history.Message{
		{Sender: history.SenderUser, Message: "I have a headache"},
		{Sender: history.SenderAssistant, Message: "How long has it lasted?"},
	}
	docs := []string{"Tension headaches are the most common type.", "Hydration can help."}

	first := composePrompt("what should I take?", window, docs)
	second := composePrompt("what should I take?", window, docs)
	assert.Equal(t, first, second)
}

func TestComposePromptSections(t *testing.T) {
	window := []history.Message{
		{Sender: history.SenderUser, Message: "I have a headache"},
		{Sender: history.SenderAssistant, Message: "How long has it lasted?"},
	}
	prompt := composePrompt("what should I take?", window, []string{"Ibuprofen dosage guidance."})

	assert.Contains(t, prompt, "### Persona")
	assert.Contains(t, prompt, "User: I have a headache")
	assert.Contains(t, prompt, "Assistant: How long has it lasted?")
	assert.Contains(t, prompt, OffTopicReply)
	assert.Contains(t, prompt, Disclaimer)
	assert.Contains(t, prompt, "Ibuprofen dosage guidance.")
	assert.Contains(t, prompt, `"what should I take?"`)

	// Sections keep their order even with empty history and context.
	empty := composePrompt("q", nil, nil)
	persona := strings.Index(empty, "### Persona")
	hist := strings.Index(empty, "### Recent Conversation History")
	rules := strings.Index(empty, "### Rules of Engagement")
	info := strings.Index(empty, "### Provided Medical Information")
	latest := strings.Index(empty, "### User's Latest Message")
	answer := strings.Index(empty, "### Your Answer:")
	assert.True(t, persona < hist && hist < rules && rules < info && info < latest && latest < answer)
}

func TestEnsureDisclaimer(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{
			name:   "appended when missing",
			answer: "Drink water and rest.",
			want:   "Drink water and rest.\n\n" + Disclaimer,
		},
		{
			name:   "unchanged when already at the end",
			answer: "Drink water and rest. " + Disclaimer,
			want:   "Drink water and rest. " + Disclaimer,
		},
		{
			name:   "unchanged with trailing whitespace",
			answer: "Drink water and rest.\n\n" + Disclaimer + "\n",
			want:   "Drink water and rest.\n\n" + Disclaimer + "\n",
		},
		{
			name:   "appended when only mid-answer",
			answer: Disclaimer + " That said, rest helps most people.",
			want:   Disclaimer + " That said, rest helps most people.\n\n" + Disclaimer,
		},
		{
			name:   "off-topic redirect passes through",
			answer: OffTopicReply,
			want:   OffTopicReply,
		},
		{
			name:   "gateway fallback passes through",
			answer: gemini.MsgConnectivity,
			want:   gemini.MsgConnectivity,
		},
		{
			name:   "init failure passes through",
			answer: MsgInitFailed,
			want:   MsgInitFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ensureDisclaimer(tt.answer))
		})
	}
}

func TestAnswerComposesRetrievedContext(t *testing.T) {
	llm := &stubLLM{configured: true, reply: "Rest and fluids help. " + Disclaimer}
	index := &stubIndex{results: []knowledge.Result{
		{Document: knowledge.Document{ID: "d1", Content: "Rest is the first-line treatment."}, Similarity: 0.9},
	}}
	sys := newTestSystem(t, llm, &stubEmbedder{vec: []float32{0.1, 0.2}}, index)

	answer := sys.Answer(context.Background(), "how do I treat a cold?", []history.Message{
		{Sender: history.SenderUser, Message: "hi"},
	})

	assert.Equal(t, "Rest and fluids help. "+Disclaimer, answer)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Rest is the first-line treatment.")
	assert.Contains(t, llm.prompts[0], "User: hi")
}

func TestAnswerRepairsMissingDisclaimer(t *testing.T) {
	llm := &stubLLM{configured: true, reply: "Rest and fluids help."}
	sys := newTestSystem(t, llm, &stubEmbedder{vec: []float32{0.1}}, &stubIndex{})

	answer := sys.Answer(context.Background(), "how do I treat a cold?", nil)
	assert.True(t, strings.HasSuffix(answer, Disclaimer))
}

func TestAnswerDegradesWhenRetrievalFails(t *testing.T) {
	llm := &stubLLM{configured: true, reply: "General advice. " + Disclaimer}
	sys := newTestSystem(t, llm, &stubEmbedder{err: errors.New("embedder down")}, &stubIndex{})

	answer := sys.Answer(context.Background(), "what causes migraines?", nil)

	assert.Equal(t, "General advice. "+Disclaimer, answer)
	require.Len(t, llm.prompts, 1)
	// The provided-information section is present but empty.
	assert.Contains(t, llm.prompts[0], "### Provided Medical Information")
}

func TestAnswerInitFailure(t *testing.T) {
	// Point the store path at a regular file so opening it fails.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	settings := testSettings()
	settings.ChromaPath = blocker

	llm := &stubLLM{configured: true, reply: "should not be reached"}
	sys, err := New(Config{
		Settings:  settings,
		Logger:    log.NewNop(),
		Completer: llm,
		Embedder:  &stubEmbedder{vec: []float32{0.1}},
	})
	require.NoError(t, err)

	answer := sys.Answer(context.Background(), "anything", nil)
	assert.Equal(t, MsgInitFailed, answer)
	assert.Empty(t, llm.prompts)
}

func TestAnswerRecoversFromPanic(t *testing.T) {
	llm := &stubLLM{configured: true, panics: true}
	sys := newTestSystem(t, llm, &stubEmbedder{vec: []float32{0.1}}, &stubIndex{})

	answer := sys.Answer(context.Background(), "anything", nil)
	assert.Equal(t, MsgInternalError, answer)
}

func TestRetrieveEmptyStore(t *testing.T) {
	sys := newTestSystem(t, &stubLLM{configured: true}, &stubEmbedder{vec: []float32{0.1}}, &stubIndex{})

	docs, err := sys.Retrieve(context.Background(), "query", 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRetrieveWrapsFailures(t *testing.T) {
	sys := newTestSystem(t, &stubLLM{configured: true},
		&stubEmbedder{err: errors.New("boom")}, &stubIndex{})

	_, err := sys.Retrieve(context.Background(), "query", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

func TestGreetNewUser(t *testing.T) {
	llm := &stubLLM{configured: true, reply: "should not be reached"}
	sys := newTestSystem(t, llm, &stubEmbedder{}, &stubIndex{})

	greeting := sys.Greet(context.Background(), "")

	assert.Equal(t, GreetingNewUser, greeting)
	assert.Empty(t, llm.prompts, "gateway must not be consulted for first-time users")
}

func TestGreetWithoutAPIKey(t *testing.T) {
	llm := &stubLLM{configured: false}
	sys := newTestSystem(t, llm, &stubEmbedder{}, &stubIndex{})

	greeting := sys.Greet(context.Background(), "my headache")

	assert.Equal(t, GreetingNoKey, greeting)
	assert.Empty(t, llm.prompts)
}

func TestGreetReturningUser(t *testing.T) {
	llm := &stubLLM{configured: true, reply: "Welcome back! How is the headache?"}
	sys := newTestSystem(t, llm, &stubEmbedder{}, &stubIndex{})

	greeting := sys.Greet(context.Background(), "I keep getting a headache after lunch")

	assert.Equal(t, "Welcome back! How is the headache?", greeting)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "I keep getting a headache after lunch")
}

func TestGreetGenerationFailure(t *testing.T) {
	llm := &stubLLM{configured: true, err: errors.New("model offline")}
	sys := newTestSystem(t, llm, &stubEmbedder{}, &stubIndex{})

	greeting := sys.Greet(context.Background(), "my headache")
	assert.Equal(t, GreetingFallback, greeting)
}

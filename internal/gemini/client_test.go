package gemini

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/config"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/log"
)

// newTestClient builds a Client pointed at a test server with fast
// retry settings.
func newTestClient(baseURL, apiKey string) *Client {
	cfg := &config.Config{
		GeminiAPIKey:  apiKey,
		GeminiBaseURL: baseURL,
		ModelName:     "gemini-1.5-flash-latest",
		EmbedderModel: "text-embedding-004",
		LLMTimeoutSec: 5,
	}
	c := NewClient(cfg, log.NewNop())
	c.retry = RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	return c
}

const answerBody = `{"candidates":[{"content":{"role":"model","parts":[{"text":"  Drink plenty of fluids.  "}]}}]}`

func TestGenerate_Success_TrimsAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-1.5-flash-latest:generateContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"), "api key must not appear in the URL")
		_, _ = w.Write([]byte(answerBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "test-key")
	text, err := c.Generate(context.Background(), "What helps with a cold?")
	require.NoError(t, err)
	assert.Equal(t, "Drink plenty of fluids.", text)
}

func TestGenerate_NoKey_NoNetworkCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("network call attempted without api key")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	_, err := c.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerate_HTTPError_ExtractsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "bad-key")
	_, err := c.Generate(context.Background(), "hello")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "API key not valid", statusErr.Message)
}

func TestGenerate_MissingCandidates_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "test-key")
	_, err := c.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGenerate_RetriesTransientServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(answerBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "test-key")
	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Drink plenty of fluids.", text)
	assert.Equal(t, 2, calls)
}

func TestGenerate_DoesNotRetryClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "test-key")
	_, err := c.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestEmbed_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "text-embedding-004:embedContent")
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "test-key")
	vec, err := c.Embed(context.Background(), "headache")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbed_EmptyVector_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":{"values":[]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "test-key")
	_, err := c.Embed(context.Background(), "headache")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestComplete_FallbackMapping(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		handler http.HandlerFunc
		want    string
	}{
		{
			name:   "no api key",
			apiKey: "",
			handler: func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("network call attempted without api key")
			},
			want: MsgNotConfigured,
		},
		{
			name:   "http error",
			apiKey: "k",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":{"message":"permission denied"}}`))
			},
			want: MsgCheckConfig,
		},
		{
			name:   "malformed response",
			apiKey: "k",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"candidates":[]}`))
			},
			want: MsgUnusualResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := newTestClient(srv.URL, tt.apiKey)
			assert.Equal(t, tt.want, c.Complete(context.Background(), "hello"))
		})
	}
}

func TestComplete_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Connection refused from here on.

	c := newTestClient(srv.URL, "k")
	assert.Equal(t, MsgConnectivity, c.Complete(context.Background(), "hello"))
}

func TestComplete_TransportFailure_KeyNotLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Connection refused from here on.

	// Transport errors embed the request URL in their text, so the log
	// line must never contain the credential.
	const key = "sk-SUPER-SECRET-KEY"
	var logs bytes.Buffer
	c := newTestClient(srv.URL, key)
	c.logger = log.NewWithWriter(&logs, log.Config{Level: slog.LevelDebug})

	assert.Equal(t, MsgConnectivity, c.Complete(context.Background(), "hello"))
	assert.NotEmpty(t, logs.String())
	assert.NotContains(t, logs.String(), key)
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(answerBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "test-key")
	assert.Equal(t, "Drink plenty of fluids.", c.Complete(context.Background(), "hello"))
}

func TestRetryable(t *testing.T) {
	assert.False(t, retryable(nil))
	assert.False(t, retryable(ErrNotConfigured))
	assert.False(t, retryable(ErrMalformedResponse))
	assert.True(t, retryable(ErrTransport))
	assert.True(t, retryable(&StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, retryable(&StatusError{StatusCode: http.StatusBadGateway}))
	assert.False(t, retryable(&StatusError{StatusCode: http.StatusNotFound}))
}

// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (GEMINI_API_KEY, MEDASSIST_*)
//  2. Config file (~/.medassist/config.yaml or ./config.yaml)
//  3. Default values
//
// Security: the API key is never logged; MarshalJSON and String mask
// it. Validation is fail-fast with sentinel errors so callers can use
// errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidModelName indicates the completion model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model name is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates the retrieval result count is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidHistoryWindow indicates the history window size is out of range.
	ErrInvalidHistoryWindow = errors.New("invalid history window")

	// ErrInvalidTimeout indicates the LLM timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid llm timeout")

	// ErrInvalidStorePath indicates a storage path is empty.
	ErrInvalidStorePath = errors.New("invalid store path")
)

const (
	// CollectionName is the vector store collection holding the
	// indexed medical knowledge.
	CollectionName = "medical_knowledge"

	// DefaultModelName is the Gemini completion model.
	DefaultModelName = "gemini-1.5-flash-latest"

	// DefaultEmbedderModel is the Gemini embedding model.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultTopK is the number of documents retrieved per query.
	DefaultTopK = 3

	// DefaultHistoryWindow is the number of recent messages passed to
	// the prompt composer.
	DefaultHistoryWindow = 10

	// MaxTopK bounds top_k to keep retrieval cheap.
	MaxTopK = 10

	// MaxHistoryWindow bounds the history window to keep prompts small.
	MaxHistoryWindow = 100
)

// Config stores application configuration.
// SECURITY: GeminiAPIKey is masked in MarshalJSON; update the method
// when adding new sensitive fields.
type Config struct {
	// Gemini API configuration
	GeminiAPIKey  string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	GeminiBaseURL string `mapstructure:"gemini_base_url" json:"gemini_base_url"`
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	LLMTimeoutSec int    `mapstructure:"llm_timeout_sec" json:"llm_timeout_sec"`

	// Retrieval configuration
	ChromaPath    string `mapstructure:"chroma_path" json:"chroma_path"`
	TopK          int    `mapstructure:"top_k" json:"top_k"`
	HistoryWindow int    `mapstructure:"history_window" json:"history_window"`

	// Chat log storage (SQLite)
	DatabasePath string `mapstructure:"database_path" json:"database_path"`

	// HTTP server
	Addr string `mapstructure:"addr" json:"addr"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".medassist")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("gemini_base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("llm_timeout_sec", 60)

	v.SetDefault("chroma_path", filepath.Join(configDir, "chroma_db"))
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("history_window", DefaultHistoryWindow)

	v.SetDefault("database_path", filepath.Join(configDir, "chat.db"))

	v.SetDefault("addr", "127.0.0.1:8080")
}

// bindEnvVariables binds environment variables explicitly.
// GEMINI_API_KEY is the only secret; the MEDASSIST_* variables are
// runtime overrides for deployment.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("gemini_base_url", "MEDASSIST_GEMINI_BASE_URL")
	mustBind("model_name", "MEDASSIST_MODEL_NAME")
	mustBind("embedder_model", "MEDASSIST_EMBEDDER_MODEL")
	mustBind("chroma_path", "MEDASSIST_CHROMA_PATH")
	mustBind("database_path", "MEDASSIST_DATABASE_PATH")
	mustBind("addr", "MEDASSIST_ADDR")
	mustBind("top_k", "MEDASSIST_TOP_K")
	mustBind("history_window", "MEDASSIST_HISTORY_WINDOW")
}

// Validate checks value ranges, failing fast with sentinel errors.
//
// Note: a missing GEMINI_API_KEY is deliberately NOT a validation
// error. The LLM gateway treats an absent credential as a distinct
// runtime outcome ("not configured") so the rest of the service keeps
// working without it.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return ErrInvalidModelName
	}
	if c.EmbedderModel == "" {
		return ErrInvalidEmbedderModel
	}
	if c.TopK < 1 || c.TopK > MaxTopK {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidTopK, MaxTopK, c.TopK)
	}
	if c.HistoryWindow < 1 || c.HistoryWindow > MaxHistoryWindow {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidHistoryWindow, MaxHistoryWindow, c.HistoryWindow)
	}
	if c.LLMTimeoutSec < 1 || c.LLMTimeoutSec > 600 {
		return fmt.Errorf("%w: must be between 1 and 600 seconds, got %d", ErrInvalidTimeout, c.LLMTimeoutSec)
	}
	if c.ChromaPath == "" {
		return fmt.Errorf("%w: chroma_path is empty", ErrInvalidStorePath)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database_path is empty", ErrInvalidStorePath)
	}
	return nil
}

// LLMTimeout returns the bounded per-request timeout for Gemini calls.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked to prevent substring matching; longer secrets keep the first
// and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

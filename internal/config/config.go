package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Completion backend, any OpenAI-compatible API (Groq by default).
	CompletionAPIKey  string  `envconfig:"COMPLETION_API_KEY" required:"true"`
	CompletionBaseURL string  `envconfig:"COMPLETION_BASE_URL" default:"https://api.groq.com/openai/v1"`
	CompletionModel   string  `envconfig:"COMPLETION_MODEL" default:"llama-3.3-70b-versatile"`
	Temperature       float32 `envconfig:"TEMPERATURE" default:"0.7"`
	MaxTokens         int     `envconfig:"MAX_TOKENS" default:"1024"`

	// Embedding backend. Empty key falls back to the completion key;
	// empty base URL uses the OpenAI default.
	EmbeddingAPIKey     string `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingBaseURL    string `envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"0"`

	// Retrieval and conversation tuning.
	TopK                int     `envconfig:"TOP_K" default:"3"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.5"`
	MaxHistory          int     `envconfig:"MAX_HISTORY" default:"20"`
	SystemPrompt        string  `envconfig:"SYSTEM_PROMPT"`

	// Idle session cleanup. A zero TTL disables the reaper.
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"0"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`

	// Index artifacts, loaded from local files by default.
	IndexPath    string `envconfig:"INDEX_PATH" default:"data/index.bin"`
	MetadataPath string `envconfig:"METADATA_PATH" default:"data/metadata.json"`

	// S3-compatible artifact storage. When the endpoint and credentials
	// are set, artifacts come from the bucket instead of local files.
	S3Endpoint    string `envconfig:"S3_ENDPOINT"`
	S3AccessKey   string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey   string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket      string `envconfig:"S3_BUCKET" default:"sattva-artifacts"`
	S3Region      string `envconfig:"S3_REGION" default:"us-east-1"`
	S3IndexKey    string `envconfig:"S3_INDEX_KEY" default:"index.bin"`
	S3MetadataKey string `envconfig:"S3_METADATA_KEY" default:"metadata.json"`
	S3CacheDir    string `envconfig:"S3_CACHE_DIR" default:".cache/artifacts"`

	CORSOrigin string `envconfig:"CORS_ORIGIN" default:"*"`

	SentryDSN         string `envconfig:"SENTRY_DSN"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SATTVA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects values that would silently disable retrieval or
// produce requests the completion backend cannot serve.
func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [-1, 1], got %g", c.SimilarityThreshold)
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("MAX_HISTORY must be positive, got %d", c.MaxHistory)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be within [0, 2], got %g", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL cannot be negative, got %v", c.SessionTTL)
	}
	if c.HasReaper() && c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive when SESSION_TTL is set, got %v", c.SweepInterval)
	}
	return nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasReaper() bool {
	return c.SessionTTL > 0
}

// EmbeddingKey resolves the key for the embedding backend, falling back
// to the completion key when no dedicated one is set.
func (c *Config) EmbeddingKey() string {
	if c.EmbeddingAPIKey != "" {
		return c.EmbeddingAPIKey
	}
	return c.CompletionAPIKey
}

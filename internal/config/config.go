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

	// Falls back to the bare OPENAI_API_KEY when the prefixed one is unset.
	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string  `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	CompletionModel     string  `envconfig:"COMPLETION_MODEL" default:"gpt-3.5-turbo"`
	ModelTemperature    float32 `envconfig:"MODEL_TEMPERATURE" default:"0"`

	ChunkSize        int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap     int `envconfig:"CHUNK_OVERLAP" default:"400"`
	RetrievalK       int `envconfig:"RETRIEVAL_K" default:"4"`
	EmbedBatchSize   int `envconfig:"EMBED_BATCH_SIZE" default:"16"`
	EmbedConcurrency int `envconfig:"EMBED_CONCURRENCY" default:"5"`

	ServiceMaxAttempts int           `envconfig:"SERVICE_MAX_ATTEMPTS" default:"3"`
	ServiceTimeout     time.Duration `envconfig:"SERVICE_TIMEOUT" default:"30s"`

	// Upper bounds on a whole HTTP ask or ingest request, retries included.
	AskTimeout    time.Duration `envconfig:"ASK_TIMEOUT" default:"2m"`
	IngestTimeout time.Duration `envconfig:"INGEST_TIMEOUT" default:"10m"`

	SessionIdleTTL      time.Duration `envconfig:"SESSION_IDLE_TTL" default:"1h"`
	SessionReapInterval time.Duration `envconfig:"SESSION_REAP_INTERVAL" default:"5m"`

	TranscriptLanguages []string `envconfig:"TRANSCRIPT_LANGUAGES" default:"en,ar"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("VIDEOCHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects settings the pipeline cannot run with. An overlap at or
// above the chunk size is allowed; the segmenter caps it.
func (c *Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("invalid config: CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	case c.ChunkOverlap < 0:
		return fmt.Errorf("invalid config: CHUNK_OVERLAP cannot be negative, got %d", c.ChunkOverlap)
	case c.RetrievalK <= 0:
		return fmt.Errorf("invalid config: RETRIEVAL_K must be positive, got %d", c.RetrievalK)
	case c.EmbedBatchSize <= 0:
		return fmt.Errorf("invalid config: EMBED_BATCH_SIZE must be positive, got %d", c.EmbedBatchSize)
	case c.EmbedConcurrency <= 0:
		return fmt.Errorf("invalid config: EMBED_CONCURRENCY must be positive, got %d", c.EmbedConcurrency)
	case c.ServiceMaxAttempts <= 0:
		return fmt.Errorf("invalid config: SERVICE_MAX_ATTEMPTS must be positive, got %d", c.ServiceMaxAttempts)
	case c.ServiceTimeout <= 0:
		return fmt.Errorf("invalid config: SERVICE_TIMEOUT must be positive, got %s", c.ServiceTimeout)
	case c.AskTimeout < 0 || c.IngestTimeout < 0:
		return fmt.Errorf("invalid config: ASK_TIMEOUT and INGEST_TIMEOUT cannot be negative")
	case c.ModelTemperature < 0 || c.ModelTemperature > 2:
		return fmt.Errorf("invalid config: MODEL_TEMPERATURE must be within [0, 2], got %v", c.ModelTemperature)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

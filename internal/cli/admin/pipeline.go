package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/videochat/internal/config"
	"github.com/cloo-solutions/videochat/internal/openai"
	"github.com/cloo-solutions/videochat/internal/service"
	"github.com/cloo-solutions/videochat/internal/source"
	"github.com/cloo-solutions/videochat/internal/storage"
)

// newSessionDeps wires the transcript sources and model clients shared by
// every session.
func newSessionDeps(ctx context.Context, cfg *config.Config) (service.SessionDeps, error) {
	if !cfg.HasOpenAI() {
		return service.SessionDeps{}, openai.ErrNoAPIKey
	}

	dimensions := cfg.EmbeddingDimensions
	if dimensions == 0 {
		dimensions = -1
	}
	oaCfg := openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: dimensions,
		CompletionModel:     cfg.CompletionModel,
		Temperature:         cfg.ModelTemperature,
	}
	embedder := openai.NewClientWithConfig(oaCfg)
	completer := openai.NewCompleter(oaCfg)

	router := &source.Router{
		YouTube: source.NewYouTubeAcquirer(source.YouTubeConfig{Languages: cfg.TranscriptLanguages}),
		File:    source.NewFileAcquirer(),
	}
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    true,
		})
		if err != nil {
			return service.SessionDeps{}, fmt.Errorf("failed to create S3 client: %w", err)
		}
		router.S3 = source.NewS3Acquirer(s3Client)
		log.Printf("s3 transcript source enabled (%s)", cfg.S3Endpoint)
	}

	policy := service.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.ServiceMaxAttempts
	policy.Timeout = cfg.ServiceTimeout

	pipeline := service.DefaultPipelineConfig()
	pipeline.Chunk = service.ChunkConfig{MaxChars: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
	pipeline.RetrievalK = cfg.RetrievalK
	pipeline.Index.BatchSize = cfg.EmbedBatchSize
	pipeline.Index.Concurrency = cfg.EmbedConcurrency
	pipeline.Index.Retry = policy

	log.Printf("pipeline: embeddings=%s completions=%s chunk=%d/%d k=%d",
		cfg.EmbeddingModel, completer.Model(), cfg.ChunkSize, cfg.ChunkOverlap, cfg.RetrievalK)

	return service.SessionDeps{
		Acquirer:    router,
		Embedder:    embedder,
		Synthesizer: service.NewSynthesizer(completer, service.NewLanguageDetector(), policy),
		Config:      pipeline,
	}, nil
}

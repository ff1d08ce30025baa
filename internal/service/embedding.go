package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/videochat/internal/domain"
	"golang.org/x/sync/errgroup"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

const (
	defaultEmbedBatchSize   = 16
	defaultEmbedConcurrency = 5
)

// embedAll embeds texts in batches of batchSize, running at most concurrency
// batches at once. Each batch is retried on its own; the first batch that
// still fails cancels the others and fails the whole call.
func embedAll(ctx context.Context, client EmbeddingClient, texts []string, batchSize, concurrency int, policy RetryPolicy) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	if concurrency <= 0 {
		concurrency = defaultEmbedConcurrency
	}

	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch := texts[start:end]
		offset := start

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := retry(gctx, policy, domain.ErrCodeEmbeddingService, func(ctx context.Context) ([][]float32, error) {
				return client.GenerateEmbeddings(ctx, batch)
			})
			if err != nil {
				return err
			}
			if len(out) != len(batch) {
				return domain.NewDomainError(domain.ErrCodeEmbeddingService,
					fmt.Sprintf("expected %d embeddings, got %d", len(batch), len(out)))
			}
			copy(vectors[offset:], out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// A cancelled parent takes precedence over sibling failures it caused.
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return vectors, nil
}

// embedQuery embeds a single query text with retries.
func embedQuery(ctx context.Context, client EmbeddingClient, text string, policy RetryPolicy) ([]float32, error) {
	return retry(ctx, policy, domain.ErrCodeEmbeddingService, func(ctx context.Context) ([]float32, error) {
		return client.GenerateEmbedding(ctx, text)
	})
}

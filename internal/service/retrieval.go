package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/videochat/internal/domain"
)

// Retriever finds the passages of an Index most relevant to a question.
type Retriever struct {
	embedder EmbeddingClient
	k        int
	retry    RetryPolicy
}

// NewRetriever creates a Retriever returning k passages per question.
func NewRetriever(embedder EmbeddingClient, k int, policy RetryPolicy) *Retriever {
	if k <= 0 {
		k = DefaultRetrievalK
	}
	return &Retriever{
		embedder: embedder,
		k:        k,
		retry:    policy,
	}
}

// K returns the number of passages returned per question.
func (r *Retriever) K() int {
	return r.k
}

// Retrieve embeds query and returns the most similar passages of index, most
// similar first.
func (r *Retriever) Retrieve(ctx context.Context, index *Index, query string) ([]domain.ScoredPassage, error) {
	if index == nil {
		return nil, domain.ErrIndexNotReady
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuestion
	}

	vector, err := embedQuery(ctx, r.embedder, query, r.retry)
	if err != nil {
		return nil, err
	}

	return index.Search(vector, r.k)
}

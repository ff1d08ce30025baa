package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/cloo-solutions/videochat/internal/telemetry"
)

// Metric selects how query and passage vectors are compared.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

// DefaultRetrievalK is the number of passages returned when k is not set.
const DefaultRetrievalK = 4

// IndexOptions controls how an Index is built.
type IndexOptions struct {
	BatchSize   int
	Concurrency int
	Retry       RetryPolicy
	Metric      Metric
}

// DefaultIndexOptions returns batches of 16, five in flight, cosine similarity.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		BatchSize:   defaultEmbedBatchSize,
		Concurrency: defaultEmbedConcurrency,
		Retry:       DefaultRetryPolicy(),
		Metric:      MetricCosine,
	}
}

// Index is an immutable in-memory nearest-neighbour index over passages.
// It is safe for concurrent use.
type Index struct {
	passages   []domain.Passage
	vectors    [][]float32
	metric     Metric
	dimensions int
}

// NewIndex pairs passages with their vectors. It fails with EMPTY_CORPUS on
// zero passages and with INVALID_INPUT when the vectors do not line up.
func NewIndex(passages []domain.Passage, vectors [][]float32, metric Metric) (*Index, error) {
	if len(passages) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if len(vectors) != len(passages) {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput,
			fmt.Sprintf("got %d vectors for %d passages", len(vectors), len(passages)))
	}
	if metric == "" {
		metric = MetricCosine
	}
	if metric != MetricCosine && metric != MetricEuclidean {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, fmt.Sprintf("unknown metric %q", metric))
	}

	dims := len(vectors[0])
	if dims == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "empty embedding vector")
	}

	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dims {
			return nil, domain.NewDomainError(domain.ErrCodeInvalidInput,
				fmt.Sprintf("vector %d has %d dimensions, expected %d", i, len(v), dims))
		}
		stored[i] = prepare(v, metric)
	}

	return &Index{
		passages:   append([]domain.Passage(nil), passages...),
		vectors:    stored,
		metric:     metric,
		dimensions: dims,
	}, nil
}

// BuildIndex embeds every passage through embedder and builds an Index.
// No Index is returned unless every passage was embedded.
func BuildIndex(ctx context.Context, passages []domain.Passage, embedder EmbeddingClient, opts IndexOptions) (*Index, error) {
	if len(passages) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	ctx, span := telemetry.StartSpan(ctx, "index.build", telemetry.SpanAttributes{
		Passages:  len(passages),
		Operation: "index.build",
	})

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	vectors, err := embedAll(ctx, embedder, texts, opts.BatchSize, opts.Concurrency, opts.Retry)
	if err != nil {
		span.Finish(err)
		return nil, err
	}

	idx, err := NewIndex(passages, vectors, opts.Metric)
	span.Finish(err)
	if err != nil {
		return nil, err
	}

	log.Printf("index: built %d passages (%d dimensions, %s)", idx.Len(), idx.Dimensions(), idx.Metric())
	return idx, nil
}

// Len returns the number of indexed passages.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.passages)
}

// Dimensions returns the vector dimensionality.
func (ix *Index) Dimensions() int {
	if ix == nil {
		return 0
	}
	return ix.dimensions
}

// Metric returns the similarity metric.
func (ix *Index) Metric() Metric {
	return ix.metric
}

// Passages returns a copy of the indexed passages in source order.
func (ix *Index) Passages() []domain.Passage {
	if ix == nil {
		return nil
	}
	return append([]domain.Passage(nil), ix.passages...)
}

// Search returns the k passages most similar to query, best first. Ties are
// broken by passage position so results are deterministic. A k that is not
// positive means DefaultRetrievalK; a k above Len returns every passage.
func (ix *Index) Search(query []float32, k int) ([]domain.ScoredPassage, error) {
	if ix == nil {
		return nil, domain.ErrIndexNotReady
	}
	if len(query) != ix.dimensions {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput,
			fmt.Sprintf("query has %d dimensions, index has %d", len(query), ix.dimensions))
	}
	if k <= 0 {
		k = DefaultRetrievalK
	}

	q := prepare(query, ix.metric)
	results := make([]domain.ScoredPassage, len(ix.passages))
	for i, v := range ix.vectors {
		results[i] = domain.ScoredPassage{
			Passage: ix.passages[i],
			Score:   ix.score(q, v),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (ix *Index) score(q, v []float32) float32 {
	if ix.metric == MetricEuclidean {
		return float32(1 / (1 + euclideanDistance(q, v)))
	}
	return dot(q, v)
}

// prepare copies v, unit-normalizing it for cosine similarity.
func prepare(v []float32, metric Metric) []float32 {
	out := append([]float32(nil), v...)
	if metric != MetricCosine {
		return out
	}

	var norm float64
	for _, x := range out {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return out
	}
	inv := 1 / math.Sqrt(norm)
	for i := range out {
		out[i] = float32(float64(out[i]) * inv)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

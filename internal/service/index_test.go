package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testVectors() [][]float32 {
	return [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
		{0.2, 0.1, 0.9},
	}
}

func TestNewIndex_EmptyCorpus(t *testing.T) {
	idx, err := NewIndex(nil, nil, MetricCosine)

	assert.Nil(t, idx)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestNewIndex_RejectsMismatchedVectors(t *testing.T) {
	passages := passagesOf("a", "b")

	_, err := NewIndex(passages, [][]float32{{1, 0}}, MetricCosine)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewIndex(passages, [][]float32{{1, 0}, {1, 0, 0}}, MetricCosine)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewIndex(passages, [][]float32{{1, 0}, {0, 1}}, Metric("manhattan"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_SelfMatchIsFirst(t *testing.T) {
	vectors := testVectors()
	passages := passagesOf("p0", "p1", "p2", "p3", "p4")

	for _, metric := range []Metric{MetricCosine, MetricEuclidean} {
		idx, err := NewIndex(passages, vectors, metric)
		require.NoError(t, err)

		for i, v := range vectors {
			results, err := idx.Search(v, 1)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, i, results[0].Index, "metric %s, vector %d", metric, i)
		}
	}
}

func TestIndex_KLargerThanIndexReturnsAllSorted(t *testing.T) {
	idx, err := NewIndex(passagesOf("p0", "p1", "p2", "p3", "p4"), testVectors(), MetricCosine)
	require.NoError(t, err)

	results, err := idx.Search([]float32{0.5, 0.4, 0.1}, 50)
	require.NoError(t, err)
	require.Len(t, results, idx.Len())

	seen := map[int]bool{}
	for i, r := range results {
		assert.False(t, seen[r.Index], "duplicate passage %d", r.Index)
		seen[r.Index] = true
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
	}
}

func TestIndex_DefaultK(t *testing.T) {
	idx, err := NewIndex(passagesOf("p0", "p1", "p2", "p3", "p4"), testVectors(), MetricCosine)
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0, 0}, 0)

	require.NoError(t, err)
	assert.Len(t, results, DefaultRetrievalK)
}

func TestIndex_SearchIsDeterministic(t *testing.T) {
	// Identical vectors tie; ties resolve by position.
	vectors := [][]float32{{1, 1}, {1, 1}, {1, 1}, {0, 1}}
	idx, err := NewIndex(passagesOf("a", "b", "c", "d"), vectors, MetricCosine)
	require.NoError(t, err)

	first, err := idx.Search([]float32{1, 1}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, indexes(first))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, err := idx.Search([]float32{1, 1}, 4)
			assert.NoError(t, err)
			assert.Equal(t, first, again)
		}()
	}
	wg.Wait()
}

func TestIndex_SearchDimensionMismatch(t *testing.T) {
	idx, err := NewIndex(passagesOf("a"), [][]float32{{1, 0, 0}}, MetricCosine)
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 0}, 1)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_NilSearchIsNotReady(t *testing.T) {
	var idx *Index

	_, err := idx.Search([]float32{1}, 1)

	assert.ErrorIs(t, err, domain.ErrIndexNotReady)
	assert.Equal(t, 0, idx.Len())
}

func TestIndex_DoesNotAliasInputs(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}}
	passages := passagesOf("a", "b")
	idx, err := NewIndex(passages, vectors, MetricCosine)
	require.NoError(t, err)

	vectors[0][0] = -5
	passages[0].Text = "changed"

	results, err := idx.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", results[0].Text)
}

func TestBuildIndex_EmbedsInBatches(t *testing.T) {
	embedder := newKeywordEmbedder("cats", "dogs", "fish")
	texts := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		texts = append(texts, []string{"cats", "dogs", "fish"}[i%3])
	}

	idx, err := BuildIndex(context.Background(), passagesOf(texts...), embedder, IndexOptions{
		BatchSize:   3,
		Concurrency: 2,
		Retry:       fastRetry(),
	})

	require.NoError(t, err)
	assert.Equal(t, 10, idx.Len())
	assert.Equal(t, 4, idx.Dimensions())
	assert.Equal(t, int32(4), embedder.calls.Load())
	assert.Equal(t, MetricCosine, idx.Metric())

	results, err := idx.Search(embedder.vector("fish"), 1)
	require.NoError(t, err)
	assert.Equal(t, "fish", results[0].Text)
}

func TestBuildIndex_EmptyCorpus(t *testing.T) {
	embedder := newKeywordEmbedder("cats")

	idx, err := BuildIndex(context.Background(), nil, embedder, DefaultIndexOptions())

	assert.Nil(t, idx)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
	assert.Equal(t, int32(0), embedder.calls.Load())
}

func TestBuildIndex_BatchFailureFailsBuild(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockClient.On("GenerateEmbeddings", mock.Anything, []string{"a", "b"}).Return([][]float32{{1}, {1}}, nil)
	mockClient.On("GenerateEmbeddings", mock.Anything, []string{"c"}).Return(nil, errors.New("upstream 500"))

	idx, err := BuildIndex(context.Background(), passagesOf("a", "b", "c"), mockClient, IndexOptions{
		BatchSize:   2,
		Concurrency: 1,
		Retry:       fastRetry(),
	})

	assert.Nil(t, idx)
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
	mockClient.AssertNumberOfCalls(t, "GenerateEmbeddings", 4)
}

func TestBuildIndex_WrongVectorCount(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockClient.On("GenerateEmbeddings", mock.Anything, []string{"a", "b"}).Return([][]float32{{1}}, nil)

	_, err := BuildIndex(context.Background(), passagesOf("a", "b"), mockClient, IndexOptions{Retry: fastRetry()})

	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
}

func TestBuildIndex_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	embedder := newKeywordEmbedder("cats")
	embedder.hook = func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := BuildIndex(ctx, passagesOf("cats"), embedder, IndexOptions{Retry: fastRetry()})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetriever_Retrieve(t *testing.T) {
	embedder := newKeywordEmbedder("cats", "dogs", "fish")
	idx, err := BuildIndex(context.Background(), passagesOf("cats purr", "dogs bark", "fish swim"), embedder, IndexOptions{Retry: fastRetry()})
	require.NoError(t, err)

	r := NewRetriever(embedder, 2, fastRetry())
	results, err := r.Retrieve(context.Background(), idx, "Do dogs bark?")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "dogs bark", results[0].Text)
	assert.Equal(t, 2, r.K())
}

func TestRetriever_BeforeIndexIsNotReady(t *testing.T) {
	embedder := newKeywordEmbedder("cats")
	r := NewRetriever(embedder, 4, fastRetry())

	_, err := r.Retrieve(context.Background(), nil, "anything")

	assert.ErrorIs(t, err, domain.ErrIndexNotReady)
	assert.Equal(t, int32(0), embedder.calls.Load())
}

func TestRetriever_EmptyQuestion(t *testing.T) {
	embedder := newKeywordEmbedder("cats")
	idx, err := NewIndex(passagesOf("cats"), [][]float32{embedder.vector("cats")}, MetricCosine)
	require.NoError(t, err)

	_, err = NewRetriever(embedder, 0, fastRetry()).Retrieve(context.Background(), idx, "   ")

	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}

func TestRetriever_QueryEmbeddingRetried(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockClient.On("GenerateEmbedding", mock.Anything, "question").Return(nil, errors.New("timeout")).Times(2)
	mockClient.On("GenerateEmbedding", mock.Anything, "question").Return([]float32{1, 0}, nil).Once()

	idx, err := NewIndex(passagesOf("x", "y"), [][]float32{{1, 0}, {0, 1}}, MetricCosine)
	require.NoError(t, err)

	results, err := NewRetriever(mockClient, 1, fastRetry()).Retrieve(context.Background(), idx, "question")

	require.NoError(t, err)
	assert.Equal(t, "x", results[0].Text)
	mockClient.AssertNumberOfCalls(t, "GenerateEmbedding", 3)
}

func indexes(results []domain.ScoredPassage) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Index
	}
	return out
}

package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockEmbeddingClient mocks the embedding backend
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockCompleter mocks the language model
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// keywordEmbedder embeds text as word counts over a fixed vocabulary plus a
// constant bias dimension, so similar texts get similar vectors.
type keywordEmbedder struct {
	vocab []string
	calls atomic.Int32
	// hook runs before every batch call; a non-nil error fails the call.
	hook func(ctx context.Context) error
}

func newKeywordEmbedder(vocab ...string) *keywordEmbedder {
	return &keywordEmbedder{vocab: vocab}
}

func (e *keywordEmbedder) vector(text string) []float32 {
	v := make([]float32, len(e.vocab)+1)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		for i, term := range e.vocab {
			if w == term {
				v[i]++
			}
		}
	}
	v[len(e.vocab)] = 1
	return v
}

func (e *keywordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	out, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *keywordEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.hook != nil {
		if err := e.hook(ctx); err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

// funcCompleter answers prompts with fn and remembers them.
type funcCompleter struct {
	fn func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (c *funcCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return c.fn(ctx, prompt)
}

func (c *funcCompleter) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

func staticCompleter(answer string) *funcCompleter {
	return &funcCompleter{fn: func(context.Context, string) (string, error) {
		return answer, nil
	}}
}

// stubDetector reports languages by exact text match.
type stubDetector map[string]Language

func (d stubDetector) Detect(text string) (Language, bool) {
	lang, ok := d[strings.TrimSpace(text)]
	return lang, ok
}

// staticAcquirer returns the same transcript for every locator.
type staticAcquirer struct {
	transcript *domain.Transcript
	err        error
}

func (a staticAcquirer) Acquire(_ context.Context, locator string) (*domain.Transcript, error) {
	if a.err != nil {
		return nil, a.err
	}
	t := *a.transcript
	t.Metadata.Locator = locator
	return &t, nil
}

func fastRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
		Timeout:         time.Second,
	}
}

func passagesOf(texts ...string) []domain.Passage {
	passages := make([]domain.Passage, len(texts))
	offset := 0
	for i, t := range texts {
		n := len([]rune(t))
		passages[i] = domain.Passage{Index: i, Start: offset, End: offset + n, Text: t}
		offset += n
	}
	return passages
}

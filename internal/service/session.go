package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/cloo-solutions/videochat/internal/telemetry"
)

// Acquirer resolves a video locator into its transcript.
type Acquirer interface {
	Acquire(ctx context.Context, locator string) (*domain.Transcript, error)
}

// PipelineConfig holds the tunables of the ingestion and question pipeline.
type PipelineConfig struct {
	Chunk      ChunkConfig
	Index      IndexOptions
	RetrievalK int
}

// DefaultPipelineConfig returns the default pipeline settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Chunk:      DefaultChunkConfig(),
		Index:      DefaultIndexOptions(),
		RetrievalK: DefaultRetrievalK,
	}
}

// SessionDeps are the collaborators shared by sessions.
type SessionDeps struct {
	Acquirer    Acquirer
	Embedder    EmbeddingClient
	Synthesizer AnswerSynthesizer
	Config      PipelineConfig
	// Now defaults to time.Now.
	Now func() time.Time
}

// readyState is everything a question needs. It is replaced as a whole and
// never modified after it is published.
type readyState struct {
	transcript *domain.Transcript
	index      *Index
	ingestedAt time.Time
}

// SessionStatus is a point-in-time view of a session.
type SessionStatus struct {
	ID         string
	State      domain.SessionState
	Ready      bool
	Metadata   *domain.Metadata
	Passages   int
	IngestedAt time.Time
	LastError  string
	HistoryLen int
	LastUsed   time.Time
}

// Session owns the lifecycle of one video: ingestion builds a new index and
// swaps it in atomically, questions are answered from whichever index was
// current when they started.
type Session struct {
	id          string
	acquirer    Acquirer
	embedder    EmbeddingClient
	synthesizer AnswerSynthesizer
	retriever   *Retriever
	cfg         PipelineConfig
	now         func() time.Time

	ready atomic.Pointer[readyState]

	mu           sync.Mutex
	state        domain.SessionState
	generation   uint64
	cancelIngest context.CancelFunc
	lastErr      error
	history      []domain.Turn
	lastUsed     time.Time
}

// NewSession creates an empty session.
func NewSession(id string, deps SessionDeps) *Session {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	cfg := deps.Config
	return &Session{
		id:          id,
		acquirer:    deps.Acquirer,
		embedder:    deps.Embedder,
		synthesizer: deps.Synthesizer,
		retriever:   NewRetriever(deps.Embedder, cfg.RetrievalK, cfg.Index.Retry),
		cfg:         cfg,
		now:         now,
		state:       domain.SessionStateEmpty,
		lastUsed:    now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastUsed returns when the session was last created, ingested into or asked.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Metadata returns the metadata of the current transcript.
func (s *Session) Metadata() (domain.Metadata, bool) {
	rs := s.ready.Load()
	if rs == nil {
		return domain.Metadata{}, false
	}
	return rs.transcript.Metadata, true
}

// Ingest acquires the transcript behind locator and rebuilds the session
// from it. A new ingestion cancels one already in flight, which then fails
// with INGEST_ABORTED. On failure a previously ready session stays ready
// with its old index; otherwise it returns to empty.
func (s *Session) Ingest(ctx context.Context, locator string) error {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return domain.ErrEmptyLocator
	}
	if s.acquirer == nil {
		return domain.NewDomainError(domain.ErrCodeInternalError, "no transcript source configured")
	}

	ctx, span := telemetry.StartSpan(ctx, "session.ingest", telemetry.SpanAttributes{
		SessionID: s.id,
		Locator:   locator,
		Operation: "session.ingest",
	})
	err := s.ingest(ctx, func(ctx context.Context) (*domain.Transcript, error) {
		t, err := s.acquirer.Acquire(ctx, locator)
		if err != nil {
			return nil, asAcquisitionError(ctx, err)
		}
		if t.Metadata.Locator == "" {
			t.Metadata.Locator = locator
		}
		return t, nil
	})
	span.Finish(err)
	return err
}

// IngestTranscript rebuilds the session from an already acquired transcript.
func (s *Session) IngestTranscript(ctx context.Context, t *domain.Transcript) error {
	ctx, span := telemetry.StartSpan(ctx, "session.ingest", telemetry.SpanAttributes{
		SessionID: s.id,
		Operation: "session.ingest",
	})
	err := s.ingest(ctx, func(context.Context) (*domain.Transcript, error) {
		return t, nil
	})
	span.Finish(err)
	return err
}

func (s *Session) ingest(ctx context.Context, acquire func(context.Context) (*domain.Transcript, error)) error {
	ctx, gen := s.beginIngest(ctx)

	rs, err := s.build(ctx, acquire)
	return s.finishIngest(gen, rs, err)
}

func (s *Session) build(ctx context.Context, acquire func(context.Context) (*domain.Transcript, error)) (*readyState, error) {
	t, err := acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateTranscript(t); err != nil {
		return nil, err
	}

	passages, err := Segment(t.Text, s.cfg.Chunk)
	if err != nil {
		return nil, err
	}
	log.Printf("session %s: segmented %s into %d passages", s.id, t, len(passages))
	telemetry.AddBreadcrumb(ctx, "session", fmt.Sprintf("segmented %d chars into %d passages", utf8.RuneCountInString(t.Text), len(passages)))

	index, err := BuildIndex(ctx, passages, s.embedder, s.cfg.Index)
	if err != nil {
		return nil, err
	}

	return &readyState{
		transcript: t,
		index:      index,
		ingestedAt: s.now(),
	}, nil
}

func (s *Session) beginIngest(ctx context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelIngest != nil {
		s.cancelIngest()
	}
	s.generation++
	s.cancelIngest = cancel
	s.lastUsed = s.now()
	s.transition(domain.SessionStateIngesting)
	return ctx, s.generation
}

// finishIngest commits rs when gen is still the latest ingestion.
func (s *Session) finishIngest(gen uint64, rs *readyState, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIngestAborted, "ingestion was superseded or reset", err)
	}
	if s.cancelIngest != nil {
		s.cancelIngest()
		s.cancelIngest = nil
	}
	s.lastUsed = s.now()

	if err != nil {
		s.lastErr = err
		s.transition(domain.SessionStateFailed)
		if s.ready.Load() != nil {
			s.transition(domain.SessionStateReady)
		} else {
			s.transition(domain.SessionStateEmpty)
		}
		log.Printf("session %s: ingestion failed: %v", s.id, err)
		return err
	}

	s.ready.Store(rs)
	s.history = nil
	s.lastErr = nil
	s.transition(domain.SessionStateReady)
	return nil
}

// Reset cancels any ingestion in flight and discards the index, transcript
// and history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelIngest != nil {
		s.cancelIngest()
		s.cancelIngest = nil
	}
	s.generation++
	s.ready.Store(nil)
	s.history = nil
	s.lastErr = nil
	s.lastUsed = s.now()
	s.transition(domain.SessionStateEmpty)
}

// Ask answers question from the current index. It fails with NOT_READY until
// an ingestion has succeeded. While a re-ingestion runs, questions are
// answered from the previous index.
func (s *Session) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	rs := s.ready.Load()
	if rs == nil {
		return nil, domain.ErrNotReady
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	s.touch()

	ctx, span := telemetry.StartSpan(ctx, "session.ask", telemetry.SpanAttributes{
		SessionID: s.id,
		Locator:   rs.transcript.Metadata.Locator,
		Operation: "session.ask",
		Passages:  rs.index.Len(),
	})
	span.SetData("top_k", s.retriever.K())
	span.SetData("metric", string(rs.index.Metric()))

	answer, err := s.answer(ctx, rs, question)
	span.Finish(err)
	if err != nil {
		return nil, err
	}

	s.record(rs, question, answer)
	return answer, nil
}

func (s *Session) answer(ctx context.Context, rs *readyState, question string) (*domain.Answer, error) {
	passages, err := s.retriever.Retrieve(ctx, rs.index, question)
	if err != nil {
		return nil, err
	}
	return s.synthesizer.Synthesize(ctx, question, passages)
}

// record appends the exchange to the history unless the index it was
// answered from has been replaced since.
func (s *Session) record(rs *readyState, question string, answer *domain.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.Load() != rs {
		return
	}
	at := s.now()
	s.history = append(s.history,
		domain.Turn{Role: domain.TurnRoleUser, Content: question, At: at},
		domain.Turn{Role: domain.TurnRoleAssistant, Content: Emphasize(answer.Text), At: at},
	)
}

// History returns a copy of the display log.
func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Turn(nil), s.history...)
}

// Status returns a snapshot of the session.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionStatus{
		ID:         s.id,
		State:      s.state,
		HistoryLen: len(s.history),
		LastUsed:   s.lastUsed,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if rs := s.ready.Load(); rs != nil {
		md := rs.transcript.Metadata
		st.Ready = true
		st.Metadata = &md
		st.Passages = rs.index.Len()
		st.IngestedAt = rs.ingestedAt
	}
	return st
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = s.now()
	s.mu.Unlock()
}

// transition must be called with s.mu held.
func (s *Session) transition(to domain.SessionState) {
	from := s.state
	if from == to {
		return
	}
	if !domain.CanTransition(from, to) {
		log.Printf("session %s: unexpected transition %s -> %s", s.id, from, to)
	}
	s.state = to
	log.Printf("session %s: %s -> %s", s.id, from, to)
}

// asAcquisitionError keeps domain errors and cancellation as they are and
// reports anything else as ACQUISITION_ERROR.
func asAcquisitionError(ctx context.Context, err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, fmt.Sprintf("could not fetch transcript: %v", err), err)
}

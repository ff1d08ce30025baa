package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/videochat/internal/api"
	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/cloo-solutions/videochat/internal/service"
	"github.com/go-chi/chi/v5"
)

type SessionManager interface {
	Create() *service.Session
	Get(id string) (*service.Session, error)
	Delete(id string) error
}

type SessionHandler struct {
	sessions SessionManager
}

func NewSessionHandler(sessions SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type IngestRequest struct {
	Locator string `json:"locator"`
	URL     string `json:"url"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type SessionResponse struct {
	ID              string   `json:"id"`
	State           string   `json:"state"`
	Ready           bool     `json:"ready"`
	Locator         string   `json:"locator,omitempty"`
	VideoID         string   `json:"video_id,omitempty"`
	Title           string   `json:"title,omitempty"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
	Language        string   `json:"language,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Passages        int      `json:"passages"`
	IngestedAt      *string  `json:"ingested_at,omitempty"`
	LastError       string   `json:"last_error,omitempty"`
	HistoryLen      int      `json:"history_len"`
}

type PassageResponse struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

type AskResponse struct {
	Answer   string            `json:"answer"`
	Language string            `json:"language,omitempty"`
	Passages []PassageResponse `json:"passages"`
}

type TurnResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	At      string `json:"at"`
}

type HistoryResponse struct {
	Turns []TurnResponse `json:"turns"`
}

func statusToResponse(st service.SessionStatus) *SessionResponse {
	resp := &SessionResponse{
		ID:         st.ID,
		State:      string(st.State),
		Ready:      st.Ready,
		Passages:   st.Passages,
		LastError:  st.LastError,
		HistoryLen: st.HistoryLen,
	}
	if md := st.Metadata; md != nil {
		resp.Locator = md.Locator
		resp.VideoID = md.VideoID
		resp.Title = md.Title
		resp.Thumbnail = md.Thumbnail
		resp.Language = md.Language
		if md.Duration > 0 {
			seconds := md.Duration.Seconds()
			resp.DurationSeconds = &seconds
		}
	}
	if !st.IngestedAt.IsZero() {
		at := st.IngestedAt.UTC().Format(time.RFC3339)
		resp.IngestedAt = &at
	}
	return resp
}

func answerToResponse(a *domain.Answer) *AskResponse {
	passages := make([]PassageResponse, 0, len(a.Context))
	for _, p := range a.Context {
		passages = append(passages, PassageResponse{Index: p.Index, Text: p.Text, Score: p.Score})
	}
	return &AskResponse{
		Answer:   a.Text,
		Language: a.Language,
		Passages: passages,
	}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	api.Success(w, http.StatusCreated, statusToResponse(s.Status()))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	api.Success(w, http.StatusOK, statusToResponse(s.Status()))
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ingest blocks until the transcript is indexed or ingestion fails.
func (h *SessionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req IngestRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}
	locator := strings.TrimSpace(req.Locator)
	if locator == "" {
		locator = strings.TrimSpace(req.URL)
	}
	if locator == "" {
		api.Error(w, http.StatusBadRequest, "locator is required")
		return
	}

	if err := s.Ingest(r.Context(), locator); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, statusToResponse(s.Status()))
}

func (h *SessionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AskRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := s.Ask(r.Context(), req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answerToResponse(answer))
}

func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Reset()
	api.Success(w, http.StatusOK, statusToResponse(s.Status()))
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	history := s.History()
	turns := make([]TurnResponse, 0, len(history))
	for _, t := range history {
		turns = append(turns, TurnResponse{
			Role:    string(t.Role),
			Content: t.Content,
			At:      t.At.UTC().Format(time.RFC3339),
		})
	}
	api.Success(w, http.StatusOK, HistoryResponse{Turns: turns})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return nil, false
	}

	s, err := h.sessions.Get(id)
	if err != nil {
		api.HandleError(w, err)
		return nil, false
	}
	return s, true
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusCreated, map[string]string{"id": "123"})

	assert.Equal(t, http.StatusCreated, w.Code)

	var result SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "123", data["id"])
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "invalid input")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid input"}`, w.Body.String())
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid input", domain.ErrEmptyTranscript, http.StatusBadRequest},
		{"not found", domain.ErrSessionNotFound, http.StatusNotFound},
		{"not ready", domain.ErrNotReady, http.StatusConflict},
		{"aborted", domain.ErrIngestAborted, http.StatusConflict},
		{"acquisition", domain.ErrAcquisition, http.StatusUnprocessableEntity},
		{"empty corpus", domain.ErrEmptyCorpus, http.StatusUnprocessableEntity},
		{"embedding", domain.ErrEmbeddingService, http.StatusBadGateway},
		{"model", domain.ErrModelService, http.StatusBadGateway},
		{"rejected", domain.ErrServiceRejected, http.StatusBadGateway},
		{"timeout", domain.ErrServiceTimeout, http.StatusGatewayTimeout},
		{"timeout inside service error", domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingService, "failed after 3 attempts", domain.ErrServiceTimeout), http.StatusGatewayTimeout},
		{"wrapped", fmt.Errorf("ask: %w", domain.ErrNotReady), http.StatusConflict},
		{"cancelled", context.Canceled, StatusClientClosedRequest},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.ErrNotReady)

	assert.Equal(t, http.StatusConflict, w.Code)
	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "NOT_READY", result.Code)
	assert.Contains(t, result.Error, "ingest a video first")
	assert.Equal(t, "NOT_READY", w.Header().Get(ErrorCodeHeader))
	assert.Empty(t, w.Header().Get("Retry-After"))
}

func TestHandleError_RetryAfter(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"embedding failure", domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingService, "failed after 3 attempts", errors.New("502")), "5"},
		{"timeout", domain.ErrServiceTimeout, "5"},
		{"rejected", domain.NewDomainErrorWithCause(domain.ErrCodeModelService, "request rejected", domain.ErrServiceRejected), ""},
		{"invalid input", domain.ErrEmptyQuestion, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err)
			assert.Equal(t, tt.want, w.Header().Get("Retry-After"))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		limit      int64
		wantOK     bool
		wantStatus int
	}{
		{"valid", `{"question":"why?"}`, 0, true, http.StatusOK},
		{"empty", ``, 0, false, http.StatusBadRequest},
		{"malformed", `{"question":`, 0, false, http.StatusBadRequest},
		{"too large", `{"question":"a very long question"}`, 8, false, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, tt.limit)
			}

			var dst struct {
				Question string `json:"question"`
			}
			ok := DecodeJSON(w, r, &dst)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStatus, w.Code)
			if ok {
				assert.Equal(t, "why?", dst.Question)
			}
		})
	}
}

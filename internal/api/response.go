package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cloo-solutions/videochat/internal/domain"
)

// StatusClientClosedRequest is used when the caller went away mid-request.
const StatusClientClosedRequest = 499

// ErrorCodeHeader carries the domain error code of a failed request, so
// middleware can log and tag it without reading the body.
const ErrorCodeHeader = "X-Error-Code"

// retryAfterSeconds is advertised on transient upstream failures.
const retryAfterSeconds = "5"

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes. A timeout
// anywhere in the chain wins over the service error wrapping it.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, domain.ErrServiceTimeout) {
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return StatusClientClosedRequest
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeNotReady, domain.ErrCodeIngestAborted:
		return http.StatusConflict
	case domain.ErrCodeAcquisition, domain.ErrCodeEmptyCorpus:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeEmbeddingService, domain.ErrCodeModelService, domain.ErrCodeServiceRejected:
		return http.StatusBadGateway
	case domain.ErrCodeServiceTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	code := domain.Code(err)
	w.Header().Set(ErrorCodeHeader, code)
	if domain.IsRetryable(err) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	JSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

// DecodeJSON decodes the request body into dst. On failure it writes a 400
// (or 413 for an oversized body) and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, io.EOF):
		Error(w, http.StatusBadRequest, "request body is required")
	default:
		Error(w, http.StatusBadRequest, "invalid request body")
	}
	return false
}

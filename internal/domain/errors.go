package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code, so wrapped
// errors still match the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Domain error codes
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeAcquisition      = "ACQUISITION_ERROR"
	ErrCodeEmbeddingService = "EMBEDDING_SERVICE_ERROR"
	ErrCodeModelService     = "MODEL_SERVICE_ERROR"
	ErrCodeServiceTimeout   = "SERVICE_TIMEOUT"
	ErrCodeServiceRejected  = "SERVICE_REJECTED"
	ErrCodeEmptyCorpus      = "EMPTY_CORPUS"
	ErrCodeNotReady         = "NOT_READY"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeIngestAborted    = "INGEST_ABORTED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Input errors
var (
	ErrInvalidInput    = NewDomainError(ErrCodeInvalidInput, "invalid input")
	ErrEmptyTranscript = NewDomainError(ErrCodeInvalidInput, "transcript is empty")
	ErrEmptyQuestion   = NewDomainError(ErrCodeInvalidInput, "question is empty")
	ErrEmptyLocator    = NewDomainError(ErrCodeInvalidInput, "source locator is empty")
)

// Pipeline errors
var (
	ErrAcquisition      = NewDomainError(ErrCodeAcquisition, "transcript acquisition failed")
	ErrEmbeddingService = NewDomainError(ErrCodeEmbeddingService, "embedding service failed")
	ErrModelService     = NewDomainError(ErrCodeModelService, "language model service failed")
	ErrServiceTimeout   = NewDomainError(ErrCodeServiceTimeout, "service call timed out")
	ErrServiceRejected  = NewDomainError(ErrCodeServiceRejected, "request rejected by service")
	ErrEmptyCorpus      = NewDomainError(ErrCodeEmptyCorpus, "cannot build an index from zero passages")
)

// Lifecycle errors
var (
	ErrIndexNotReady   = NewDomainError(ErrCodeNotReady, "index has not been built")
	ErrNotReady        = NewDomainError(ErrCodeNotReady, "session is not ready, ingest a video first")
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "session not found")
	ErrIngestAborted   = NewDomainError(ErrCodeIngestAborted, "ingestion was superseded or reset")
)

// IsRetryable reports whether err is a transient service failure worth retrying
// at the caller's level.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrServiceRejected) {
		return false
	}
	return errors.Is(err, ErrServiceTimeout) ||
		errors.Is(err, ErrEmbeddingService) ||
		errors.Is(err, ErrModelService)
}

// Code returns the code of the outermost DomainError in err's chain, or
// ErrCodeInternalError when there is none.
func Code(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}

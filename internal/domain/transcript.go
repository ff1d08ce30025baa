package domain

import (
	"fmt"
	"strings"
	"time"
)

// Metadata describes the video a transcript was acquired from.
type Metadata struct {
	Locator   string
	VideoID   string
	Title     string
	Thumbnail string
	Language  string
	Duration  time.Duration
	Extra     map[string]string
}

// Transcript is the raw spoken text of one video plus its metadata.
// It is never modified after acquisition.
type Transcript struct {
	Text     string
	Metadata Metadata
}

// NewTranscript creates a new Transcript instance
func NewTranscript(text string, metadata Metadata) *Transcript {
	return &Transcript{
		Text:     text,
		Metadata: metadata,
	}
}

// ValidateTranscript validates a Transcript instance. Whitespace-only text is
// rejected the same way as empty text.
func ValidateTranscript(t *Transcript) error {
	if t == nil {
		return NewDomainErrorWithCause(ErrCodeInvalidInput, "transcript cannot be nil", nil)
	}
	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyTranscript
	}
	return nil
}

// Runes returns the transcript length in characters.
func (t *Transcript) Runes() int {
	return len([]rune(t.Text))
}

// String returns a short description for logs.
func (t *Transcript) String() string {
	title := t.Metadata.Title
	if title == "" {
		title = t.Metadata.Locator
	}
	return fmt.Sprintf("%q (%d chars)", title, t.Runes())
}

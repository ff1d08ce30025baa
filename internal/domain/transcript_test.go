package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTranscript(t *testing.T) {
	tests := []struct {
		name    string
		tr      *Transcript
		wantErr error
	}{
		{"nil", nil, ErrInvalidInput},
		{"empty", NewTranscript("", Metadata{}), ErrEmptyTranscript},
		{"whitespace only", NewTranscript(" \n\t ", Metadata{}), ErrEmptyTranscript},
		{"valid", NewTranscript("hello", Metadata{Title: "t"}), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTranscript(tt.tr)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTranscript_RunesCountsCharacters(t *testing.T) {
	tr := NewTranscript("مرحبا", Metadata{})
	assert.Equal(t, 5, tr.Runes())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(SessionStateEmpty, SessionStateIngesting))
	assert.True(t, CanTransition(SessionStateIngesting, SessionStateReady))
	assert.True(t, CanTransition(SessionStateIngesting, SessionStateFailed))
	assert.True(t, CanTransition(SessionStateFailed, SessionStateEmpty))
	assert.True(t, CanTransition(SessionStateReady, SessionStateIngesting))
	assert.False(t, CanTransition(SessionStateEmpty, SessionStateReady))
	assert.False(t, CanTransition(SessionStateReady, SessionStateFailed))
	assert.False(t, CanTransition("bogus", SessionStateEmpty))
}

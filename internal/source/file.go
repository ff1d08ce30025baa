package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/videochat/internal/domain"
)

// DefaultMaxTranscriptBytes caps the size of file and object transcripts.
const DefaultMaxTranscriptBytes = 16 << 20

// FileAcquirer reads plain-text transcripts from the local filesystem.
type FileAcquirer struct {
	MaxBytes int64
}

// NewFileAcquirer creates a FileAcquirer with the default size limit.
func NewFileAcquirer() *FileAcquirer {
	return &FileAcquirer{MaxBytes: DefaultMaxTranscriptBytes}
}

// Acquire implements Acquirer for file:// URLs and bare paths.
func (a *FileAcquirer) Acquire(_ context.Context, locator string) (*domain.Transcript, error) {
	path, err := filePath(locator)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, fmt.Sprintf("transcript file %s not found", path), err)
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, "cannot read transcript file", err)
	}
	if info.IsDir() {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, fmt.Sprintf("%s is a directory", path))
	}
	maxBytes := a.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxTranscriptBytes
	}
	if info.Size() > maxBytes {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, fmt.Sprintf("transcript file exceeds %d bytes", maxBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, "cannot read transcript file", err)
	}

	return transcriptFromBytes(data, domain.Metadata{
		Locator: locator,
		Title:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	})
}

func filePath(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if !strings.HasPrefix(locator, "file://") {
		return locator, nil
	}
	u, err := url.Parse(locator)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInvalidInput, "malformed file URL", err)
	}
	if u.Path == "" {
		return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "file URL has no path")
	}
	return u.Path, nil
}

// transcriptFromBytes rejects non-UTF-8 content; empty text is left to the
// session to reject.
func transcriptFromBytes(data []byte, md domain.Metadata) (*domain.Transcript, error) {
	if !utf8.Valid(data) {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "transcript is not valid UTF-8 text")
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	return domain.NewTranscript(text, md), nil
}

// Package source resolves video locators into transcripts.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cloo-solutions/videochat/internal/domain"
)

// Acquirer resolves a locator into a transcript.
type Acquirer interface {
	Acquire(ctx context.Context, locator string) (*domain.Transcript, error)
}

// Router dispatches a locator to the acquirer for its kind: YouTube URLs,
// s3:// objects, or local files (file:// or a bare path).
type Router struct {
	YouTube Acquirer
	S3      Acquirer
	File    Acquirer
}

// Acquire implements Acquirer.
func (r *Router) Acquire(ctx context.Context, locator string) (*domain.Transcript, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, domain.ErrEmptyLocator
	}

	kind, err := Classify(locator)
	if err != nil {
		return nil, err
	}

	var a Acquirer
	switch kind {
	case KindYouTube:
		a = r.YouTube
	case KindS3:
		a = r.S3
	case KindFile:
		a = r.File
	}
	if a == nil {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, fmt.Sprintf("%s sources are not enabled", kind))
	}
	return a.Acquire(ctx, locator)
}

// Kind is the type of source a locator points at.
type Kind string

const (
	KindYouTube Kind = "youtube"
	KindS3      Kind = "s3"
	KindFile    Kind = "file"
)

// Classify returns the kind of source locator points at.
func Classify(locator string) (Kind, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInvalidInput, "malformed locator", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if isYouTubeHost(u.Hostname()) {
			return KindYouTube, nil
		}
		return "", domain.NewDomainError(domain.ErrCodeInvalidInput, fmt.Sprintf("unsupported video host %q", u.Hostname()))
	case "s3":
		return KindS3, nil
	case "file", "":
		return KindFile, nil
	}
	return "", domain.NewDomainError(domain.ErrCodeInvalidInput, fmt.Sprintf("unsupported locator scheme %q", u.Scheme))
}

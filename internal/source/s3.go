package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/cloo-solutions/videochat/internal/storage"
)

// ObjectGetter reads objects from S3-compatible storage.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) (*storage.Object, error)
}

// S3Acquirer reads plain-text transcripts from s3://bucket/key objects. The
// object's "title" and "thumbnail" user metadata fill the transcript metadata.
type S3Acquirer struct {
	store ObjectGetter
}

// NewS3Acquirer creates a new S3Acquirer instance
func NewS3Acquirer(store ObjectGetter) *S3Acquirer {
	return &S3Acquirer{store: store}
}

// Acquire implements Acquirer.
func (a *S3Acquirer) Acquire(ctx context.Context, locator string) (*domain.Transcript, error) {
	bucket, key, err := ParseS3Locator(locator)
	if err != nil {
		return nil, err
	}

	obj, err := a.store.GetObject(ctx, bucket, key)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, storage.ErrObjectTooLarge):
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInvalidInput, "transcript object is too large", err)
		case errors.Is(err, storage.ErrObjectNotFound):
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, fmt.Sprintf("transcript %s not found", locator), err)
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, "cannot read transcript object", err)
	}

	title := obj.Metadata["title"]
	if title == "" {
		base := path.Base(key)
		title = strings.TrimSuffix(base, path.Ext(base))
	}

	return transcriptFromBytes(obj.Body, domain.Metadata{
		Locator:   locator,
		Title:     title,
		Thumbnail: obj.Metadata["thumbnail"],
		Language:  obj.Metadata["language"],
	})
}

// ParseS3Locator splits s3://bucket/key into its bucket and key.
func ParseS3Locator(locator string) (bucket, key string, err error) {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return "", "", domain.NewDomainErrorWithCause(domain.ErrCodeInvalidInput, "malformed s3 locator", err)
	}
	if u.Scheme != "s3" {
		return "", "", domain.NewDomainError(domain.ErrCodeInvalidInput, fmt.Sprintf("%q is not an s3:// locator", locator))
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", domain.NewDomainError(domain.ErrCodeInvalidInput, "s3 locator needs a bucket and a key")
	}
	return bucket, key, nil
}

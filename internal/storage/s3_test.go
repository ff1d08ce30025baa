package storage

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
)

func TestWrapNotFound(t *testing.T) {
	err := wrapNotFound("s3://b/k", &types.NoSuchKey{})
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Contains(t, err.Error(), "s3://b/k")

	err = wrapNotFound("s3://b/k", &types.NotFound{})
	assert.ErrorIs(t, err, ErrObjectNotFound)

	cause := errors.New("access denied")
	err = wrapNotFound("s3://b/k", cause)
	assert.NotErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, err, cause)
}

func TestNormalizeMetadata(t *testing.T) {
	got := normalizeMetadata(map[string]string{"Title": "Animals", "thumbnail": "x"})

	assert.Equal(t, map[string]string{"title": "Animals", "thumbnail": "x"}, got)
	assert.Empty(t, normalizeMetadata(nil))
}

package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/cloo-solutions/videochat/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingAcquirer struct {
	name string
	got  string
}

func (r *recordingAcquirer) Acquire(_ context.Context, locator string) (*domain.Transcript, error) {
	r.got = locator
	return domain.NewTranscript(r.name, domain.Metadata{Locator: locator}), nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		locator string
		want    Kind
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", KindYouTube},
		{"http://youtu.be/dQw4w9WgXcQ", KindYouTube},
		{"s3://transcripts/talk.txt", KindS3},
		{"file:///tmp/talk.txt", KindFile},
		{"/tmp/talk.txt", KindFile},
		{"talk.txt", KindFile},
	}
	for _, tt := range tests {
		kind, err := Classify(tt.locator)
		require.NoError(t, err, tt.locator)
		assert.Equal(t, tt.want, kind, tt.locator)
	}

	_, err := Classify("https://vimeo.com/1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = Classify("ftp://host/file")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRouter_Dispatches(t *testing.T) {
	yt := &recordingAcquirer{name: "youtube"}
	s3 := &recordingAcquirer{name: "s3"}
	file := &recordingAcquirer{name: "file"}
	r := &Router{YouTube: yt, S3: s3, File: file}

	tr, err := r.Acquire(context.Background(), " s3://bucket/key.txt ")
	require.NoError(t, err)
	assert.Equal(t, "s3", tr.Text)
	assert.Equal(t, "s3://bucket/key.txt", s3.got)

	tr, err = r.Acquire(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "youtube", tr.Text)
}

func TestRouter_DisabledSource(t *testing.T) {
	r := &Router{File: &recordingAcquirer{}}

	_, err := r.Acquire(context.Background(), "s3://bucket/key")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "s3 sources are not enabled")

	_, err = r.Acquire(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrEmptyLocator)
}

func TestFileAcquirer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "animals.txt")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffCats are mammals."), 0o600))

	for _, locator := range []string{path, "file://" + path} {
		tr, err := NewFileAcquirer().Acquire(context.Background(), locator)
		require.NoError(t, err)
		assert.Equal(t, "Cats are mammals.", tr.Text)
		assert.Equal(t, "animals", tr.Metadata.Title)
		assert.Equal(t, locator, tr.Metadata.Locator)
	}
}

func TestFileAcquirer_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileAcquirer().Acquire(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, domain.ErrAcquisition)

	_, err = NewFileAcquirer().Acquire(context.Background(), dir)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	binary := filepath.Join(dir, "video.bin")
	require.NoError(t, os.WriteFile(binary, []byte{0xff, 0xfe, 0x00}, 0o600))
	_, err = NewFileAcquirer().Acquire(context.Background(), binary)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	big := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(big, make([]byte, 11), 0o600))
	_, err = (&FileAcquirer{MaxBytes: 10}).Acquire(context.Background(), big)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// MockObjectGetter mocks S3 object reads
type MockObjectGetter struct {
	mock.Mock
}

func (m *MockObjectGetter) GetObject(ctx context.Context, bucket, key string) (*storage.Object, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Object), args.Error(1)
}

func TestS3Acquirer(t *testing.T) {
	store := new(MockObjectGetter)
	store.On("GetObject", mock.Anything, "transcripts", "talks/animals.txt").Return(&storage.Object{
		Body:     []byte("Cats are mammals."),
		Metadata: map[string]string{"title": "Animals", "thumbnail": "https://example.com/a.jpg"},
	}, nil)

	tr, err := NewS3Acquirer(store).Acquire(context.Background(), "s3://transcripts/talks/animals.txt")

	require.NoError(t, err)
	assert.Equal(t, "Cats are mammals.", tr.Text)
	assert.Equal(t, "Animals", tr.Metadata.Title)
	assert.Equal(t, "https://example.com/a.jpg", tr.Metadata.Thumbnail)
	store.AssertExpectations(t)
}

func TestS3Acquirer_TitleFromKey(t *testing.T) {
	store := new(MockObjectGetter)
	store.On("GetObject", mock.Anything, "b", "talk.txt").Return(&storage.Object{Body: []byte("x")}, nil)

	tr, err := NewS3Acquirer(store).Acquire(context.Background(), "s3://b/talk.txt")

	require.NoError(t, err)
	assert.Equal(t, "talk", tr.Metadata.Title)
}

func TestS3Acquirer_Errors(t *testing.T) {
	store := new(MockObjectGetter)
	store.On("GetObject", mock.Anything, "b", "missing.txt").Return(nil, storage.ErrObjectNotFound)
	store.On("GetObject", mock.Anything, "b", "denied.txt").Return(nil, errors.New("access denied"))
	a := NewS3Acquirer(store)

	_, err := a.Acquire(context.Background(), "s3://b/missing.txt")
	assert.ErrorIs(t, err, domain.ErrAcquisition)

	_, err = a.Acquire(context.Background(), "s3://b/denied.txt")
	assert.ErrorIs(t, err, domain.ErrAcquisition)

	_, err = a.Acquire(context.Background(), "s3://bucket-only")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/videochat/internal/api/handlers"
	"github.com/cloo-solutions/videochat/internal/cli/client"
	"github.com/cloo-solutions/videochat/internal/server"
	"github.com/cloo-solutions/videochat/internal/service"
	"github.com/cloo-solutions/videochat/internal/source"
	"github.com/cloo-solutions/videochat/internal/storage"
	"github.com/cloo-solutions/videochat/internal/testutil"
)

const transcriptBucket = "transcripts"

// E2ETestEnv is a running videochat server backed by RustFS, with
// deterministic stand-ins for the embedding and language model services.
type E2ETestEnv struct {
	T        *testing.T
	Ctx      context.Context
	S3Client *storage.S3Client
	Sessions *service.SessionManager
	Server   *httptest.Server
	API      *client.APIClient

	cliPath    string
	configPath string
}

// SetupE2EEnv starts RustFS and the HTTP server. Everything is torn down when
// the test ends.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	t.Helper()
	ctx := context.Background()

	rustfs := testutil.NewRustFSContainer(ctx, t)
	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        rustfs.Endpoint(),
		Region:          rustfs.Region,
		AccessKeyID:     rustfs.AccessKey,
		SecretAccessKey: rustfs.SecretKey,
		UsePathStyle:    true,
	})
	require.NoError(t, err, "failed to create S3 client")
	require.NoError(t, s3Client.EnsureBucket(ctx, transcriptBucket))

	sessions := newSessionManager(s3Client)
	srv := httptest.NewServer(server.NewRouter(server.RouterConfig{
		SessionHandler: handlers.NewSessionHandler(sessions),
		AskTimeout:     30 * time.Second,
		IngestTimeout:  time.Minute,
	}))
	t.Cleanup(srv.Close)

	return &E2ETestEnv{
		T:        t,
		Ctx:      ctx,
		S3Client: s3Client,
		Sessions: sessions,
		Server:   srv,
		API:      client.NewAPIClientWithConfig(srv.URL),
	}
}

// PutTranscript stores text under key with a title and returns its s3://
// locator.
func (e *E2ETestEnv) PutTranscript(key, text, title string) string {
	e.T.Helper()
	err := e.S3Client.PutObject(e.Ctx, transcriptBucket, key, []byte(text), "text/plain; charset=utf-8",
		map[string]string{"title": title})
	require.NoError(e.T, err, "failed to upload transcript")
	return fmt.Sprintf("s3://%s/%s", transcriptBucket, key)
}

// BuildCLI compiles cmd/videochat into a temp dir. CLI state goes to a
// private config file through VIDEOCHAT_CONFIG.
func (e *E2ETestEnv) BuildCLI() {
	e.T.Helper()
	dir := e.T.TempDir()
	e.cliPath = filepath.Join(dir, "videochat")
	e.configPath = filepath.Join(dir, "config", "config.json")

	cmd := exec.Command("go", "build", "-o", e.cliPath, "./cmd/videochat")
	cmd.Dir = filepath.Join("..", "..")
	out, err := cmd.CombinedOutput()
	require.NoError(e.T, err, "failed to build videochat: %s", out)
}

// RunCLI runs the CLI against the test server.
func (e *E2ETestEnv) RunCLI(args ...string) (string, error) {
	return e.RunCLIWithInput("", args...)
}

// RunCLIWithInput runs the CLI with input on stdin.
func (e *E2ETestEnv) RunCLIWithInput(input string, args ...string) (string, error) {
	e.T.Helper()
	require.NotEmpty(e.T, e.cliPath, "BuildCLI must run first")

	ctx, cancel := context.WithTimeout(e.Ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.cliPath, args...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Env = append(os.Environ(),
		"VIDEOCHAT_API_URL="+e.Server.URL,
		"VIDEOCHAT_CONFIG="+e.configPath,
		"VIDEOCHAT_SESSION=",
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func newSessionManager(s3Client *storage.S3Client) *service.SessionManager {
	policy := service.RetryPolicy{MaxAttempts: 2, InitialInterval: 10 * time.Millisecond, Timeout: 5 * time.Second}

	cfg := service.DefaultPipelineConfig()
	cfg.Chunk = service.ChunkConfig{MaxChars: 60, Overlap: 15}
	cfg.RetrievalK = 1
	cfg.Index.Retry = policy

	return service.NewSessionManager(service.NewSessionFactory(service.SessionDeps{
		Acquirer: &source.Router{
			S3:   source.NewS3Acquirer(s3Client),
			File: source.NewFileAcquirer(),
		},
		Embedder:    newKeywordEmbedder("cat", "cats", "dog", "dogs", "fish", "water", "mammals"),
		Synthesizer: service.NewSynthesizer(extractiveCompleter{}, nil, policy),
		Config:      cfg,
	}))
}

// keywordEmbedder embeds text as word counts over a fixed vocabulary plus a
// bias dimension, so retrieval is predictable.
type keywordEmbedder struct {
	vocab map[string]int
}

func newKeywordEmbedder(words ...string) *keywordEmbedder {
	vocab := make(map[string]int, len(words))
	for i, w := range words {
		vocab[w] = i
	}
	return &keywordEmbedder{vocab: vocab}
}

func (e *keywordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	out, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *keywordEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(e.vocab)+1)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
		for _, w := range words {
			if j, ok := e.vocab[w]; ok {
				v[j]++
			}
		}
		v[len(e.vocab)] = 1
		out[i] = v
	}
	return out, nil
}

// extractiveCompleter answers with the excerpts section of the prompt, so
// tests can see which passages reached the model.
type extractiveCompleter struct{}

func (extractiveCompleter) Complete(_ context.Context, prompt string) (string, error) {
	const marker = "Transcript excerpts:"
	_, excerpts, ok := strings.Cut(prompt, marker)
	if !ok {
		return "", fmt.Errorf("prompt has no excerpts section")
	}
	return "- " + strings.Join(strings.Fields(excerpts), " "), nil
}

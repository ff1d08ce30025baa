// Package testutil starts the external services integration and e2e tests
// run against.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	rustFSImage          = "rustfs/rustfs:latest"
	rustFSPort           = "9000/tcp"
	rustFSStartupTimeout = 60 * time.Second

	rustFSAccessKey = "rustfsadmin"
	rustFSSecretKey = "rustfsadmin"
	rustFSRegion    = "us-east-1"
)

// RustFSContainer is an S3-compatible object store holding transcripts for
// s3:// locators. Clients must use path-style addressing.
type RustFSContainer struct {
	Container testcontainers.Container
	AccessKey string
	SecretKey string
	Region    string

	endpoint string
}

// NewRustFSContainer starts RustFS and terminates it when the test finishes.
// The test is skipped when no container runtime is reachable.
func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctr, err := testcontainers.Run(ctx, rustFSImage,
		testcontainers.WithExposedPorts(rustFSPort),
		testcontainers.WithEnv(map[string]string{
			"RUSTFS_ACCESS_KEY": rustFSAccessKey,
			"RUSTFS_SECRET_KEY": rustFSSecretKey,
		}),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort(rustFSPort).WithStartupTimeout(rustFSStartupTimeout),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "failed to start rustfs container")

	endpoint, err := ctr.PortEndpoint(ctx, rustFSPort, "http")
	require.NoError(t, err, "failed to resolve rustfs endpoint")

	return &RustFSContainer{
		Container: ctr,
		AccessKey: rustFSAccessKey,
		SecretKey: rustFSSecretKey,
		Region:    rustFSRegion,
		endpoint:  endpoint,
	}
}

// Endpoint returns the base URL of the S3 API, e.g. http://localhost:32768.
func (rc *RustFSContainer) Endpoint() string {
	return rc.endpoint
}

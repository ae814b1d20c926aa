// Package testutil starts throwaway containers for integration tests.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
)

type Cleanup func() error

const containerExpireSeconds = 120

// ErrDockerUnavailable means no Docker daemon answered; callers skip.
var ErrDockerUnavailable = errors.New("docker is not available")

// NewPool connects to the local Docker daemon.
func NewPool() (*dockertest.Pool, error) {
	if os.Getenv("SKIP_DOCKER_TESTS") != "" {
		return nil, ErrDockerUnavailable
	}
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("%w: could not construct pool: %v", ErrDockerUnavailable, err)
	}
	if err := pool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("%w: could not connect to Docker: %v", ErrDockerUnavailable, err)
	}
	return pool, nil
}

// SkipIfUnavailable skips t when setupErr says Docker is missing and fails
// it on any other setup error.
func SkipIfUnavailable(t *testing.T, setupErr error) {
	t.Helper()
	if setupErr == nil {
		return
	}
	if errors.Is(setupErr, ErrDockerUnavailable) {
		t.Skip(setupErr.Error())
	}
	t.Fatal(setupErr)
}

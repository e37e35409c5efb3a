// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package httpapi_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acctpool/acctpool/internal/account"
	"github.com/acctpool/acctpool/internal/auth"
	"github.com/acctpool/acctpool/internal/httpapi"
)

func newTestServer(t *testing.T) *httpapi.Server {
	t.Helper()

	repo := newMemoryRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	codec, err := auth.NewTokenCodec([]byte("test-secret"), time.Minute)
	require.NoError(t, err)
	gate, err := auth.NewGateWithLogger(repo, prefixHasher{}, codec, logger)
	require.NoError(t, err)
	svc, err := account.NewServiceWithLogger(repo, prefixHasher{}, logger)
	require.NoError(t, err)

	server, err := httpapi.NewServer("127.0.0.1:0", svc, gate, nil, logger)
	require.NoError(t, err)
	return server
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	codec, err := auth.NewTokenCodec([]byte("test-secret"), time.Minute)
	require.NoError(t, err)
	repo := newMemoryRepo()
	gate, err := auth.NewGateWithLogger(repo, prefixHasher{}, codec, logger)
	require.NoError(t, err)
	svc, err := account.NewServiceWithLogger(repo, prefixHasher{}, logger)
	require.NoError(t, err)

	_, err = httpapi.NewServer(":0", nil, gate, nil, logger)
	assert.Error(t, err)

	_, err = httpapi.NewServer(":0", svc, nil, nil, logger)
	assert.Error(t, err)
}

func TestServer_StartAndStop(t *testing.T) {
	server := newTestServer(t)

	errCh, err := server.Start()
	require.NoError(t, err)
	require.NotEmpty(t, server.Addr())

	// The API must be reachable while running.
	resp, err := http.Get("http://" + server.Addr() + "/api/users/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	// Graceful stop closes the error channel without a failure.
	select {
	case err, ok := <-errCh:
		assert.False(t, ok, "unexpected server error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("error channel not closed after Stop")
	}
}

func TestServer_DoubleStartRejected(t *testing.T) {
	server := newTestServer(t)

	_, err := server.Start()
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	}()

	_, err = server.Start()
	assert.Error(t, err)
}

func TestServer_StopWhenNotRunning(t *testing.T) {
	server := newTestServer(t)
	assert.NoError(t, server.Stop(context.Background()))
}

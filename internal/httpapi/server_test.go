// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

package httpapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/shardgate/shardgate/internal/account"
	"github.com/shardgate/shardgate/internal/httpapi"
)

func newLifecycleServer(t *testing.T) *httpapi.Server {
	t.Helper()

	tokens, err := account.NewTokenService(testSigningKey)
	require.NoError(t, err)
	svc, err := account.NewService(newMemRepo(), account.NewBcryptHasher(), tokens, nil)
	require.NoError(t, err)
	handler, err := httpapi.NewHandler(svc, tokens, &fakeCharacterRepo{}, &fakeGuildRepo{}, nil)
	require.NoError(t, err)

	server, err := httpapi.NewServer("127.0.0.1:0", handler, nil)
	require.NoError(t, err)
	return server
}

func TestNewServer_NilHandler(t *testing.T) {
	_, err := httpapi.NewServer("127.0.0.1:0", nil, nil)
	require.Error(t, err)
}

func TestServer_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server := newLifecycleServer(t)

	errCh, err := server.Start()
	require.NoError(t, err)
	require.NotEmpty(t, server.Addr())

	// Routes are served while running.
	resp, err := http.Get("http://" + server.Addr() + "/api/players/top")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	// Error channel closes on graceful shutdown.
	select {
	case err, ok := <-errCh:
		assert.False(t, ok, "expected closed channel, got %v", err)
	case <-time.After(time.Second):
		t.Fatal("error channel did not close after Stop")
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := newLifecycleServer(t)

	_, err := server.Start()
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	}()

	_, err = server.Start()
	require.Error(t, err)
}

func TestServer_StopIsIdempotent(t *testing.T) {
	server := newLifecycleServer(t)

	_, err := server.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, server.Stop(ctx))
	require.NoError(t, server.Stop(ctx))
}

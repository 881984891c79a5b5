package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/config"
	"toolshed/internal/pkg/logger"
)

func TestNewDerivesWriteTimeout(t *testing.T) {
	cfg := &config.Config{Port: "0", Resolver: config.DefaultResolverConfig()}
	s := New(cfg, logger.Discard(), http.NotFoundHandler())

	assert.Equal(t, ":0", s.server.Addr)
	assert.Equal(t, 15*time.Second+40*time.Second+15*time.Second, s.server.WriteTimeout)
}

func TestStartReturnsNilAfterStop(t *testing.T) {
	cfg := &config.Config{Port: "0", Resolver: config.DefaultResolverConfig()}
	s := New(cfg, logger.Discard(), http.NotFoundHandler())

	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()

	// Give ListenAndServe a moment to bind before shutting down
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

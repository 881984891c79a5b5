package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/pkg/logger"
)

func TestHTTPFetcherSuccess(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<title>Hello</title>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, 1<<20, logger.Discard())
	res := f.Fetch(context.Background(), srv.URL)

	require.True(t, res.OK())
	assert.Equal(t, "<title>Hello</title>", res.HTMLContent)
	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestHTTPFetcherFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantReason string
	}{
		{
			name: "Not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			wantReason: "404",
		},
		{
			name: "Forbidden bot wall",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantReason: "403",
		},
		{
			name: "Slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
			wantReason: "timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f := NewHTTPFetcher(100*time.Millisecond, 1<<20, logger.Discard())
			res := f.Fetch(context.Background(), srv.URL)

			assert.False(t, res.OK())
			assert.Empty(t, res.HTMLContent)
			assert.Contains(t, res.Err, tt.wantReason)
		})
	}
}

func TestHTTPFetcherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := NewHTTPFetcher(time.Second, 1<<20, logger.Discard())
	res := f.Fetch(context.Background(), addr)

	assert.False(t, res.OK())
	assert.NotEmpty(t, res.Err)
}

func TestHTTPFetcherInvalidURL(t *testing.T) {
	f := NewHTTPFetcher(time.Second, 1<<20, logger.Discard())
	res := f.Fetch(context.Background(), "://nope")
	assert.False(t, res.OK())
}

func TestHTTPFetcherCapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 4096)))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, 100, logger.Discard())
	res := f.Fetch(context.Background(), srv.URL)

	require.True(t, res.OK())
	assert.Len(t, res.HTMLContent, 100)
}

func TestHTTPFetcherHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewHTTPFetcher(10*time.Second, 1<<20, logger.Discard())
	start := time.Now()
	res := f.Fetch(ctx, srv.URL)

	assert.False(t, res.OK())
	assert.Less(t, time.Since(start), 2*time.Second)
}

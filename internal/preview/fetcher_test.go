package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := NewFetcher(Config{
		Timeout:           2 * time.Second,
		RequestsPerSecond: 100,
	})
	require.NoError(t, err)
	return f
}

func TestFetchParsesTitleAndDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<title>  Keepsake Notes  </title>
			<meta name="description" content="A quiet place for memories">
		</head><body>hello</body></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	meta, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Keepsake Notes", meta.Title)
	assert.Equal(t, "A quiet place for memories", meta.Description)
}

func TestFetchFallsBackToOpenGraphDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<title>Post</title>
			<meta property="og:description" content="Shared from the road">
		</head></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	meta, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Shared from the road", meta.Description)
}

func TestFetchCachesByURL(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`<html><head><title>Once</title></head></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	for i := 0; i < 3; i++ {
		meta, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "Once", meta.Title)
	}
	assert.Equal(t, 1, hits)
}

func TestFetchReportsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f, err := NewFetcher(Config{
		Timeout:           time.Second,
		RequestsPerSecond: 100,
		MaxFailures:       2,
		BreakerTimeout:    time.Minute,
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(ctx, srv.URL)
		require.Error(t, err)
	}

	_, err = f.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestFetchPageWithoutMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>just text</body></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	meta, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, meta.Title)
	assert.Empty(t, meta.Description)
}

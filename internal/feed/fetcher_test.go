package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/popimport/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{Timeout: 5 * time.Second, UserAgent: "popimport-test/0.1", MaxBytes: 1 << 20}
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "popimport-test/0.1", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/xml")
		_, _ = fmt.Fprint(w, "<root/>")
	}))
	defer server.Close()

	doc, err := NewFetcher(testOptions()).Fetch(context.Background(), server.URL+"/data")
	require.NoError(t, err)
	assert.Equal(t, "<root/>", string(doc.Body))
	assert.Equal(t, "application/xml", doc.ContentType)
	assert.False(t, doc.FromCache)
}

func TestFetch_StatusIsFatalWithoutRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewFetcher(testOptions()).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status: 503")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewFetcher(testOptions()).Fetch(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch:")
}

func TestFetch_BodyOverLimitIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	store := cache.NewMemory(time.Minute, time.Minute)
	opts := testOptions()
	opts.MaxBytes = 4
	opts.Cache = store

	_, err := NewFetcher(opts).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))

	// A truncated body must never reach the cache
	_, ok := store.Get(cache.Key(server.URL))
	assert.False(t, ok)
}

func TestFetch_BodyAtLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "0123")
	}))
	defer server.Close()

	opts := testOptions()
	opts.MaxBytes = 4
	doc, err := NewFetcher(opts).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(doc.Body))
}

func TestFetcher_Invalidate(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "<doc/>")
	}))
	defer server.Close()

	opts := testOptions()
	opts.Cache = cache.NewMemory(time.Minute, time.Minute)
	f := NewFetcher(opts)

	_, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.NoError(t, f.Invalidate(server.URL))

	doc, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, doc.FromCache)
	assert.Equal(t, int32(2), hits.Load())

	assert.NoError(t, NewFetcher(testOptions()).Invalidate(server.URL))
}

func TestFetch_ServedFromCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "<cached/>")
	}))
	defer server.Close()

	opts := testOptions()
	opts.Cache = cache.NewMemory(time.Minute, time.Minute)
	f := NewFetcher(opts)

	first, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
}

func TestFetch_RobotsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		_, _ = fmt.Fprint(w, "<ok/>")
	}))
	defer server.Close()

	opts := testOptions()
	opts.RespectRobots = true
	f := NewFetcher(opts)

	_, err := f.Fetch(context.Background(), server.URL+"/private/data")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisallowed))

	doc, err := f.Fetch(context.Background(), server.URL+"/rest_xml/data")
	require.NoError(t, err)
	assert.Equal(t, "<ok/>", string(doc.Body))
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2017.csv")
	require.NoError(t, os.WriteFile(path, []byte("\"Rīga\";632614\n"), 0644))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)
	assert.Equal(t, "\"Rīga\";632614\n", string(doc.Body))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestProductToken(t *testing.T) {
	assert.Equal(t, "popimport", productToken("popimport/0.1 (+https://example.org)"))
	assert.Equal(t, "", productToken(""))
}

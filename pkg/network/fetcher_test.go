// pkg/network/fetcher_test.go
package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	// Transport keep-alive goroutines are pooled; ignore the http
	// idle-connection reaper.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	cfg := NewDefaultClientConfig(zap.NewNop())
	cfg.ForceHTTP2 = false // httptest server speaks HTTP/1.1
	return NewFetcher(cfg, "billhawk-test-agent", zap.NewNop())
}

func TestFetcherReplaysCookiesAndUserAgent(t *testing.T) {
	payload := []byte("%PDF-1.7 fake body bytes")

	var gotCookie, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotUA = r.Header.Get("User-Agent")
		w.Write(payload)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	body, err := f.Get(context.Background(), srv.URL+"/doc.pdf", "SESSID=abc; pref=pl")
	require.NoError(t, err)

	// The body must be verbatim: the fallback path's output has to be
	// byte-identical to the browser download of the same URL.
	assert.Equal(t, payload, body)
	assert.Equal(t, "SESSID=abc; pref=pl", gotCookie)
	assert.Equal(t, "billhawk-test-agent", gotUA)
}

func TestFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	_, err := f.Get(context.Background(), srv.URL, "")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Contains(t, statusErr.Error(), "403")
}

func TestFetcherContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Get(ctx, srv.URL, "")
	assert.Error(t, err)
}

func TestFetcherOmitsEmptyCookieHeader(t *testing.T) {
	var hadCookie bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadCookie = r.Header["Cookie"]
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	_, err := f.Get(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.False(t, hadCookie)
}

package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"NewsWatch/internal/config"
)

func newTestClient(t *testing.T, cfg config.TransportConfig) *Client {
	t.Helper()
	c, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestFetchReturnsBodyAndFinalURL(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("user agent = %q, want browser-like", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>ok</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, config.TransportConfig{TimeoutSeconds: 5})
	res, err := c.Fetch(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(res.Body) != "<html>ok</html>" {
		t.Fatalf("body = %q", res.Body)
	}
	if !strings.HasSuffix(res.FinalURL, "/new") {
		t.Fatalf("final url = %q, want redirect target", res.FinalURL)
	}
	if !strings.Contains(res.ContentType, "text/html") {
		t.Fatalf("content type = %q", res.ContentType)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, config.TransportConfig{TimeoutSeconds: 5, Retries: 3})
	_, err := c.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Status != http.StatusNotFound {
		t.Fatalf("err = %v, want transport error with status 404", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("server hit %d times, want 1", got)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered after retry, content follows"))
	}))
	defer srv.Close()

	c := newTestClient(t, config.TransportConfig{TimeoutSeconds: 5, Retries: 1})
	res, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.HasPrefix(string(res.Body), "recovered") {
		t.Fatalf("body = %q", res.Body)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hit %d times, want 2", got)
	}
}

func TestFetchHonorsBodyCap(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 10_000)))
	}))
	defer srv.Close()

	c := newTestClient(t, config.TransportConfig{TimeoutSeconds: 5, MaxBodyBytes: 1024})
	res, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(res.Body) != 1024 {
		t.Fatalf("body length = %d, want capped at 1024", len(res.Body))
	}
}

func TestFetchStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, config.TransportConfig{TimeoutSeconds: 5, Retries: 5})
	_, err := c.Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestNewClientRejectsBadProxyURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(config.TransportConfig{ProxyURL: "://bad"}, nil); err == nil {
		t.Fatal("expected error for malformed proxy url")
	}
}

func TestUserAgentRotation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, config.TransportConfig{})
	first := c.nextUserAgent()
	second := c.nextUserAgent()
	if first == second {
		t.Fatalf("consecutive user agents identical: %q", first)
	}
}

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/errors"
)

func testConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		Timeout:       2 * time.Second,
		UserAgent:     "fetcher-test",
		RetryAttempts: 2,
		MaxBodyBytes:  1 << 20,
	}
}

func newServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var flaky atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<p>hello %s</p>", r.UserAgent())
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "not html")
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if flaky.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<p>recovered</p>")
	})
	mux.HandleFunc("/hop/", func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(r.URL.Path, "/hop/%d", &n)
		if n == 0 {
			http.Redirect(w, r, "/page", http.StatusFound)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n-1), http.StatusMovedPermanently)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &flaky
}

func TestFetch(t *testing.T) {
	srv, _ := newServer(t)
	f := New(testConfig())

	tests := []struct {
		name      string
		path      string
		redirects int
		want      string
		wantErr   error
	}{
		{"html page", "/page", 0, "<p>hello fetcher-test</p>", nil},
		{"non html", "/plain", 3, "", apperrors.ErrNotHTML},
		{"not found", "/missing", 3, "", apperrors.ErrFetchFailed},
		{"redirects within budget", "/hop/2", 3, "<p>hello fetcher-test</p>", nil},
		{"redirects over budget", "/hop/3", 3, "", apperrors.ErrFetchFailed},
		{"four redirects", "/hop/3", 4, "<p>hello fetcher-test</p>", nil},
		{"no redirects allowed", "/hop/0", 0, "", apperrors.ErrFetchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Fetch(context.Background(), srv.URL+tt.path, tt.redirects)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Fetch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Fetch() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	srv, calls := newServer(t)
	f := New(testConfig())

	got, err := f.Fetch(context.Background(), srv.URL+"/flaky", 0)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got != "<p>recovered</p>" {
		t.Errorf("Fetch() = %q", got)
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d requests, want 2", calls.Load())
	}
}

func TestFetchUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.RetryAttempts = 1
	f := New(cfg)
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/nothing", 3)
	if !errors.Is(err, apperrors.ErrFetchFailed) {
		t.Errorf("Fetch() error = %v, want ErrFetchFailed", err)
	}
}

func TestFetchBodyLimit(t *testing.T) {
	srv, _ := newServer(t)
	cfg := testConfig()
	cfg.MaxBodyBytes = 4
	got, err := New(cfg).Fetch(context.Background(), srv.URL+"/page", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != "<p>h" {
		t.Errorf("Fetch() = %q, want truncated body", got)
	}
}

package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFetcherReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("User-Agent не передан")
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, time.Second, 0)
	body, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Fatalf("неожиданное тело: %q", body)
	}
}

func TestHTTPFetcherNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, time.Second, 0)
	if _, err := f.Fetch(context.Background()); !errors.Is(err, ErrFetch) {
		t.Fatalf("ожидали ErrFetch, получили %v", err)
	}
}

func TestHTTPFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(srv.URL, 50*time.Millisecond, 0)
	if _, err := f.Fetch(context.Background()); !errors.Is(err, ErrFetch) {
		t.Fatalf("ожидали ErrFetch по таймауту, получили %v", err)
	}
}

func TestHTTPFetcherCancelledWhileRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, time.Second, time.Hour)
	if _, err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("первый запрос: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Fetch(ctx); !errors.Is(err, ErrFetch) {
		t.Fatalf("ожидали ErrFetch при ожидании лимитера, получили %v", err)
	}
}

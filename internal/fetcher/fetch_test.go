package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.URL, "tvonline/1.0", 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "#EXTM3U\n" {
		t.Errorf("body = %q", body)
	}
	if gotUA != "tvonline/1.0" {
		t.Errorf("user agent = %q", gotUA)
	}
}

func TestFetchNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL, "", time.Second)
	if !errors.Is(err, ErrUpstream) || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("expected upstream HTTP 404 error, got %v", err)
	}
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Fetch(ctx, srv.URL, "", time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGeneration(t *testing.T) {
	var g Generation
	first := g.Next()
	if !g.IsCurrent(first) {
		t.Fatal("first token should be current")
	}
	second := g.Next()
	if g.IsCurrent(first) {
		t.Error("first token still current after Next")
	}
	if err := g.Check(first); !errors.Is(err, ErrSuperseded) {
		t.Errorf("Check(first) = %v, want ErrSuperseded", err)
	}
	if err := g.Check(second); err != nil {
		t.Errorf("Check(second) = %v", err)
	}
}

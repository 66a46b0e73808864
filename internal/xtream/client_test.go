package xtream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voyagen/tvonline/internal/fetcher"
)

func newPanel(t *testing.T, auth int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/player_api.php" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("username") != "user" || q.Get("password") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch q.Get("action") {
		case "":
			if auth == 1 {
				w.Write([]byte(`{"user_info":{"username":"user","auth":1,"status":"Active"},"server_info":{"url":"panel","port":"80"}}`))
			} else {
				w.Write([]byte(`{"user_info":{"auth":0}}`))
			}
		case "get_live_streams":
			w.Write([]byte(`[{"num":1,"name":"One","stream_id":11,"category_id":"5"},{"num":2,"name":"Two","stream_id":"12","category_id":"6"}]`))
		case "get_live_categories":
			w.Write([]byte(`[{"category_id":"6","category_name":"Zeta"},{"category_id":"5","category_name":"Alpha"}]`))
		case "get_short_epg":
			w.Write([]byte(`{"epg_listings":[{"title":"Show","stream_id":"` + q.Get("stream_id") + `"}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func TestClientAuthenticateAndStreams(t *testing.T) {
	srv := newPanel(t, 1)
	defer srv.Close()

	c := NewClient(srv.URL+"/", "user", "secret", "test-agent", 5*time.Second)
	ctx := context.Background()

	info, _, err := c.Authenticate(ctx)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if info.Username != "user" {
		t.Errorf("username = %q", info.Username)
	}

	streams, err := c.LiveStreams(ctx)
	if err != nil {
		t.Fatalf("LiveStreams: %v", err)
	}
	channels := NormalizeStreams(streams, c.Account())
	if len(channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(channels))
	}
	if channels[0].Group != "Alpha" || channels[1].Group != "Zeta" {
		t.Errorf("categories not resolved: %+v", channels)
	}
	if channels[1].URL != srv.URL+"/live/user/secret/12.m3u8" {
		t.Errorf("url = %s", channels[1].URL)
	}

	cats, err := c.LiveCategories(ctx)
	if err != nil {
		t.Fatalf("LiveCategories: %v", err)
	}
	if names := CategoryNames(cats); names[0] != "Zeta" || names[1] != "Alpha" {
		t.Errorf("category order changed: %v", names)
	}

	epg, err := c.ShortEPG(ctx, 11, 5)
	if err != nil {
		t.Fatalf("ShortEPG: %v", err)
	}
	if !strings.Contains(string(epg), `"stream_id":"11"`) {
		t.Errorf("unexpected epg payload: %s", epg)
	}
}

func TestClientAuthenticateRejected(t *testing.T) {
	srv := newPanel(t, 0)
	defer srv.Close()

	c := NewClient(srv.URL, "user", "secret", "", time.Second)
	if _, _, err := c.Authenticate(context.Background()); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestClientErrorsHidePassword(t *testing.T) {
	srv := newPanel(t, 1)
	defer srv.Close()

	c := NewClient(srv.URL, "user", "wrong-password", "", time.Second)
	_, err := c.LiveStreams(context.Background())
	if err == nil {
		t.Fatal("expected error for rejected credentials")
	}
	if strings.Contains(err.Error(), "wrong-password") {
		t.Errorf("error leaks password: %v", err)
	}
}

func TestClientBodyLimit(t *testing.T) {
	srv := newPanel(t, 1)
	defer srv.Close()

	c := NewClient(srv.URL, "user", "secret", "", time.Second)
	c.maxBody = 64
	_, err := c.LiveStreams(context.Background())
	if !errors.Is(err, fetcher.ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}

	c.maxBody = 1 << 10
	if _, err := c.LiveStreams(context.Background()); err != nil {
		t.Errorf("LiveStreams under the limit: %v", err)
	}
}

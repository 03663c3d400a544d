package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"rpflavor/internal/sim/roleplay"
	"rpflavor/internal/sim/runtime"
	"rpflavor/internal/sim/textpool"
)

func newTestAdmin(t *testing.T, token string, src runtime.Source) (*adminAPI, *http.ServeMux) {
	t.Helper()
	loop := runtime.New(roleplay.DefaultConfig(), textpool.Empty(), runtime.Options{Seed: 1, Source: src})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	a := &adminAPI{loop: loop, realmID: "realm_test"}
	if token != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt: %v", err)
		}
		a.tokenHash = h
	}
	mux := http.NewServeMux()
	a.register(mux)
	return a, mux
}

func serve(mux *http.ServeMux, method, path, remote, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAdmin_LoopbackOnly(t *testing.T) {
	_, mux := newTestAdmin(t, "", nil)
	if rec := serve(mux, http.MethodGet, "/admin/v1/state", "10.1.2.3:5555", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("remote status=%d want 403", rec.Code)
	}
	rec := serve(mux, http.MethodGet, "/admin/v1/state", "127.0.0.1:5555", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("loopback status=%d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		RealmID string        `json:"realm_id"`
		State   runtime.State `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RealmID != "realm_test" || body.State.SessionID != "" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestAdmin_BearerToken(t *testing.T) {
	_, mux := newTestAdmin(t, "s3cret", nil)
	if rec := serve(mux, http.MethodGet, "/admin/v1/state", "[::1]:80", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status=%d", rec.Code)
	}
	if rec := serve(mux, http.MethodGet, "/admin/v1/state", "[::1]:80", "Bearer nope"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status=%d", rec.Code)
	}
	if rec := serve(mux, http.MethodGet, "/admin/v1/state", "[::1]:80", "Bearer s3cret"); rec.Code != http.StatusOK {
		t.Fatalf("good token status=%d", rec.Code)
	}
}

func TestAdmin_Reload(t *testing.T) {
	calls := 0
	_, mux := newTestAdmin(t, "", func() (roleplay.Config, *textpool.Store, []string, error) {
		calls++
		return roleplay.DefaultConfig(), textpool.Empty(), nil, nil
	})
	if rec := serve(mux, http.MethodGet, "/admin/v1/reload", "127.0.0.1:1", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status=%d", rec.Code)
	}
	rec := serve(mux, http.MethodPost, "/admin/v1/reload", "127.0.0.1:1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"reloaded"`) || calls != 1 {
		t.Fatalf("unexpected reload response %s calls=%d", rec.Body.String(), calls)
	}
}

func TestWriteMetrics(t *testing.T) {
	st := runtime.State{SessionID: "s", Engine: roleplay.Stats{NPCs: 3, Requests: map[string]uint64{"greeting": 2}, Denials: map[string]uint64{"cooldown": 1}}}
	rec := httptest.NewRecorder()
	writeMetrics(rec, "r1", st, fixedDrops(4), nil)
	out := rec.Body.String()
	for _, want := range []string{
		`rp_host_attached{realm="r1"} 1`,
		`rp_npcs{realm="r1"} 3`,
		`rp_requests_total{realm="r1",cause="greeting"} 2`,
		`rp_denials_total{realm="r1",gate="cooldown"} 1`,
		`rp_journal_dropped_total{realm="r1"} 4`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics missing %q:\n%s", want, out)
		}
	}
}

type fixedDrops uint64

func (f fixedDrops) Dropped() uint64 { return uint64(f) }

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:443":    true,
		"10.0.0.1:80":  false,
		"garbage":      false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", in, got, want)
		}
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rpflavor/internal/sim/runtime"
)

// adminAPI serves the local operator endpoints. Requests must come from a
// loopback address; when tokenHash is set they also need a bearer token whose
// bcrypt hash matches.
type adminAPI struct {
	loop      *runtime.Loop
	tokenHash []byte
	realmID   string
	logger    *log.Logger
}

func (a *adminAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/v1/state", a.guard(a.handleState))
	mux.HandleFunc("/admin/v1/reload", a.guard(a.handleReload))
}

func (a *adminAPI) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if len(a.tokenHash) > 0 {
			tok, ok := bearerToken(r)
			if !ok || bcrypt.CompareHashAndPassword(a.tokenHash, []byte(tok)) != nil {
				http.Error(rw, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(rw, r)
	}
}

func (a *adminAPI) handleState(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	st, err := a.loop.State(ctx)
	rw.Header().Set("Content-Type", "application/json")
	if err != nil {
		rw.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
		return
	}
	resp := struct {
		RealmID string        `json:"realm_id"`
		State   runtime.State `json:"state"`
	}{RealmID: a.realmID, State: st}
	_ = json.NewEncoder(rw).Encode(resp)
}

func (a *adminAPI) handleReload(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	res, err := a.loop.Reload(ctx)
	rw.Header().Set("Content-Type", "application/json")
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		rw.WriteHeader(status)
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
		return
	}
	if a.logger != nil {
		a.logger.Printf("admin reload status=%s", res.Status)
	}
	_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "result": res})
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

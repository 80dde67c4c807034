package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"shelfnav/internal/config"
	"shelfnav/internal/logging"
)

// LibraryServer is a fake library server for tests: static directory pages,
// one JSON index, raw file bytes, and a cookie login gate. Unauthenticated
// listing and index requests get the reserved 404, like the real server.
type LibraryServer struct {
	*httptest.Server

	Listings map[string]string // server path -> directory page HTML
	Files    map[string][]byte // server path -> binary content
	IndexRaw string            // body of the JSON index resource

	RequireAuth    bool
	User, Password string
}

const sessionCookie = "shelfsession"

// NewLibraryServer starts a fake library server. Close is registered with
// the test's cleanup.
func NewLibraryServer(t *testing.T) *LibraryServer {
	t.Helper()
	ls := &LibraryServer{
		Listings: map[string]string{},
		Files:    map[string][]byte{},
		IndexRaw: "[]",
		User:     "jane",
		Password: "secret",
	}
	ls.Server = httptest.NewServer(http.HandlerFunc(ls.handle))
	t.Cleanup(ls.Server.Close)
	return ls
}

func (ls *LibraryServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/rpc/login" {
		ls.handleLogin(w, r)
		return
	}

	authed := !ls.RequireAuth
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value == "ok" {
		authed = true
	}

	if html, ok := ls.Listings[r.URL.Path]; ok {
		if !authed {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, html)
		return
	}
	if r.URL.Path == "/rpc/cat/scan/epub/index.json" {
		if !authed {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, ls.IndexRaw)
		return
	}
	if body, ok := ls.Files[r.URL.Path]; ok {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(body)
		return
	}
	http.Error(w, "no fixture for "+r.URL.Path, http.StatusInternalServerError)
}

func (ls *LibraryServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.PostFormValue("user") != ls.User || r.PostFormValue("password") != ls.Password {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "ok", Path: "/"})
	w.WriteHeader(http.StatusOK)
}

// Config returns a validated config pointing at the fake server.
func (ls *LibraryServer) Config(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{Version: 1}
	cfg.Server.BaseURL = ls.URL
	cfg.Server.LibraryPrefix = "/rpc/cat/scan/epub"
	cfg.Server.IndexPath = "/rpc/cat/scan/epub/index.json"
	cfg.Server.LoginPath = "/rpc/login"
	cfg.Device.Profile = "pc"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

// Logger returns a quiet logger suitable for tests.
func Logger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.NewWriter("error", testWriter{t})
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

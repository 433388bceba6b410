package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Canned backend answers
const (
	SessionsJSON = `{"success":true,"data":[
		{"uuid":"a","ended_at":"2025-08-13T10:00:00Z","message_count":"5"},
		{"uuid":"b","ended_at":"2025-07-30T09:00:00Z","message_count":"20","has_references":"TRUE"}
	]}`

	LogsJSON = `{"success":true,"data":[
		{"type":"user","message":"Hello","timestamp":"2025-08-13T09:59:00Z"},
		{"type":"bot","message":"Hi, how can I help?","timestamp":"2025-08-13T10:00:00Z","References":"faq.pdf"}
	]}`

	MeJSON = `{"success":true,"data":{"username":"root","is_super_admin":true,"permissions":{},"categories":[]}}`
)

// FakeBackend is an httptest server answering the admin API from canned
// handlers. Requests to unknown routes get a FastAPI style 404.
type FakeBackend struct {
	*httptest.Server

	// Token, when set, is required as a bearer token on every route except
	// login and health
	Token string

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

// NewFakeBackend starts a backend closed when the test ends
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// Handle registers h for "METHOD /path". A route ending in "/" matches every
// path below it.
func (f *FakeBackend) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

// JSON registers a route answering status with body. A string body is sent
// verbatim; anything else is marshalled.
func (f *FakeBackend) JSON(method, path string, status int, body any) {
	f.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Hits returns how many requests reached "METHOD /path"
func (f *FakeBackend) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.Method+" "+r.URL.Path]++
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	if !ok {
		best := ""
		for key, route := range f.routes {
			prefix := strings.TrimPrefix(key, r.Method+" ")
			if prefix != key && strings.HasSuffix(prefix, "/") &&
				strings.HasPrefix(r.URL.Path, prefix) && len(prefix) > len(best) {
				best, h = prefix, route
			}
		}
	}
	token := f.Token
	f.mu.Unlock()

	if token != "" && r.URL.Path != "/api/admin/login" && r.URL.Path != "/api/health" &&
		r.Header.Get("Authorization") != "Bearer "+token {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		return
	}
	if h == nil {
		WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
		return
	}
	h(w, r)
}

// WriteJSON writes body with status
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if s, ok := body.(string); ok {
		_, _ = w.Write([]byte(s))
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

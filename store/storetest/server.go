// Package storetest runs an in-memory Civil Memory for tests.
package storetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"sparkpad/store"
)

// Server is a fake Civil Memory backed by a map.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	values   map[string][]byte
	fail     int
	requests int
	APIKey   string
}

// NewServer starts a fake and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{values: make(map[string][]byte)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// NewStore starts a fake and returns a store pointed at it.
func NewStore(t testing.TB) (*store.Store, *Server) {
	t.Helper()
	s := NewServer(t)
	client := store.NewClient(store.Options{URL: s.URL, Path: "/api/data"})
	return store.New(client, "test"), s
}

// FailNext makes the next n requests answer 500.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	s.fail = n
	s.mu.Unlock()
}

// Requests returns how many requests reached the server.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Raw returns the stored bytes for mode and key.
func (s *Server) Raw(mode store.Mode, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[string(mode)+"|"+key]
	return v, ok
}

// Put stores v as JSON at mode and key.
func (s *Server) Put(mode store.Mode, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	s.values[string(mode)+"|"+key] = data
	s.mu.Unlock()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	if s.fail > 0 {
		s.fail--
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}
	if s.APIKey != "" && r.Header.Get("X-API-Key") != s.APIKey {
		http.Error(w, "bad api key", http.StatusUnauthorized)
		return
	}

	mode := r.URL.Query().Get("mode")
	key := r.URL.Query().Get("key")
	if key == "" || (mode != string(store.Disk) && mode != string(store.Volatile)) {
		http.Error(w, "mode and key are required", http.StatusBadRequest)
		return
	}
	id := mode + "|" + key

	switch r.Method {
	case http.MethodGet:
		v, ok := s.values[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(v)
	case http.MethodPost:
		data, err := io.ReadAll(r.Body)
		if err != nil || !json.Valid(data) {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		s.values[id] = data
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if _, ok := s.values[id]; !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		delete(s.values, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

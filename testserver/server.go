// Package testserver provides a local HTTP target that records what barrage
// sends to it.
package testserver

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Stats summarizes everything received on the ingest endpoints.
type Stats struct {
	Received    int64           `json:"received"`
	Invalid     int64           `json:"invalid"`
	Bytes       int64           `json:"bytes"`
	ByPath      map[string]int  `json:"byPath"`
	LastPayload json.RawMessage `json:"lastPayload,omitempty"`
	LastAt      time.Time       `json:"lastAt,omitempty"`
}

// Server is a configurable HTTP test server.
type Server struct {
	router chi.Router

	mu    sync.Mutex
	stats Stats
}

// NewServer creates a new test server with all endpoints configured.
func NewServer() *Server {
	s := &Server{
		router: chi.NewRouter(),
		stats:  Stats{ByPath: make(map[string]int)},
	}
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerHandlers() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/stats", s.handleStats)
	s.router.Delete("/stats", s.handleReset)

	s.router.Post("/ingest", s.handleIngest)
	s.router.Post("/ingest/*", s.handleIngest)
	s.router.HandleFunc("/status/{code}", s.handleStatus)
	s.router.HandleFunc("/delay/{ms}", s.handleDelay)
	s.router.HandleFunc("/fail-rate", s.handleFailRate)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest accepts a JSON body and records it. Non-JSON bodies are
// rejected with 400.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	if !json.Valid(body) {
		s.mu.Lock()
		s.stats.Invalid++
		s.mu.Unlock()
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	s.record(r.URL.Path, body)
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "bytes": len(body)})
}

// Stats returns a snapshot of the recorded traffic.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.ByPath = make(map[string]int, len(s.stats.ByPath))
	for k, v := range s.stats.ByPath {
		out.ByPath[k] = v
	}
	return out
}

func (s *Server) record(path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Received++
	s.stats.Bytes += int64(len(body))
	s.stats.ByPath[path]++
	s.stats.LastPayload = append(json.RawMessage(nil), body...)
	s.stats.LastAt = time.Now().UTC()
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.stats = Stats{ByPath: make(map[string]int)}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// handleStatus returns the requested status code, recording JSON bodies.
// Example: POST /status/503
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "invalid status code", http.StatusBadRequest)
		return
	}
	if body, _ := io.ReadAll(r.Body); json.Valid(body) {
		s.record(r.URL.Path, body)
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "%d %s", code, http.StatusText(code))
}

// handleDelay waits before responding, or until the client gives up.
// Example: POST /delay/100 waits 100ms
func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.Atoi(chi.URLParam(r, "ms"))
	if err != nil || ms < 0 {
		http.Error(w, "invalid delay", http.StatusBadRequest)
		return
	}

	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-r.Context().Done():
		return
	}
	if body, _ := io.ReadAll(r.Body); json.Valid(body) {
		s.record(r.URL.Path, body)
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "delayed %dms", ms)
}

// handleFailRate fails a percentage of requests with 500 status.
// Example: POST /fail-rate?rate=10 fails 10% of requests
func (s *Server) handleFailRate(w http.ResponseWriter, r *http.Request) {
	rate, err := strconv.Atoi(r.URL.Query().Get("rate"))
	if err != nil || rate < 0 || rate > 100 {
		rate = 0
	}

	if rand.Intn(100) < rate {
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "success")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

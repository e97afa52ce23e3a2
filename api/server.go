// Package api exposes the analyzer over HTTP for GUI front-ends: a DEX image
// is uploaded once, then the pools, classes, per-method disassembly and IR
// are queried as JSON. Analysis progress streams over a websocket.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lookbusy1344/dex-analyzer/config"
	"github.com/lookbusy1344/dex-analyzer/loader"
)

// Server represents the HTTP API server
type Server struct {
	cfg         *config.Config
	broadcaster *Broadcaster
	mux         *http.ServeMux
	server      *http.Server
	port        int

	mu     sync.RWMutex
	result *loader.Result
}

// NewServer creates a new API server
func NewServer(port int, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Server{
		cfg:         cfg,
		broadcaster: NewBroadcaster(),
		mux:         http.NewServeMux(),
		port:        port,
	}

	// Register routes
	s.registerRoutes()

	return s
}

// Handler returns the HTTP handler with CORS middleware applied
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Health check
	s.mux.HandleFunc("/health", s.handleHealth)

	// WebSocket endpoint for analysis progress events
	s.mux.HandleFunc("/api/v1/ws", s.handleWebSocket)

	// Analysis
	s.mux.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/v1/summary", s.handleSummary)
	s.mux.HandleFunc("/api/v1/classes", s.handleClasses)
	s.mux.HandleFunc("/api/v1/methods", s.handleMethods)
	s.mux.HandleFunc("/api/v1/methods/disasm", s.handleDisasm)
	s.mux.HandleFunc("/api/v1/methods/ir", s.handleIR)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("API server starting on http://127.0.0.1:%d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Close broadcaster to disconnect all WebSocket clients
	if s.broadcaster != nil {
		s.broadcaster.Close()
	}

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// GetBroadcaster returns the broadcaster (for testing)
func (s *Server) GetBroadcaster() *Broadcaster {
	return s.broadcaster
}

// corsMiddleware adds CORS headers restricted to localhost origins
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isAllowedOrigin accepts localhost origins in their various forms and
// rejects anything remote
func isAllowedOrigin(origin string) bool {
	if origin == "" || origin == "file://" {
		return true
	}
	for _, prefix := range []string{
		"http://localhost:", "https://localhost:",
		"http://127.0.0.1:", "https://127.0.0.1:",
	} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return origin == "http://localhost" || origin == "http://127.0.0.1"
}

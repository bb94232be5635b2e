// Package api serves the cost model over HTTP for the chart and table
// frontends. GET endpoints are public and read-only; the mutating scenario
// endpoints require a bearer token and a configured store.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/vinaykashyap1996/circonomit-sim/internal/engine"
	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
	"github.com/vinaykashyap1996/circonomit-sim/internal/persistence"
	"github.com/vinaykashyap1996/circonomit-sim/internal/scenario"
)

// Default rate limit for the simulation endpoints. Runs are cheap, so the
// window mostly guards against runaway polling loops.
const (
	defaultRateLimit  = 120
	defaultRateWindow = time.Minute
)

// Server serves one cost model over HTTP.
type Server struct {
	Model    *model.Model
	Store    *persistence.Store   // optional; nil disables scenario admin
	Extra    []*scenario.Scenario // file-loaded scenarios layered over the builtin catalog
	Port     int
	AdminKey string // bearer token for PUT/DELETE. Empty = scenario admin disabled.

	// Rate limiting for POST /simulate and /compare; zero values fall
	// back to the package defaults.
	RateLimit  int
	RateWindow time.Duration
}

// Handler builds the full HTTP handler, routes plus middleware.
func (s *Server) Handler() http.Handler {
	limit := s.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	window := s.RateWindow
	if window <= 0 {
		window = defaultRateWindow
	}
	simLimiter := NewLimiter(limit, window)

	mux := http.NewServeMux()

	// Public, read-only.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/model", s.handleModel)
	mux.HandleFunc("/api/v1/scenarios", s.handleScenarios)

	// Simulation runs.
	mux.HandleFunc("/api/v1/simulate", rateLimited(simLimiter, s.handleSimulate))
	mux.HandleFunc("/api/v1/compare", rateLimited(simLimiter, s.handleCompare))

	// Scenario admin (PUT/DELETE, bearer token).
	mux.HandleFunc("/api/v1/scenarios/", s.adminOnly(s.handleScenarioItem))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "store", s.Store != nil)

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// catalog assembles the catalog served right now: builtin scenarios, then
// file-loaded extras, then whatever the store holds. Rebuilt per request so
// deletes and saves take effect immediately.
func (s *Server) catalog() (*scenario.Catalog, error) {
	cat := scenario.Builtin()
	for _, sc := range s.Extra {
		if err := cat.Put(sc); err != nil {
			return nil, err
		}
	}
	if s.Store != nil {
		if err := s.Store.MergeInto(cat); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func (s *Server) solver() (*engine.Solver, error) {
	cat, err := s.catalog()
	if err != nil {
		return nil, err
	}
	return engine.New(s.Model, cat), nil
}

// corsMiddleware adds CORS headers for allowed frontend origins. Set
// CORS_ORIGINS to a comma-separated list of extra origins; localhost dev
// servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken reports whether the request carries the admin token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer auth on the mutating methods. Reads pass
// through untouched.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut, http.MethodDelete:
			if s.AdminKey == "" {
				http.Error(w, "scenario admin disabled (no admin key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cat, err := s.catalog()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"name":       "circonomit-sim",
		"blocks":     len(s.Model.Blocks()),
		"scenarios":  len(cat.Names()),
		"admin_auth": s.AdminKey != "",
		"store":      s.Store != nil,
		"defaults": map[string]any{
			"max_iterations": engine.DefaultMaxIterations,
			"threshold":      engine.DefaultThreshold,
		},
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("response encode failed", "error", err)
	}
}

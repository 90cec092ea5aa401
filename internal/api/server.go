// Package api provides the HTTP API for creating, stepping and observing
// models. GET endpoints are public. Archive writes require a bearer token.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KhuramC/EconomySim-sub000/internal/agents"
	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
	"github.com/KhuramC/EconomySim-sub000/internal/engine"
	"github.com/KhuramC/EconomySim-sub000/internal/entropy"
	"github.com/KhuramC/EconomySim-sub000/internal/indicators"
	"github.com/KhuramC/EconomySim-sub000/internal/persistence"
	"github.com/KhuramC/EconomySim-sub000/internal/registry"
)

const maxBodyBytes = 1 << 20

// Server serves models over HTTP.
type Server struct {
	Models   *registry.Registry
	DB       *persistence.DB // nil disables the archive endpoints
	Entropy  *entropy.Client // nil seeds from crypto/rand
	Port     int
	AdminKey string // Bearer token for archive writes. Empty = writes disabled.

	hub     *Hub
	metrics *metrics
	limiter *RateLimiter
	started time.Time
}

// NewServer wires a server to a registry. Every completed week of any model
// is counted and pushed to its stream subscribers.
func NewServer(models *registry.Registry, db *persistence.DB, ent *entropy.Client, port int, adminKey string) *Server {
	s := &Server{
		Models:   models,
		DB:       db,
		Entropy:  ent,
		Port:     port,
		AdminKey: adminKey,
		hub:      NewHub(),
		limiter:  NewRateLimiter(60, time.Hour),
		started:  time.Now(),
	}
	s.metrics = newMetrics(func() float64 { return float64(models.Len()) })
	models.OnStep = func(id uuid.UUID, m *engine.Model) {
		s.metrics.weeksStepped.Inc()
		s.hub.Publish(id, m)
	}
	return s
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.metrics.instrument(pattern, h))
	}

	route("GET /api/v1/status", s.handleStatus)
	route("POST /api/v1/models", RateLimitMiddleware(s.limiter, s.handleCreate))
	route("GET /api/v1/models", s.handleList)
	route("GET /api/v1/models/{id}", s.handleModel)
	route("DELETE /api/v1/models/{id}", s.handleDelete)
	route("POST /api/v1/models/{id}/step", s.handleStep)
	route("GET /api/v1/models/{id}/policies", s.handleGetPolicies)
	route("PUT /api/v1/models/{id}/policies", s.handlePutPolicies)
	route("GET /api/v1/models/{id}/indicators", s.handleIndicators)
	route("GET /api/v1/models/{id}/industries", s.handleIndustries)
	route("GET /api/v1/models/{id}/demographics", s.handleDemographics)
	route("GET /api/v1/models/{id}/lorenz", s.handleLorenz)
	route("POST /api/v1/models/{id}/snapshot", s.adminOnly(s.handleSnapshot))
	route("GET /api/v1/archive", s.handleArchiveList)
	route("GET /api/v1/archive/{id}", s.handleArchived)
	route("DELETE /api/v1/archive/{id}", s.adminOnly(s.handleArchiveDelete))

	// Hijacked connections bypass the request counter.
	mux.HandleFunc("GET /api/v1/models/{id}/stream", s.handleStream)
	mux.Handle("GET /metrics", s.metrics.handler())

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "archive", s.DB != nil, "random_org", s.Entropy.Enabled())

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Close releases background resources.
func (s *Server) Close() {
	s.limiter.Close()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
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

// checkBearerToken validates the Authorization header against AdminKey.
func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

// adminOnly wraps a handler to require a valid bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no ECONSIM_ADMIN_KEY set)", nil)
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "econsim",
		"models":      s.Models.Len(),
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"archive":     s.DB != nil,
		"random_org":  s.Entropy.Enabled(),
		"industries":  economy.AllIndustries(),
		"indicators":  indicators.IndicatorNames(),
		"work_week_h": agents.StandardWorkWeek,
	})
}

// modelID parses the {id} path value, writing a 404 when it is not a handle.
func (s *Server) modelID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "model not found", nil)
		return uuid.Nil, false
	}
	return id, true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, persistence.ErrNotArchived):
		return http.StatusNotFound
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, economy.ErrDegenerateSlope),
		errors.Is(err, indicators.ErrInvalidRange),
		errors.Is(err, indicators.ErrUnknownSeries),
		errors.Is(err, registry.ErrInvalidTicks),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, agents.ErrNumericDomain):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeModelError reports err with its mapped status. Configuration errors
// carry their path and missing keys.
func (s *Server) writeModelError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	var details map[string]any
	var cerr *config.Error
	if errors.As(err, &cerr) {
		details = map[string]any{}
		if cerr.Path != "" {
			details["path"] = cerr.Path
		}
		if len(cerr.Missing) > 0 {
			details["missing"] = cerr.Missing
		}
	}
	writeError(w, code, err.Error(), details)
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// writeError writes {"error": msg} merged with details.
func writeError(w http.ResponseWriter, code int, msg string, details map[string]any) {
	body := map[string]any{"error": msg}
	for k, v := range details {
		body[k] = v
	}
	writeJSON(w, code, body)
}

// Package http exposes the query facade over HTTP alongside health,
// readiness, and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riverwatch/waterpoint/internal/query"
)

// defaultTopN is the result count when a nearest request omits top.
const defaultTopN = 5

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the query API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	queries    *query.Service
	scheme     string
	logger     *slog.Logger
}

// NewServer creates the HTTP server. scheme is the geocoding scheme used for
// requests that do not specify one.
func NewServer(addr string, queries *query.Service, scheme string, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		queries: queries,
		scheme:  scheme,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /nearest", s.handleNearest)
	mux.HandleFunc("GET /distance", s.handleDistance)
	mux.HandleFunc("GET /geocode", s.handleGeocode)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleNearest serves GET /nearest?place=P&top=N&scheme=S.
func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	place := r.URL.Query().Get("place")
	if place == "" {
		writeError(w, http.StatusBadRequest, "place is required")
		return
	}

	top := defaultTopN
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		top = n
	}

	results, err := s.queries.SearchNearest(r.Context(), s.requestScheme(r), place, top)
	if err != nil {
		s.logger.Error("nearest query failed", "place", place, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if results == nil {
		results = []query.NearestResult{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"place":   place,
		"count":   len(results),
		"results": results,
	})
}

// handleDistance serves GET /distance?place_a=A&place_b=B&scheme=S.
func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	placeA := r.URL.Query().Get("place_a")
	placeB := r.URL.Query().Get("place_b")
	if placeA == "" || placeB == "" {
		writeError(w, http.StatusBadRequest, "place_a and place_b are required")
		return
	}

	result, err := s.queries.DistanceBetween(r.Context(), s.requestScheme(r), placeA, placeB)
	if err != nil {
		s.logger.Error("distance query failed", "place_a", placeA, "place_b", placeB, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGeocode serves GET /geocode?address=A&scheme=S.
func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	coord, ok, err := s.queries.Geocode(r.Context(), s.requestScheme(r), address)
	if err != nil {
		s.logger.Error("geocode failed", "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "geocode failed")
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"address": address, "resolved": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": address, "resolved": true, "coord": coord})
}

// requestScheme returns the request's scheme override or the configured
// default. An unknown scheme surfaces as an error from the query service.
func (s *Server) requestScheme(r *http.Request) string {
	if scheme := r.URL.Query().Get("scheme"); scheme != "" {
		return scheme
	}
	return s.scheme
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}

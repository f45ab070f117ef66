// Package httpadapter is the thin HTTP surface over the refresh service:
// manual trigger, status, cached predictions, and health endpoints.
package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/refresh"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Refresher starts a background refresh run.
type Refresher interface {
	// Trigger returns domain.ErrBusy when a run is already in progress.
	Trigger() error
}

// StatusReporter serves run status and readiness.
type StatusReporter interface {
	sharedobs.ReadinessChecker
	Status(ctx context.Context) (refresh.Status, error)
}

// Locations lists the registered entities.
type Locations interface {
	Entries() []domain.Location
}

// Server exposes the control routes plus /healthz, /readyz, and /metrics.
type Server struct {
	httpServer *http.Server
	refresher  Refresher
	status     StatusReporter
	store      domain.SnapshotReader
	locations  Locations
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, refresher Refresher, status StatusReporter, store domain.SnapshotReader, locations Locations, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      otelhttp.NewHandler(mux, "flood-risk-http"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		refresher: refresher,
		status:    status,
		store:     store,
		locations: locations,
		logger:    logger,
	}

	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /predictions", s.handleListPredictions)
	mux.HandleFunc("GET /predictions/{slug}", s.handleGetPrediction)
	mux.HandleFunc("GET /locations", s.handleLocations)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(status))
	mux.Handle("GET /metrics", promhttp.Handler())

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

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	err := s.refresher.Trigger()
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	case errors.Is(err, domain.ErrBusy):
		sharedobs.WriteJSON(w, http.StatusConflict, map[string]string{"status": "busy"})
	default:
		s.logger.Error("trigger refresh failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.status.Status(r.Context())
	if err != nil {
		s.internalError(w, "read status", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, st)
}

func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slugs, err := s.store.List(ctx)
	if err != nil {
		s.internalError(w, "list predictions", err)
		return
	}

	out := make(map[string]domain.PredictionSnapshot, len(slugs))
	for _, slug := range slugs {
		snap, err := s.store.Load(ctx, slug)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			s.internalError(w, "load prediction", err)
			return
		}
		out[slug] = snap
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	snap, err := s.store.Load(r.Context(), slug)
	if errors.Is(err, domain.ErrNotFound) {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error": "no prediction for location",
			"slug":  slug,
		})
		return
	}
	if err != nil {
		s.internalError(w, "load prediction", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLocations(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.locations.Entries())
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": op + " failed"})
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/stratumdb/controlplane/internal/api/handler"
	mw "github.com/stratumdb/controlplane/internal/api/middleware"
	"github.com/stratumdb/controlplane/internal/config"
	"github.com/stratumdb/controlplane/internal/core"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	pool           *pgxpool.Pool
	temporalClient temporalclient.Client
	cfg            *config.Config
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, temporalClient temporalclient.Client, events core.EventSink, cfg *config.Config) *Server {
	services := core.NewServices(pool, core.NewTemporalDispatcher(temporalClient), events)

	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		pool:           pool,
		temporalClient: temporalClient,
		cfg:            cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Clusters
		cluster := handler.NewCluster(s.services.Cluster)
		r.Get("/projects/{projectID}/clusters", cluster.ListByProject)
		r.Post("/clusters", cluster.Create)
		r.Get("/clusters/{id}", cluster.Get)
		r.Put("/clusters/{id}/status", cluster.UpdateStatus)

		// Backups
		backup := handler.NewBackup(s.services.Backup)
		r.Get("/clusters/{clusterID}/backups", backup.ListByCluster)
		r.Post("/clusters/{clusterID}/backups", backup.Create)
		r.Get("/clusters/{clusterID}/backups/stats", backup.Stats)
		r.Get("/backups/{id}", backup.Get)
		r.Delete("/backups/{id}", backup.Delete)
		r.Post("/backups/{id}/restore", backup.Restore)

		// Backup policies
		policy := handler.NewPolicy(s.services.Policy)
		r.Get("/clusters/{clusterID}/backup-policy", policy.Get)
		r.Patch("/clusters/{clusterID}/backup-policy", policy.Update)
		r.Post("/clusters/{clusterID}/backup-policy/preset", policy.ApplyPreset)
		r.Post("/clusters/{clusterID}/backup-policy/legal-hold", policy.EnableLegalHold)
		r.Delete("/clusters/{clusterID}/backup-policy/legal-hold", policy.DisableLegalHold)
		r.Get("/clusters/{clusterID}/compliance", policy.ComplianceStatus)

		// Restores
		restore := handler.NewRestore(s.services.Restore)
		r.Get("/clusters/{clusterID}/restores", restore.ListByCluster)
		r.Post("/clusters/{clusterID}/restores", restore.Create)
		r.Get("/restores/{id}", restore.Get)
		r.Post("/restores/{id}/cancel", restore.Cancel)

		// Worker callback path.
		r.Put("/internal/restores/{id}/progress", restore.UpdateProgress)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

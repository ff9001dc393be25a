// Package api serves region content, patient slices, the shared complexity
// level and educational modules over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/complexity"
	"github.com/anatomy-twin-server/internal/content"
	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/enrichment"
	"github.com/anatomy-twin-server/internal/metrics"
	"github.com/anatomy-twin-server/internal/middleware"
	"github.com/anatomy-twin-server/internal/modules"
	"github.com/anatomy-twin-server/internal/patient"
)

// RecordStore loads and saves full patient records. *patient.Repository
// satisfies it.
type RecordStore interface {
	Get(ctx context.Context, patientID string) (*domain.PatientRecord, error)
	Save(ctx context.Context, record *domain.PatientRecord) error
}

// ModelSigner turns model paths into download URLs. *assets.Signer
// satisfies it.
type ModelSigner interface {
	Sign(ctx context.Context, models []domain.ModelReference) []domain.ModelReference
	Expiry() time.Duration
}

// HealthCheck is one named dependency probe for /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options are the components the handlers use. Records, Assets, Graph and
// Breakers are optional.
type Options struct {
	Regions    *content.Store
	Fetcher    enrichment.Fetcher
	Patients   *patient.Memo
	Records    RecordStore
	Complexity *complexity.State
	Modules    *modules.Registry
	Graph      ConditionGraph
	Assets     ModelSigner
	Metrics    *metrics.Metrics
	Checks     []HealthCheck
	Breakers   func() map[string]string
	Version    string
	Logger     *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	cfg    domain.ServerConfig
	opts   Options
	router *gin.Engine
	server *http.Server
	logger *logrus.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(cfg domain.ServerConfig, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(opts.Logger))
	router.Use(middleware.Metrics(opts.Metrics))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())

	s := &Server{
		cfg:    cfg,
		opts:   opts,
		router: router,
		logger: opts.Logger,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/regions", s.handleListRegions)
		v1.GET("/regions/search", s.handleSearchRegions)
		v1.GET("/regions/:id", s.handleGetRegion)
		v1.GET("/regions/stream", s.handleRegionStream)
		v1.GET("/regions/:id/models", s.handleRegionModels)
		v1.GET("/regions/:id/conditions", s.handleRegionConditions)
		v1.POST("/regions/:id/patient", s.handleRegionPatient)

		v1.GET("/conditions/search", s.handleSearchConditions)
		v1.GET("/conditions/icd/:code", s.handleConditionByCode)
		v1.GET("/conditions/:conditionId", s.handleGetCondition)
		v1.GET("/medications/:name", s.handleMedication)
		v1.GET("/symptoms/:symptomId/treatment-paths", s.handleTreatmentPaths)

		v1.PUT("/patients/:patientId", s.handleSavePatient)
		v1.GET("/patients/:patientId/regions/:id", s.handlePatientRegion)

		v1.GET("/complexity", s.handleGetComplexity)
		v1.PUT("/complexity", s.handleSetComplexity)
		v1.GET("/complexity/stream", s.handleComplexityStream)

		v1.GET("/modules", s.handleListModules)
		v1.GET("/modules/validation", s.handleValidateModules)
		v1.GET("/modules/:id", s.handleGetModule)
	}
}

// handleHealth reports degraded when any dependency probe fails.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	checks := make(map[string]string, len(s.opts.Checks))
	for _, check := range s.opts.Checks {
		if err := check.Check(ctx); err != nil {
			checks[check.Name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[check.Name] = "ok"
	}

	body := gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   s.opts.Version,
		"regions":   s.opts.Regions.Len(),
		"modules":   s.opts.Modules.Len(),
		"checks":    checks,
	}
	if s.opts.Breakers != nil {
		body["circuit_breakers"] = s.opts.Breakers()
	}
	if s.opts.Patients != nil {
		body["patient_memo"] = s.opts.Patients.Stats()
	}
	if s.opts.Graph != nil {
		nodes, edges := s.opts.Graph.Stats()
		body["knowledge_graph"] = gin.H{"nodes": nodes, "edges": edges}
	}
	c.JSON(code, body)
}

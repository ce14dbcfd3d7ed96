// Package api provides the HTTP surface for ElixirTrials: thin handlers
// that validate input, delegate to pkg/review, pkg/reextract,
// pkg/integrity, pkg/export, and pkg/metrics, and translate the typed
// errors those packages return into HTTP responses. Nothing in this
// package owns business logic of its own.
package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/pkg/config"
	"github.com/elixirtrials/elixirtrials/pkg/database"
	"github.com/elixirtrials/elixirtrials/pkg/events"
	"github.com/elixirtrials/elixirtrials/pkg/export"
	"github.com/elixirtrials/elixirtrials/pkg/integrity"
	"github.com/elixirtrials/elixirtrials/pkg/llmgateway"
	"github.com/elixirtrials/elixirtrials/pkg/metrics"
	"github.com/elixirtrials/elixirtrials/pkg/outbox"
	"github.com/elixirtrials/elixirtrials/pkg/reextract"
	"github.com/elixirtrials/elixirtrials/pkg/review"
	"github.com/elixirtrials/elixirtrials/pkg/storage"
)

// Server is the HTTP API server. Every dependency is injected at
// construction; the server itself holds no state beyond what's needed to
// serve requests.
type Server struct {
	engine *gin.Engine
	http   *http.Server

	cfg       *config.Config
	dbClient  *database.Client
	client    *ent.Client
	storage   storage.Adapter
	localMode bool

	reviewSvc    *review.Service
	reextractSvc *reextract.Service
	exporter     *export.Exporter
	checker      *integrity.Checker
	agreement    *metrics.AgreementCalculator
	gateway      *llmgateway.Gateway
	outboxPool   *outbox.WorkerPool
	connManager  *events.ConnectionManager

	logger *slog.Logger
}

// NewServer builds the gin engine and registers every route. localMode
// selects which file_uri scheme the upload handler synthesizes (local://
// vs a placeholder signed HTTPS URL), mirroring the USE_LOCAL_STORAGE
// split storage.New is configured with. connManager may be nil — wsHandler
// degrades to a 503 rather than a panic when realtime delivery isn't wired
// (e.g. a unit test building a bare Server).
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	storageAdapter storage.Adapter,
	localMode bool,
	reviewSvc *review.Service,
	reextractSvc *reextract.Service,
	exporter *export.Exporter,
	checker *integrity.Checker,
	agreement *metrics.AgreementCalculator,
	gateway *llmgateway.Gateway,
	outboxPool *outbox.WorkerPool,
	connManager *events.ConnectionManager,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(securityHeaders())

	s := &Server{
		engine:       engine,
		cfg:          cfg,
		dbClient:     dbClient,
		client:       dbClient.Client,
		storage:      storageAdapter,
		localMode:    localMode,
		reviewSvc:    reviewSvc,
		reextractSvc: reextractSvc,
		exporter:     exporter,
		checker:      checker,
		agreement:    agreement,
		gateway:      gateway,
		outboxPool:   outboxPool,
		connManager:  connManager,
		logger:       logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/ready", s.readyHandler)

	s.engine.GET("/auth/login", s.authLoginHandler)
	s.engine.GET("/auth/callback", s.authCallbackHandler)
	s.engine.GET("/auth/me", s.authMeHandler)
	s.engine.POST("/auth/dev-login", s.authDevLoginHandler)

	s.engine.POST("/protocols/upload", s.uploadProtocolHandler)
	s.engine.POST("/protocols/confirm-upload", s.confirmUploadHandler)
	s.engine.GET("/protocols", s.listProtocolsHandler)
	s.engine.GET("/protocols/:id", s.getProtocolHandler)
	s.engine.GET("/protocols/:id/batches", s.listProtocolBatchesHandler)
	s.engine.POST("/protocols/:id/reextract", s.reextractProtocolHandler)
	s.engine.GET("/protocols/:id/export", s.exportProtocolHandler)

	s.engine.GET("/reviews/batches", s.listReviewBatchesHandler)
	s.engine.GET("/reviews/batches/:id/criteria", s.batchCriteriaHandler)
	s.engine.GET("/reviews/batches/:id/metrics", s.batchMetricsHandler)
	s.engine.POST("/reviews/criteria/:id/action", s.criterionActionHandler)
	s.engine.POST("/reviews/criteria/:id/rerun", s.criterionRerunHandler)
	s.engine.GET("/reviews/batch-compare", s.batchCompareHandler)
	s.engine.GET("/reviews/audit-log", s.auditLogHandler)
	s.engine.GET("/reviews/pending-summary", s.pendingSummaryHandler)

	s.engine.GET("/integrity/check", s.integrityCheckHandler)
	s.engine.GET("/criteria/search", s.criteriaSearchHandler)

	s.engine.GET("/ws", s.wsHandler)
}

// Start serves on addr until Shutdown is called or the process exits.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.engine}
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) db() *sql.DB {
	return s.dbClient.DB()
}

func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.db())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": dbHealth,
		})
		return
	}

	resp := gin.H{
		"status":        "healthy",
		"database":      dbHealth,
		"configuration": s.cfg.Stats(),
	}
	if s.outboxPool != nil {
		resp["outbox"] = s.outboxPool.Health()
	}

	c.JSON(http.StatusOK, resp)
}

// readyHandler is a lighter liveness probe than /health: it pings the
// database but skips the worker pool and configuration summaries a load
// balancer's readiness check has no use for.
func (s *Server) readyHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db().PingContext(reqCtx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Package server exposes the validation pipeline over HTTP, with a gRPC
// health service alongside.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/termsheet-validator/constants"
	"github.com/joseph-ayodele/termsheet-validator/internal/common"
	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
	"github.com/joseph-ayodele/termsheet-validator/internal/fields"
	"github.com/joseph-ayodele/termsheet-validator/internal/history"
	"github.com/joseph-ayodele/termsheet-validator/internal/metrics"
	"github.com/joseph-ayodele/termsheet-validator/internal/pipeline"
	"github.com/joseph-ayodele/termsheet-validator/internal/rules"
	"github.com/joseph-ayodele/termsheet-validator/internal/workpool"
)

// ServiceName is reported by the health endpoints and the gRPC health service.
const ServiceName = "TermSheet Validation API"

// Validator runs the pipeline.
type Validator interface {
	Validate(ctx context.Context, doc extract.Document) (pipeline.ValidationResult, error)
	Evaluate(m fields.FieldMap) (pipeline.ValidationResult, error)
}

// Catalogue describes the configured rules.
type Catalogue interface {
	Rules() []rules.Info
	RuleSet() *rules.RuleSet
}

// Deps are the collaborators a Server needs. Metrics and Logger are optional.
type Deps struct {
	Config    *common.Config
	Validator Validator
	Rules     Catalogue
	Pool      *workpool.Pool
	History   *history.Store
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

type Server struct {
	cfg       *common.Config
	validator Validator
	rules     Catalogue
	pool      *workpool.Pool
	history   *history.Store
	metrics   *metrics.Collector
	logger    *slog.Logger
	allowed   map[string]struct{}
	router    *gin.Engine
	now       func() time.Time
}

func New(d Deps) (*Server, error) {
	if d.Config == nil || d.Validator == nil || d.Rules == nil || d.Pool == nil || d.History == nil {
		return nil, errors.New("server: config, validator, rules, pool and history are required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewCollector()
	}
	if err := os.MkdirAll(d.Config.Server.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	s := &Server{
		cfg:       d.Config,
		validator: d.Validator,
		rules:     d.Rules,
		pool:      d.Pool,
		history:   d.History,
		metrics:   d.Metrics,
		logger:    d.Logger,
		allowed:   constants.ExtSet(d.Config.Server.AllowedExtensions),
		now:       time.Now,
	}
	if len(s.allowed) == 0 {
		s.allowed = nil
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	router.Use(RequestID())
	router.Use(Recovery(s.logger))
	router.Use(RequestLogger(s.logger))
	router.Use(CORS())
	router.Use(Metrics(s.metrics))
	if s.cfg.Server.RateLimitRPS > 0 {
		router.Use(NewRateLimiter(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst).Middleware(s.logger))
	}
	router.Use(BodyLimit(s.cfg.Server.MaxUploadBytes))

	router.GET("/health", s.health)
	if s.cfg.Metrics.Enabled {
		router.GET(s.cfg.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/validate-term-sheet", s.validateSummary)
		api.POST("/chat", s.chatSummary)

		ts := api.Group("/term-sheets")
		ts.POST("/validate", s.validateDetailed)
		ts.POST("/evaluate", s.evaluate)
		ts.GET("/history", s.listHistory)
		ts.GET("/history/export", s.exportHistory)
		ts.GET("/rules", s.listRules)
		ts.POST("/chat", s.chatDetailed)
	}
	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": ServiceName})
}

// Run serves HTTP and, when an address is configured, gRPC health until ctx
// is cancelled, then shuts both down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.HTTPAddr,
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: s.cfg.Pipeline.TaskTimeout.Duration + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	var grpcSrv *grpcHealth
	if s.cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", s.cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv = newGRPCHealth()
		g.Go(func() error {
			s.logger.Info("grpc health serving", "addr", lis.Addr().String())
			if err := grpcSrv.server.Serve(lis); err != nil {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		s.logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server...")
		if grpcSrv != nil {
			grpcSrv.stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		s.logger.Info("server exited gracefully")
		return nil
	})

	return g.Wait()
}

func (s *Server) abort(c *gin.Context, err *common.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), gin.H{"error": err.Message})
}

// Package httpapi exposes the generation pipeline over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
	"github.com/next-gen-ui/ngui-mcp/internal/validation"
	"github.com/next-gen-ui/ngui-mcp/pkg/types"
)

// Generator runs the generation pipeline for a request
type Generator interface {
	GenerateUI(ctx context.Context, query string, inputs []types.InputData, componentSystem string) (*types.GenerateResult, error)
}

// ComponentLister lists the components selectable for a data type
type ComponentLister interface {
	Components(dataType string) ([]types.ComponentInfo, error)
}

// Config holds the listener settings
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	Debug           bool
}

// DefaultConfig returns the listener defaults
func DefaultConfig() Config {
	return Config{
		Address:         "127.0.0.1:8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    32 << 20,
	}
}

// Server is the HTTP facade
type Server struct {
	generator  Generator
	components ComponentLister
	validator  *validation.Validator
	logger     *audit.Logger
	gatherer   prometheus.Gatherer

	config     Config
	engine     *gin.Engine
	httpServer *http.Server
	startTime  time.Time
}

// Option configures a Server
type Option func(*Server)

// WithGatherer sets the registry served on /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the audit logger
func WithLogger(l *audit.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates the HTTP facade and its routes
func NewServer(generator Generator, components ComponentLister, cfg Config, opts ...Option) *Server {
	defaults := DefaultConfig()
	if cfg.Address == "" {
		cfg.Address = defaults.Address
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	if !cfg.Debug && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		generator:  generator,
		components: components,
		validator:  validation.NewValidator(),
		gatherer:   prometheus.DefaultGatherer,
		config:     cfg,
		engine:     gin.New(),
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(accessLog(s.logger))
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/v1")
	v1.Use(jsonOnly(), limitBody(s.config.MaxBodyBytes))
	{
		v1.POST("/generate", s.handleGenerate)
		v1.GET("/components", s.handleComponents)
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.logger.LogSystem(audit.EventStartup, "HTTP server started", map[string]interface{}{
		"address": s.config.Address,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	s.logger.LogSystem(audit.EventShutdown, "HTTP server stopped", map[string]interface{}{
		"duration": time.Since(s.startTime).Round(time.Second).String(),
	})
	return nil
}

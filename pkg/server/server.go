// Package server is the HTTP front end: procedure dispatch, the legacy
// publish routes, health and metrics.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/entrhq/headline/pkg/config"
	"github.com/entrhq/headline/pkg/logging"
	"github.com/entrhq/headline/pkg/metrics"
	"github.com/entrhq/headline/pkg/publish"
	"github.com/entrhq/headline/pkg/rpc"
	"github.com/entrhq/headline/pkg/service"
)

// legacyPrefix is the route group kept for existing HTTP clients.
const legacyPrefix = "/toutiao-mcp-server"

// Backend is what the routes need besides the procedure registry.
// *service.Service implements it.
type Backend interface {
	Health(ctx context.Context) service.Health
	Metrics() *metrics.Metrics
	PublishArticle(ctx context.Context, req publish.ArticleRequest) service.Response
	PublishMicroPost(ctx context.Context, req publish.MicroPostRequest) service.Response
}

var _ Backend = (*service.Service)(nil)

// Server serves the HTTP API.
type Server struct {
	backend  Backend
	registry *rpc.Registry
	cfg      config.ServerConfig
	engine   *gin.Engine
	logger   *logging.Logger
}

// New creates a server and registers its routes.
func New(backend Backend, registry *rpc.Registry, cfg config.ServerConfig, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8003"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{
		backend:  backend,
		registry: registry,
		cfg:      cfg,
		engine:   engine,
		logger:   logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.backend.Metrics().Handler()))

	procedures := s.engine.Group("/rpc")
	{
		procedures.GET("", s.handleCatalog)
		procedures.POST("/:name", s.handleCall)
	}

	compat := s.engine.Group(legacyPrefix)
	{
		compat.POST("/create_article", s.handleCreateArticle)
		compat.POST("/create_micro_post", s.handleCreateMicroPost)
		compat.GET("/health", s.handleLegacyHealth)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// Publishing runs for minutes, so there is no write timeout.
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), logging.Elapsed(start))
	}
}

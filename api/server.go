// Package api exposes the signing service over HTTP.
package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/georgepadayatti/esign/metrics"
	"github.com/georgepadayatti/esign/service"
	"github.com/georgepadayatti/esign/verification"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options configure a Server.
type Options struct {
	Service  *service.Service
	Verifier *verification.Service
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	// Mode is the gin mode; empty means release.
	Mode string
	// FilesDir, when set, is served under /files for the local object store.
	FilesDir string
}

// Server routes HTTP requests to the signing and verification services.
type Server struct {
	engine   *gin.Engine
	service  *service.Service
	verifier *verification.Service
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewServer builds the router.
func NewServer(opts Options) *Server {
	mode := opts.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:   gin.New(),
		service:  opts.Service,
		verifier: opts.Verifier,
		metrics:  opts.Metrics,
		logger:   logger.With(zap.String("component", "api")),
	}

	s.engine.Use(requestID())
	s.engine.Use(logRequest(s.logger))
	s.engine.Use(recoverPanic(s.logger))
	s.engine.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	if opts.FilesDir != "" {
		s.engine.Static("/files", opts.FilesDir)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "esign"})
	})
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.engine.GET("/verify/:id", s.verifyPage)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/documents/:id/sign", s.signDocument)
		v1.POST("/documents/:id/certificate", s.generateCertificate)
		v1.POST("/documents/:id/view", s.recordView)
		v1.GET("/verify/:id", s.verify)
	}
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

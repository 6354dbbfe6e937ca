// Package api serves the assistant tool endpoints and plugin manifest.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"divvy/pkg/portfolio"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Options configures the server
type Options struct {
	// PluginURL is the public base URL advertised in the manifest
	PluginURL string
	// AccountID is the plugin owner advertised in the manifest
	AccountID string
	// CORSOrigins lists allowed origins; "*" allows all
	CORSOrigins []string
	// MCP is mounted at /mcp when set
	MCP http.Handler
	Logger *zap.Logger
}

// Server wires the tool handlers to a gin router
type Server struct {
	router    *gin.Engine
	portfolio *portfolio.Portfolio
	opts      Options
	log       *zap.Logger
}

// New builds the router
func New(p *portfolio.Portfolio, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		router:    gin.New(),
		portfolio: p,
		opts:      opts,
		log:       opts.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(gin.Recovery())
	r.Use(configureCORS(s.opts.CORSOrigins))
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/icon.svg", s.icon)

	r.GET("/api/ai-plugin", s.manifest)
	r.GET("/.well-known/ai-plugin.json", s.manifest)

	tools := r.Group("/api/tools")
	{
		tools.GET("/get-balance", s.getBalance)
		tools.POST("/create-allowance", s.createAllowance)
		tools.POST("/remove-allowance", s.removeAllowance)
	}

	if s.opts.MCP != nil {
		r.Any("/mcp", gin.WrapH(s.opts.MCP))
	}
}

// Handler returns the router as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Package server exposes the query service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/ontograph/internal/logger"
)

// NewRouter registers every route on a fresh gin engine
func NewRouter(h *Handlers, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.GET("/terms", h.Terms)
		api.GET("/bfs", h.BFS)
		api.GET("/impact", h.Impact)
		api.GET("/path", h.Path)
		api.GET("/subgraph", h.Subgraph)
		api.GET("/ego", h.Ego)
		api.GET("/predicates/:predicate", h.ByPredicate)
	}
	return r
}

// Server is the HTTP adapter
type Server struct {
	Engine *gin.Engine
	log    *logger.Logger
}

// NewServer creates a server over q
func NewServer(q Querier, mode string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{Engine: NewRouter(NewHandlers(q, log), mode), log: log}
}

// Run serves addr until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

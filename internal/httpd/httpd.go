// Package httpd serves the Orchestrator's two admin routes: a
// liveness probe and a Prometheus scrape endpoint. It is the one
// surface of the teacher's HTTP stack worth keeping for this core —
// everything else (search, jobs, sources APIs) belongs to products
// built on top of the crawl engine, not the engine itself.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/metrics"
	"github.com/arlobridge/crawlcore/internal/runstate"
)

const shutdownTimeout = 10 * time.Second

// Server is the admin HTTP surface.
type Server struct {
	httpServer *http.Server
	log        logger.Interface
}

// New builds a gin engine with /healthz and /metrics and wraps it in
// an http.Server listening on addr.
func New(addr string, m *metrics.Metrics, run *runstate.State, log logger.Interface) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"pages_crawled": run.PagesCrawled(),
			"elapsed":       run.Elapsed().String(),
			"stopping":      run.Stopping(),
		})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: engine},
		log:        log,
	}
}

// Start runs the server in a background goroutine and returns a
// channel that receives at most one error if ListenAndServe fails for
// a reason other than a graceful Shutdown.
func (s *Server) Start() <-chan error {
	errChan := make(chan error, 1)
	go func() {
		s.log.Info("starting admin http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("httpd: listen and serve: %w", err)
		}
	}()
	return errChan
}

// Shutdown gracefully stops the server, bounded by shutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpd: shutdown: %w", err)
	}
	return nil
}

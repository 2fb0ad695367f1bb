// Package api serves a read-only view of a running scrape.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/pdpscrape/api/handler"
	"github.com/use-agent/pdpscrape/api/middleware"
	"github.com/use-agent/pdpscrape/config"
	"github.com/use-agent/pdpscrape/engine"
	"github.com/use-agent/pdpscrape/metrics"
)

// NewRouter creates the status router.
//
// Middleware chain:
//
//	Global:  Recovery
//	API:     Auth (if a token is set)
//
// Health stays outside auth so probes always work.
func NewRouter(cfg config.StatusConfig, progress *engine.Progress, m *metrics.Metrics, startTime time.Time) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(startTime))

	protected := r.Group("")
	protected.Use(middleware.Auth(cfg.Token))
	protected.GET("/api/v1/progress", handler.Progress(progress))
	if m != nil {
		protected.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	return r
}

// NewServer wraps the router in an http.Server listening on cfg.Addr.
func NewServer(cfg config.StatusConfig, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

package router

import (
	"github.com/deppfellow/station-api/internal/handler"
	"github.com/deppfellow/station-api/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerSystemRoutes registers the endpoints that are not part of the
// station data: banner, route index, health and Prometheus metrics.
func registerSystemRoutes(r *echo.Echo, s *server.Server, h *handler.Handlers) {
	r.GET("/", h.Health.Root)
	r.GET("/docs", h.Health.Docs)
	r.GET("/health", h.Health.CheckHealth)

	if obs := s.Config.Observability; obs != nil && !obs.Metrics.Enabled {
		return
	}

	r.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.Metrics, promhttp.HandlerOpts{
		Registry: s.Metrics,
	})))
}

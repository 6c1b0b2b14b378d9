package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/deppfellow/station-api/internal/middleware"
	"github.com/deppfellow/station-api/internal/server"
	"github.com/labstack/echo/v4"
)

const defaultHealthCheckTimeout = 5 * time.Second

// HealthHandler serves the system endpoints: the API banner, the route index
// and the health check used by monitors and load balancers.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

type RootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

type HealthResponse struct {
	API      string `json:"api"`
	Database string `json:"database"`
	Pool     string `json:"pool"`
}

type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

func (h *HealthHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, RootResponse{
		Message: "Space Station Management System API",
		Status:  "operational",
		Version: server.Version,
		Docs:    "/docs",
	})
}

// Docs lists every registered route.
func (h *HealthHandler) Docs(c echo.Context) error {
	routes := c.Echo().Routes()

	out := make([]RouteInfo, 0, len(routes))
	for _, r := range routes {
		// catch-all 404 routes are not endpoints
		if r.Method == echo.RouteNotFound {
			continue
		}
		out = append(out, RouteInfo{Method: r.Method, Path: r.Path})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})

	return c.JSON(http.StatusOK, out)
}

// CheckHealth pings the database and reports the pool mode. It answers 503
// when the database cannot be reached.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	response := HealthResponse{
		API:      "healthy",
		Database: "connected",
		Pool:     h.server.DB.Pool.Mode(),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.pingTimeout())
	defer cancel()

	if err := h.server.DB.Ping(ctx); err != nil {
		response.Database = "disconnected"

		logger.Error().
			Err(err).
			Str("pool_mode", response.Pool).
			Dur("response_time", time.Since(start)).
			Msg("database health check failed")

		if h.server.LoggerService != nil && h.server.LoggerService.GetApplication() != nil {
			h.server.LoggerService.GetApplication().RecordCustomEvent(
				"HealthCheckError",
				map[string]interface{}{
					"check_type":       "database",
					"operation":        "health_check",
					"error_type":       "database_unhealthy",
					"pool_mode":        response.Pool,
					"response_time_ms": time.Since(start).Milliseconds(),
					"error_message":    err.Error(),
				},
			)
		}

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	stats := h.server.DB.Pool.Stats()
	logger.Debug().
		Str("pool_mode", response.Pool).
		Int("open_connections", stats.OpenConnections).
		Int("in_use", stats.InUse).
		Int("idle", stats.Idle).
		Dur("response_time", time.Since(start)).
		Msg("database health check passed")

	return c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) pingTimeout() time.Duration {
	obs := h.server.Config.Observability
	if obs == nil || obs.HealthChecks.Timeout <= 0 {
		return defaultHealthCheckTimeout
	}
	return obs.HealthChecks.Timeout
}

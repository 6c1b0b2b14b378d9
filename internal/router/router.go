// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups,
// mapping specific paths to their corresponding handlers
package router

import (
	"github.com/deppfellow/station-api/internal/handler"
	"github.com/deppfellow/station-api/internal/middleware"
	"github.com/deppfellow/station-api/internal/server"
	"github.com/labstack/echo/v4"
)

// NewRouter builds the Echo instance with the global middleware chain, the
// error handler and every route.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middlewares.RateLimit.Limit(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	registerSystemRoutes(router, s, h)
	registerResourceRoutes(router, h)

	return router
}

func registerResourceRoutes(r *echo.Echo, h *handler.Handlers) {
	missions := r.Group("/missions")
	missions.GET("", h.Missions.ListMissions)
	missions.POST("", h.Missions.CreateMission)
	missions.PUT("/:id", h.Missions.UpdateMission)
	missions.DELETE("/:id", h.Missions.DeleteMission)

	experiments := r.Group("/experiments")
	experiments.GET("", h.Experiments.ListExperiments)
	experiments.POST("", h.Experiments.CreateExperiment)
	experiments.PUT("/:id", h.Experiments.UpdateExperiment)
	experiments.DELETE("/:id", h.Experiments.DeleteExperiment)
}

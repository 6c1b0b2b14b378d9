package middleware

import (
	"github.com/deppfellow/station-api/internal/logger"
	"github.com/deppfellow/station-api/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

// LoggerKey is used as the key for storing the request-scoped logger.
const LoggerKey = "logger"

// ContextEnhancer is a middleware helper that enriches request context.
//
// It builds a request-scoped logger with useful fields like:
//   - request_id
//   - method, path, ip
//   - trace.id/span.id (if New Relic transaction exists)
//
// It then stores that logger in:
//   - Echo context (c.Set), read back with GetLogger
//   - Go request context (zerolog's WithContext), read back with zerolog.Ctx
//     by services and repositories that only see a context.Context
type ContextEnhancer struct {
	server *server.Server
}

// NewContextEnhancer derives request loggers from s.Logger, so they carry
// the service-wide fields (service, environment) as well.
func NewContextEnhancer(s *server.Server) *ContextEnhancer {
	return &ContextEnhancer{server: s}
}

// EnhanceContext attaches the request-scoped logger to the request.
//
// Order matters: it must run after RequestID, otherwise request_id is empty,
// and after the New Relic middleware when that is enabled, otherwise there
// is no transaction to take trace.id and span.id from. The path field is the
// route template ("/missions/:id"), so log lines group per route rather than
// per id.
func (ce *ContextEnhancer) EnhanceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := GetRequestID(c)

			contextLogger := ce.server.Logger.With().
				Str("request_id", requestID).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("ip", c.RealIP()).
				Logger()

			if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
				contextLogger = logger.WithTraceContext(contextLogger, txn)
			}

			c.Set(LoggerKey, &contextLogger)

			ctx := contextLogger.WithContext(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetLogger returns the request-scoped logger stored by EnhanceContext.
//
// Code that runs before EnhanceContext (or in tests that skip it) gets a
// no-op logger instead of nil, so callers never need to check.
func GetLogger(c echo.Context) *zerolog.Logger {
	if logger, ok := c.Get(LoggerKey).(*zerolog.Logger); ok {
		return logger
	}

	logger := zerolog.Nop()
	return &logger
}

package handler

import (
	"time"

	"github.com/deppfellow/station-api/internal/middleware"
	"github.com/deppfellow/station-api/internal/server"
	"github.com/deppfellow/station-api/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Handler is the base handler type that holds shared application dependencies.
type Handler struct {
	server *server.Server
}

func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// HandlerFunc is a typed endpoint: it receives a bound and validated request
// payload and returns the response body or an error.
//
// Req is a pointer type, e.g. *model.CreateMissionRequest, because Echo's Bind
// needs a pointer to populate fields. Callers allocate a fresh payload for
// every request.
type HandlerFunc[Req validation.Validatable, Res any] func(c echo.Context, req Req) (Res, error)

// ResponseHandler writes a successful result and describes it for logs and
// New Relic.
type ResponseHandler interface {
	Handle(c echo.Context, result interface{}) error
	GetOperation() string
	AddAttributes(txn *newrelic.Transaction, result interface{})
}

// JSONResponseHandler writes the result as JSON with a fixed status.
type JSONResponseHandler struct {
	status int
}

func (h JSONResponseHandler) Handle(c echo.Context, result interface{}) error {
	return c.JSON(h.status, result)
}

func (h JSONResponseHandler) GetOperation() string {
	return "handler"
}

func (h JSONResponseHandler) AddAttributes(txn *newrelic.Transaction, result interface{}) {
	if txn != nil {
		txn.AddAttribute("response.status", h.status)
	}
}

// handleRequest is the shared pipeline: bind and validate, run the handler,
// then write the response. Both stages are timed and reported to the New
// Relic transaction when there is one.
func handleRequest[Req validation.Validatable](
	c echo.Context,
	req Req,
	handler func(c echo.Context, req Req) (interface{}, error),
	responseHandler ResponseHandler,
) error {
	start := time.Now()
	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", c.Path())
	}

	logger := middleware.GetLogger(c).With().
		Str("operation", responseHandler.GetOperation()).
		Str("method", c.Request().Method).
		Str("route", c.Path()).
		Logger()

	validated := time.Now()
	err := validation.BindAndValidate(c, req)
	validationDuration := time.Since(validated)
	recordStage(txn, "validation", validationDuration, err)

	if err != nil {
		logger.Warn().
			Err(err).
			Dur("validation_duration", validationDuration).
			Msg("request validation failed")
		return err
	}

	handled := time.Now()
	result, err := handler(c, req)
	handlerDuration := time.Since(handled)
	recordStage(txn, "handler", handlerDuration, err)

	if txn != nil {
		txn.AddAttribute("total.duration_ms", time.Since(start).Milliseconds())
	}

	if err != nil {
		logger.Warn().
			Err(err).
			Dur("handler_duration", handlerDuration).
			Dur("total_duration", time.Since(start)).
			Msg("handler execution failed")
		return err
	}

	if txn != nil {
		responseHandler.AddAttributes(txn, result)
	}

	logger.Debug().
		Dur("validation_duration", validationDuration).
		Dur("handler_duration", handlerDuration).
		Dur("total_duration", time.Since(start)).
		Msg("request completed successfully")

	return responseHandler.Handle(c, result)
}

// recordStage sets <stage>.status and <stage>.duration_ms on txn and notices
// err. A nil txn is ignored.
func recordStage(txn *newrelic.Transaction, stage string, took time.Duration, err error) {
	if txn == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
		txn.NoticeError(nrpkgerrors.Wrap(err))
	}

	txn.AddAttribute(stage+".status", status)
	txn.AddAttribute(stage+".duration_ms", took.Milliseconds())
}

// Handle adapts a typed HandlerFunc to echo.HandlerFunc with a JSON response.
func Handle[Req validation.Validatable, Res any](
	h Handler,
	handler HandlerFunc[Req, Res],
	status int,
	req Req,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, req, func(c echo.Context, req Req) (interface{}, error) {
			return handler(c, req)
		}, JSONResponseHandler{status: status})
	}
}

package handler

import (
	"net/http"

	"github.com/deppfellow/station-api/internal/model"
	"github.com/deppfellow/station-api/internal/server"
	"github.com/deppfellow/station-api/internal/service"
	"github.com/labstack/echo/v4"
)

type ExperimentHandler struct {
	Handler
	experiments *service.ExperimentService
}

func NewExperimentHandler(s *server.Server, experiments *service.ExperimentService) *ExperimentHandler {
	return &ExperimentHandler{
		Handler:  NewHandler(s),
		experiments: experiments,
	}
}

func (h *ExperimentHandler) ListExperiments(c echo.Context) error {
	return Handle(
		h.Handler,
		func(c echo.Context, req *model.ListExperimentsRequest) ([]model.Experiment, error) {
			return h.experiments.List(c.Request().Context())
		},
		http.StatusOK,
		&model.ListExperimentsRequest{},
	)(c)
}

func (h *ExperimentHandler) CreateExperiment(c echo.Context) error {
	return Handle(
		h.Handler,
		func(c echo.Context, req *model.CreateExperimentRequest) (model.ExperimentCreateResponse, error) {
			experiment, err := h.experiments.Create(c.Request().Context(), req.Input())
			if err != nil {
				return model.ExperimentCreateResponse{}, err
			}
			return model.NewExperimentCreateResponse(experiment), nil
		},
		http.StatusCreated,
		&model.CreateExperimentRequest{},
	)(c)
}

func (h *ExperimentHandler) UpdateExperiment(c echo.Context) error {
	return Handle(
		h.Handler,
		func(c echo.Context, req *model.UpdateExperimentRequest) (model.MessageResponse, error) {
			if err := h.experiments.Update(c.Request().Context(), req.ID, req.Patch()); err != nil {
				return model.MessageResponse{}, err
			}
			return model.ExperimentUpdated(req.ID), nil
		},
		http.StatusOK,
		&model.UpdateExperimentRequest{},
	)(c)
}

func (h *ExperimentHandler) DeleteExperiment(c echo.Context) error {
	return Handle(
		h.Handler,
		func(c echo.Context, req *model.DeleteExperimentRequest) (model.MessageResponse, error) {
			if err := h.experiments.Delete(c.Request().Context(), req.ID); err != nil {
				return model.MessageResponse{}, err
			}
			return model.ExperimentDeleted(req.ID), nil
		},
		http.StatusOK,
		&model.DeleteExperimentRequest{},
	)(c)
}

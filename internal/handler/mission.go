package handler

import (
	"net/http"

	"github.com/deppfellow/station-api/internal/model"
	"github.com/deppfellow/station-api/internal/server"
	"github.com/deppfellow/station-api/internal/service"
	"github.com/labstack/echo/v4"
)

type MissionHandler struct {
	Handler
	missions *service.MissionService
}

func NewMissionHandler(s *server.Server, missions *service.MissionService) *MissionHandler {
	return &MissionHandler{
		Handler:  NewHandler(s),
		missions: missions,
	}
}

func (h *MissionHandler) ListMissions(c echo.Context) error {
	return Handle(
		h.Handler,
		func(c echo.Context, req *model.ListMissionsRequest) ([]model.Mission, error) {
			return h.missions.List(c.Request().Context())
		},
		http.StatusOK,
		&model.ListMissionsRequest{},
	)(c)
}

func (h *MissionHandler) CreateMission(c echo.Context) error {
	return Handle(
		h.Handler,
		func(c echo.Context, req *model.CreateMissionRequest) (model.MissionCreateResponse, error) {
			mission, err := h.missions.Create(c.Request().Context(), req.Input())
			if err != nil {
				return model.MissionCreateResponse{}, err
			}
			return model.NewMissionCreateResponse(mission), nil
		},
		http.StatusCreated,
		&model.CreateMissionRequest{},
	)(c)
}

func (h *MissionHandler) UpdateMission(c echo.Context) error {
	return Handle(
		h.Handler,
		func(c echo.Context, req *model.UpdateMissionRequest) (model.MessageResponse, error) {
			if err := h.missions.Update(c.Request().Context(), req.ID, req.Patch()); err != nil {
				return model.MessageResponse{}, err
			}
			return model.MissionUpdated(req.ID), nil
		},
		http.StatusOK,
		&model.UpdateMissionRequest{},
	)(c)
}

func (h *MissionHandler) DeleteMission(c echo.Context) error {
	return Handle(
		h.Handler,
		func(c echo.Context, req *model.DeleteMissionRequest) (model.MessageResponse, error) {
			if err := h.missions.Delete(c.Request().Context(), req.ID); err != nil {
				return model.MessageResponse{}, err
			}
			return model.MissionDeleted(req.ID), nil
		},
		http.StatusOK,
		&model.DeleteMissionRequest{},
	)(c)
}

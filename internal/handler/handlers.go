package handler

import (
	"github.com/deppfellow/station-api/internal/server"
	"github.com/deppfellow/station-api/internal/service"
)

// Handlers groups every HTTP handler so the router receives a single value.
type Handlers struct {
	Health      *HealthHandler
	Missions    *MissionHandler
	Experiments *ExperimentHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(s),
		Missions:    NewMissionHandler(s, services.Missions),
		Experiments: NewExperimentHandler(s, services.Experiments),
	}
}

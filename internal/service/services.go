// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated data from the handler, performs
// business operations, and calls repository methods to interact
// with the data
package service

import (
	"github.com/deppfellow/station-api/internal/errs"
	"github.com/deppfellow/station-api/internal/model"
	"github.com/deppfellow/station-api/internal/repository"
	"github.com/deppfellow/station-api/internal/server"
)

type MissionService = ResourceService[model.Mission, model.MissionInput, model.MissionPatch]

type ExperimentService = ResourceService[model.Experiment, model.ExperimentInput, model.ExperimentPatch]

type Services struct {
	Missions    *MissionService
	Experiments *ExperimentService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	return &Services{
		Missions:    newResourceService[model.Mission, model.MissionInput, model.MissionPatch](s, errs.EntityMission, repos.Missions),
		Experiments: newResourceService[model.Experiment, model.ExperimentInput, model.ExperimentPatch](s, errs.EntityExperiment, repos.Experiments),
	}, nil
}

package repository

import (
	"github.com/deppfellow/station-api/internal/database"
	"github.com/deppfellow/station-api/internal/errs"
	"github.com/deppfellow/station-api/internal/model"
)

// ExperimentRepository stores experiment rows. Every experiment belongs to a crew member
// through crew_id.
type ExperimentRepository = ResourceRepository[model.Experiment, model.ExperimentInput, model.ExperimentPatch]

// experimentTable maps the experiment table (experiment_id plus its data columns) onto the
// Experiment model types.
var experimentTable = resourceTable[model.Experiment, model.ExperimentInput, model.ExperimentPatch]{
	entity:  errs.EntityExperiment,
	name:    "experiment",
	key:     "experiment_id",
	columns: []string{"title", "status"},
	values: func(in model.ExperimentInput) ([]any, int64) {
		return []any{in.Title, in.Status}, in.CrewID
	},
	patch: func(p model.ExperimentPatch) ([]database.Field, *int64) {
		return []database.Field{
			database.Set("title", p.Title),
			database.Set("status", p.Status),
			database.Set(crewIDColumn, p.CrewID),
		}, p.CrewID
	},
	scan: func(row database.Scanner) (model.Experiment, error) {
		var e model.Experiment
		err := row.Scan(&e.ExperimentID, &e.Title, &e.Status, &e.CrewID, &e.CrewName)
		return e, err
	},
	view: func(id int64, in model.ExperimentInput, crewName string) model.Experiment {
		return model.Experiment{
			ExperimentID: id,
			Title:        in.Title,
			Status:       in.Status,
			CrewID:       in.CrewID,
			CrewName:     crewName,
		}
	},
}

// NewExperimentRepository returns a repository that runs its queries through
// exec and checks crew members through crew.
func NewExperimentRepository(exec *database.Executor, dialect database.Dialect, crew *CrewRepository) *ExperimentRepository {
	return newResourceRepository(exec, dialect, crew, experimentTable)
}

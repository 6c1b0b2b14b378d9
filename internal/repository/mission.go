package repository

import (
	"github.com/deppfellow/station-api/internal/database"
	"github.com/deppfellow/station-api/internal/errs"
	"github.com/deppfellow/station-api/internal/model"
)

// MissionRepository stores mission rows. Every mission belongs to a crew member
// through crew_id.
type MissionRepository = ResourceRepository[model.Mission, model.MissionInput, model.MissionPatch]

// missionTable maps the mission table (mission_id plus its data columns) onto the
// Mission model types.
var missionTable = resourceTable[model.Mission, model.MissionInput, model.MissionPatch]{
	entity:  errs.EntityMission,
	name:    "mission",
	key:     "mission_id",
	columns: []string{"name", "purpose"},
	values: func(in model.MissionInput) ([]any, int64) {
		return []any{in.Name, in.Purpose}, in.CrewID
	},
	patch: func(p model.MissionPatch) ([]database.Field, *int64) {
		return []database.Field{
			database.Set("name", p.Name),
			database.Set("purpose", p.Purpose),
			database.Set(crewIDColumn, p.CrewID),
		}, p.CrewID
	},
	scan: func(row database.Scanner) (model.Mission, error) {
		var m model.Mission
		err := row.Scan(&m.MissionID, &m.Name, &m.Purpose, &m.CrewID, &m.CrewName)
		return m, err
	},
	view: func(id int64, in model.MissionInput, crewName string) model.Mission {
		return model.Mission{
			MissionID: id,
			Name:      in.Name,
			Purpose:   in.Purpose,
			CrewID:    in.CrewID,
			CrewName:  crewName,
		}
	},
}

// NewMissionRepository returns a repository that runs its queries through
// exec and checks crew members through crew.
func NewMissionRepository(exec *database.Executor, dialect database.Dialect, crew *CrewRepository) *MissionRepository {
	return newResourceRepository(exec, dialect, crew, missionTable)
}

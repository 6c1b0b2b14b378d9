package repository

import (
	"github.com/deppfellow/station-api/internal/database"
	"github.com/deppfellow/station-api/internal/server"
)

// Repositories is a container for all repository instances.
//
// Every repository shares the server's executor, so all of them draw
// connections from the same pool.
type Repositories struct {
	Crew        *CrewRepository
	Missions    *MissionRepository
	Experiments *ExperimentRepository
}

// NewRepositories constructs the repository container on s.DB.
func NewRepositories(s *server.Server) *Repositories {
	return NewRepositoriesWithDatabase(s.DB)
}

// NewRepositoriesWithDatabase constructs the container on db directly.
func NewRepositoriesWithDatabase(db *database.Database) *Repositories {
	crew := NewCrewRepository(db.Executor, db.Dialect)

	return &Repositories{
		Crew:        crew,
		Missions:    NewMissionRepository(db.Executor, db.Dialect, crew),
		Experiments: NewExperimentRepository(db.Executor, db.Dialect, crew),
	}
}

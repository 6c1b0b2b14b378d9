package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/deppfellow/station-api/internal/errs"
	"github.com/deppfellow/station-api/internal/model"
	"github.com/deppfellow/station-api/internal/repository"
	"github.com/deppfellow/station-api/internal/testing/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// These run the same operations against PostgreSQL ($n placeholders,
// RETURNING, FOR UPDATE / FOR SHARE). They are skipped unless
// STATION_TEST_POSTGRES_DSN is set.

func TestPostgresMissionLifecycle(t *testing.T) {
	db := dbtest.NewPostgres(t)
	repos := repository.NewRepositoriesWithDatabase(db)
	ctx := context.Background()

	first, err := repos.Missions.Create(ctx, model.MissionInput{Name: "Apollo", Purpose: "Test", CrewID: dbtest.Alice.ID})
	require.NoError(t, err)
	assert.Equal(t, "Alice", first.CrewName)

	second, err := repos.Missions.Create(ctx, model.MissionInput{Name: "Gemini", Purpose: "Dock", CrewID: dbtest.Bob.ID})
	require.NoError(t, err)
	assert.Greater(t, second.MissionID, first.MissionID)

	require.NoError(t, repos.Missions.Update(ctx, first.MissionID, model.MissionPatch{
		Purpose: ptr("Orbit"),
		CrewID:  ptr(dbtest.Bob.ID),
	}))

	list, err := repos.Missions.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.MissionID, list[0].MissionID)
	assert.Equal(t, model.Mission{
		MissionID: first.MissionID,
		Name:      "Apollo",
		Purpose:   "Orbit",
		CrewID:    dbtest.Bob.ID,
		CrewName:  "Bob",
	}, list[1])

	require.NoError(t, repos.Missions.Delete(ctx, second.MissionID))
	err = repos.Missions.Delete(ctx, second.MissionID)
	assert.True(t, errs.IsNotFound(err, errs.EntityMission))
}

func TestPostgresErrors(t *testing.T) {
	db := dbtest.NewPostgres(t)
	repos := repository.NewRepositoriesWithDatabase(db)
	ctx := context.Background()

	_, err := repos.Experiments.Create(ctx, model.ExperimentInput{Title: "Plants", Status: "Planned", CrewID: 999})
	assert.True(t, errs.IsNotFound(err, errs.EntityCrew))
	assert.Zero(t, dbtest.Count(t, db, "experiment"))

	e, err := repos.Experiments.Create(ctx, model.ExperimentInput{Title: "Plants", Status: "Planned", CrewID: dbtest.Alice.ID})
	require.NoError(t, err)

	err = repos.Experiments.Update(ctx, e.ExperimentID, model.ExperimentPatch{CrewID: ptr(int64(999))})
	assert.True(t, errs.IsNotFound(err, errs.EntityCrew))

	err = repos.Experiments.Update(ctx, e.ExperimentID, model.ExperimentPatch{})
	assert.True(t, errs.IsNoFields(err))

	err = repos.Experiments.Update(ctx, e.ExperimentID+100, model.ExperimentPatch{Status: ptr("Done")})
	assert.True(t, errs.IsNotFound(err, errs.EntityExperiment))
}

func TestPostgresConcurrentCreates(t *testing.T) {
	db := dbtest.NewPostgres(t)
	repos := repository.NewRepositoriesWithDatabase(db)
	ctx := context.Background()

	const n = 10
	missions := make([]model.Mission, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := range n {
		g.Go(func() error {
			m, err := repos.Missions.Create(gctx, model.MissionInput{
				Name:    fmt.Sprintf("mission-%d", i),
				Purpose: "load",
				CrewID:  dbtest.Alice.ID,
			})
			missions[i] = m
			return err
		})
	}
	require.NoError(t, g.Wait())

	list, err := repos.Missions.List(ctx)
	require.NoError(t, err)

	byID := make(map[int64]string, len(list))
	for _, m := range list {
		byID[m.MissionID] = m.Name
	}
	for i, m := range missions {
		assert.Equal(t, fmt.Sprintf("mission-%d", i), byID[m.MissionID])
	}
	assert.Len(t, byID, n)
}

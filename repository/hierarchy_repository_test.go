package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	testingutil "github.com/amirphl/workforce-ledger/testing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamRepositories(t *testing.T) {
	tdb := setupDB(t)
	fixtures := testingutil.NewTestFixtures(tdb)
	leaders := repository.NewTeamLeaderRepository(tdb.DB)
	managers := repository.NewTeamManagerRepository(tdb.DB)
	ctx := context.Background()

	mgr, err := fixtures.CreateTeamManager("Mgr1", "North")
	require.NoError(t, err)
	bob, err := fixtures.CreateTeamLeader("Bob", "", nil)
	require.NoError(t, err)
	_, err = fixtures.CreateInactiveTeamLeader("Ivy")
	require.NoError(t, err)

	t.Run("ManagerByName", func(t *testing.T) {
		got, err := managers.ByName(ctx, "Mgr1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, mgr.ID, got.ID)

		got, err = managers.ByName(ctx, "Ghost")
		require.NoError(t, err)
		assert.Nil(t, got)

		active, err := managers.ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("ManagerListActiveFirst", func(t *testing.T) {
		retired := &models.TeamManager{Name: "Old Mgr", IsActive: false}
		require.NoError(t, tdb.DB.Create(retired).Error)
		second, err := fixtures.CreateTeamManager("Mgr2", "South")
		require.NoError(t, err)

		all, err := managers.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []uint{mgr.ID, second.ID, retired.ID}, []uint{all[0].ID, all[1].ID, all[2].ID})
	})

	t.Run("ListActiveLeaders", func(t *testing.T) {
		active, err := leaders.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "Bob", active[0].Name)
	})

	t.Run("UpdateHierarchy", func(t *testing.T) {
		require.NoError(t, leaders.UpdateHierarchy(ctx, bob.ID, &mgr.ID, "Mgr1", "North"))
		require.NoError(t, leaders.UpdateHierarchy(ctx, bob.ID, nil, "", ""))

		got, err := leaders.ByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mgr1", got.TMName)
		assert.Equal(t, "North", got.GroupName)
		require.NotNil(t, got.TMID)
		assert.Equal(t, mgr.ID, *got.TMID)

		assert.Error(t, leaders.UpdateHierarchy(ctx, 9999, nil, "Mgr1", ""))
	})

	t.Run("ByIDMissing", func(t *testing.T) {
		got, err := leaders.ByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestAgentDirectoryRepository(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewAgentDirectoryRepository(tdb.DB)
	ctx := context.Background()

	require.NoError(t, repo.UpsertInfo(ctx, []*models.AgentInfo{
		{AgentName: "Alice", TLName: "Bob", TMName: "Mgr1", GroupName: "North"},
		{AgentName: "Carol", TLName: "Bob"},
	}))
	require.NoError(t, repo.UpsertInfo(ctx, []*models.AgentInfo{
		{AgentName: "Alice", TLName: "Kim", TMName: "Mgr2", GroupName: "South"},
	}))
	require.NoError(t, repo.UpsertInfo(ctx, nil))

	alice, err := repo.InfoByName(ctx, "Alice")
	require.NoError(t, err)
	require.NotNil(t, alice)
	assert.Equal(t, "Kim", alice.TLName)
	assert.Equal(t, "Mgr2", alice.TMName)
	assert.Equal(t, "South", alice.GroupName)

	var entries int64
	require.NoError(t, tdb.DB.Model(&models.AgentInfo{}).Count(&entries).Error)
	assert.Equal(t, int64(2), entries)

	require.NoError(t, repo.EnsureListed(ctx, []string{"Carol", "Alice"}))
	require.NoError(t, repo.EnsureListed(ctx, []string{"Alice", "Dan"}))
	names, err := repo.ListNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Carol", "Dan"}, names)
}

func TestIngestionRunRepository(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewIngestionRunRepository(tdb.DB)
	ctx := context.Background()

	first := &models.IngestionRun{UUID: uuid.New(), SourceFile: "jan.csv", Actor: "system", Status: models.IngestionRunStatusRunning}
	second := &models.IngestionRun{UUID: uuid.New(), SourceFile: "feb.csv", Actor: "system", Status: models.IngestionRunStatusRunning}
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	msg := "call log file is missing required columns"
	first.Status = models.IngestionRunStatusFailed
	first.Stage = "Failed"
	first.FailedStage = "Parsed"
	first.ErrorMessage = &msg
	first.FinishedAt = tsPtr("2024-03-01 09:00:00")
	require.NoError(t, repo.Finish(ctx, first))

	got, err := repo.ByUUID(ctx, first.UUID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.IngestionRunStatusFailed, got.Status)
	assert.Equal(t, "Failed", got.Stage)
	assert.Equal(t, "Parsed", got.FailedStage)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, msg, *got.ErrorMessage)
	require.NotNil(t, got.FinishedAt)

	missing, err := repo.ByUUID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	recent, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "feb.csv", recent[0].SourceFile)

	assert.Error(t, repo.Finish(ctx, &models.IngestionRun{}))
}

func TestActivityLogRepository(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewActivityLogRepository(tdb.DB)
	ctx := context.Background()

	require.NoError(t, repo.SaveBatch(ctx, []*models.ActivityLog{
		{User: "system", Msg: "uploaded and ingested file jan.csv (3 rows)", Date: ts("2024-03-01 09:00:00")},
		{User: "ops", Msg: "deleted all data of file jan.csv", Date: ts("2024-03-02 09:00:00")},
	}))

	user := "ops"
	logs, err := repo.ByFilter(ctx, models.ActivityLogFilter{User: &user}, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "deleted all data of file jan.csv", logs[0].Msg)

	contains := "ingested"
	logs, err = repo.ByFilter(ctx, models.ActivityLogFilter{MsgContains: &contains}, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "system", logs[0].User)

	logs, err = repo.ByFilter(ctx, models.ActivityLogFilter{DateAfter: tsPtr("2024-03-01 12:00:00")}, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "ops", logs[0].User)
}

func TestWithTransaction(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewActivityLogRepository(tdb.DB)
	ctx := context.Background()

	countLogs := func() int64 {
		var n int64
		require.NoError(t, tdb.DB.Model(&models.ActivityLog{}).Count(&n).Error)
		return n
	}

	t.Run("RollbackOnError", func(t *testing.T) {
		err := repository.WithTransaction(ctx, tdb.DB, func(txCtx context.Context) error {
			_, ok := repository.TxFromContext(txCtx)
			require.True(t, ok)
			require.NoError(t, repo.Save(txCtx, &models.ActivityLog{User: "system", Msg: "rolled back"}))
			return errors.New("abort")
		})
		assert.EqualError(t, err, "abort")
		assert.Zero(t, countLogs())
	})

	t.Run("RollbackOnPanic", func(t *testing.T) {
		err := repository.WithTransaction(ctx, tdb.DB, func(txCtx context.Context) error {
			require.NoError(t, repo.Save(txCtx, &models.ActivityLog{User: "system", Msg: "rolled back"}))
			panic("boom")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.Zero(t, countLogs())
	})

	t.Run("Commit", func(t *testing.T) {
		err := repository.WithTransaction(ctx, tdb.DB, func(txCtx context.Context) error {
			return repo.Save(txCtx, &models.ActivityLog{User: "system", Msg: "kept"})
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), countLogs())
	})

	_, ok := repository.TxFromContext(ctx)
	assert.False(t, ok)
}

package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	testingutil "github.com/amirphl/workforce-ledger/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(tdb *testingutil.TestDB) *HierarchyRegistry {
	return NewHierarchyRegistry(
		tdb.DB,
		repository.NewTeamLeaderRepository(tdb.DB),
		repository.NewTeamManagerRepository(tdb.DB),
		repository.NewCallLogRepository(tdb.DB),
		nopLogger(),
	)
}

func leaderRow(name, tmName, group, logTime string) *models.UpdatedCallLog {
	row := &models.UpdatedCallLog{
		AgentName:   name,
		Designation: models.DesignationTeamLeader,
		TLName:      models.LeaderSelf,
		TMName:      tmName,
		GroupName:   group,
	}
	if logTime != "" {
		row.LogTime = atPtr(logTime)
	}
	return row
}

func TestHierarchyRegistry_Lookup(t *testing.T) {
	tdb := setupDB(t)
	fixtures := testingutil.NewTestFixtures(tdb)
	ctx := context.Background()

	mgr, err := fixtures.CreateTeamManager("Mgr1", "North")
	require.NoError(t, err)
	first, err := fixtures.CreateTeamLeader("bob", "North", mgr)
	require.NoError(t, err)
	_, err = fixtures.CreateTeamLeader("Bob", "South", nil)
	require.NoError(t, err)
	_, err = fixtures.CreateInactiveTeamLeader("Ivy")
	require.NoError(t, err)

	registry := newTestRegistry(tdb)
	require.NoError(t, registry.Load(ctx))

	t.Run("CanonicalizedMatch", func(t *testing.T) {
		for _, name := range []string{"Bob", "bob", " BOB ", "Bob-P"} {
			tl, ok := registry.Lookup(name)
			require.True(t, ok, name)
			assert.Equal(t, first.ID, tl.ID, "oldest record wins for %q", name)
			assert.Equal(t, "Mgr1", tl.TMName)
		}
	})

	t.Run("InactiveIgnored", func(t *testing.T) {
		_, ok := registry.Lookup("Ivy")
		assert.False(t, ok)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, ok := registry.Lookup("Nobody")
		assert.False(t, ok)
	})

	assert.Equal(t, 1, registry.Len())
}

func TestHierarchyRegistry_Absorb(t *testing.T) {
	tdb := setupDB(t)
	fixtures := testingutil.NewTestFixtures(tdb)
	leaders := repository.NewTeamLeaderRepository(tdb.DB)
	ctx := context.Background()

	mgr, err := fixtures.CreateTeamManager("Mgr1", "North")
	require.NoError(t, err)
	_, err = fixtures.CreateTeamLeader("Bob", "", nil)
	require.NoError(t, err)
	_, err = fixtures.CreateTeamLeader("Kim", "East", mgr)
	require.NoError(t, err)

	registry := newTestRegistry(tdb)
	require.NoError(t, registry.Load(ctx))

	rows := []*models.UpdatedCallLog{
		leaderRow("Dana", "Mgr1", "North", "2024-03-01 09:00:00"),
		leaderRow("Dana", "Mgr1", "West", "2024-03-01 11:00:00"),
		leaderRow("Dana", "Mgr1", "Stale", "2024-03-01 10:00:00"),
		leaderRow("Eli", "Ghost Manager", "South", ""),
		leaderRow("Bob", "Mgr1", "North", "2024-03-01 09:00:00"),
		leaderRow("Kim", "Other", "Elsewhere", "2024-03-01 09:00:00"),
		{AgentName: "Carol", Designation: models.DesignationAgent, TLName: "Dana"},
	}

	created, err := registry.Absorb(ctx, rows)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "Dana", created[0].Name)
	assert.Equal(t, "Eli", created[1].Name)

	t.Run("CreatedFromNewestRow", func(t *testing.T) {
		dana, ok := registry.Lookup("Dana")
		require.True(t, ok)
		assert.Equal(t, "West", dana.GroupName)
		assert.Equal(t, "Mgr1", dana.TMName)
		require.NotNil(t, dana.TMID)
		assert.Equal(t, mgr.ID, *dana.TMID)
		assert.True(t, dana.IsActive)
	})

	t.Run("UnknownManagerNeverCreated", func(t *testing.T) {
		eli, ok := registry.Lookup("Eli")
		require.True(t, ok)
		assert.Equal(t, "Ghost Manager", eli.TMName)
		assert.Nil(t, eli.TMID)

		var managers int64
		require.NoError(t, tdb.DB.Model(&models.TeamManager{}).Count(&managers).Error)
		assert.Equal(t, int64(1), managers)
	})

	t.Run("ExistingLeaderBlanksFilled", func(t *testing.T) {
		bob, ok := registry.Lookup("Bob")
		require.True(t, ok)
		assert.Equal(t, "Mgr1", bob.TMName)
		assert.Equal(t, "North", bob.GroupName)

		stored, err := leaders.ByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mgr1", stored.TMName)
		assert.Equal(t, "North", stored.GroupName)
		require.NotNil(t, stored.TMID)
		assert.Equal(t, mgr.ID, *stored.TMID)
	})

	t.Run("ExistingLeaderValuesKept", func(t *testing.T) {
		kim, ok := registry.Lookup("Kim")
		require.True(t, ok)
		stored, err := leaders.ByID(ctx, kim.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mgr1", stored.TMName)
		assert.Equal(t, "East", stored.GroupName)
	})

	t.Run("AgentsIgnored", func(t *testing.T) {
		_, ok := registry.Lookup("Carol")
		assert.False(t, ok)
	})

	t.Run("SecondPassCreatesNothing", func(t *testing.T) {
		again, err := registry.Absorb(ctx, rows)
		require.NoError(t, err)
		assert.Empty(t, again)

		active, err := leaders.ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 4)
	})
}

func TestHierarchyRegistry_RetiredLeaderNotRecreated(t *testing.T) {
	tdb := setupDB(t)
	fixtures := testingutil.NewTestFixtures(tdb)
	leaders := repository.NewTeamLeaderRepository(tdb.DB)
	ctx := context.Background()

	mgr, err := fixtures.CreateTeamManager("M1", "G1")
	require.NoError(t, err)
	xavier, err := fixtures.CreateTeamLeader("Xavier", "G1", mgr)
	require.NoError(t, err)
	require.NoError(t, tdb.DB.Model(xavier).Update("is_active", false).Error)

	registry := newTestRegistry(tdb)
	require.NoError(t, registry.Load(ctx))

	_, ok := registry.Lookup("Xavier")
	assert.False(t, ok)
	retired, ok := registry.Retired("xavier")
	require.True(t, ok)
	assert.Equal(t, xavier.ID, retired.ID)

	created, err := registry.Absorb(ctx, []*models.UpdatedCallLog{
		leaderRow("Xavier", "", "", "2024-03-01 09:00:00"),
	})
	require.NoError(t, err)
	assert.Empty(t, created)

	all, err := leaders.ByFilter(ctx, models.TeamLeaderFilter{}, "id ASC", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)
	assert.Equal(t, "G1", all[0].GroupName)
	assert.Equal(t, "M1", all[0].TMName)

	_, ok = registry.Lookup("Xavier")
	assert.False(t, ok)
}

func TestHierarchyRegistry_ManagerMatchedByCanonicalName(t *testing.T) {
	tdb := setupDB(t)
	fixtures := testingutil.NewTestFixtures(tdb)
	ctx := context.Background()

	mgr, err := fixtures.CreateTeamManager("Mgr One", "North")
	require.NoError(t, err)

	registry := newTestRegistry(tdb)
	require.NoError(t, registry.Load(ctx))

	created, err := registry.Absorb(ctx, []*models.UpdatedCallLog{
		leaderRow("Dana", "mgr one", "North", "2024-03-01 09:00:00"),
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.NotNil(t, created[0].TMID)
	assert.Equal(t, mgr.ID, *created[0].TMID)
	assert.Equal(t, "mgr one", created[0].TMName)
}

func TestHierarchyRegistry_Preserve(t *testing.T) {
	tdb := setupDB(t)
	fixtures := testingutil.NewTestFixtures(tdb)
	callLogs := repository.NewCallLogRepository(tdb.DB)
	ctx := context.Background()

	mgr, err := fixtures.CreateTeamManager("Mgr1", "North")
	require.NoError(t, err)
	_, err = fixtures.CreateTeamLeader("Bob", "North", mgr)
	require.NoError(t, err)
	_, err = fixtures.CreateTeamLeader("Kim", "East", mgr)
	require.NoError(t, err)
	_, err = fixtures.CreateTeamLeader("Lee", "", nil)
	require.NoError(t, err)

	_, err = fixtures.CreateHistory(
		testingutil.HistoryRow{AgentName: "Bob", Designation: models.DesignationTeamLeader, TLName: models.LeaderSelf, LogTime: at("2024-03-01 09:00:00")},
		testingutil.HistoryRow{AgentName: "Bob", Designation: models.DesignationTeamLeader, TLName: models.LeaderSelf, LogTime: at("2024-03-02 09:00:00")},
		testingutil.HistoryRow{AgentName: "Kim", Designation: models.DesignationTeamLeader, TMName: "Mgr9", GroupName: "East", LogTime: at("2024-03-02 09:00:00")},
		testingutil.HistoryRow{AgentName: "Lee", Designation: models.DesignationTeamLeader, LogTime: at("2024-03-02 09:00:00")},
	)
	require.NoError(t, err)

	registry := newTestRegistry(tdb)
	require.NoError(t, registry.Load(ctx))

	updated, err := registry.Preserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	bob, err := callLogs.LatestForAgent(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "Mgr1", bob.TMName)
	assert.Equal(t, "North", bob.GroupName)

	name := "Bob"
	older, err := callLogs.ByFilter(ctx, models.CallLogFilter{AgentName: &name}, "log_time ASC", 1, 0)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Empty(t, older[0].TMName, "only the newest row is refitted")

	kim, err := callLogs.LatestForAgent(ctx, "Kim")
	require.NoError(t, err)
	assert.Equal(t, "Mgr9", kim.TMName, "populated fields are never overwritten")
}

package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/workforce-ledger/app/dto"
	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	testingutil "github.com/amirphl/workforce-ledger/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentStateFlow(t *testing.T) {
	tdb := setupDB(t)
	fixtures := testingutil.NewTestFixtures(tdb)
	callLogs := repository.NewCallLogRepository(tdb.DB)
	ctx := context.Background()

	_, err := fixtures.CreateHistory(
		testingutil.HistoryRow{AgentName: "Xavier", Designation: models.DesignationTeamLeader, TLName: models.LeaderSelf, GroupName: "G1", TMName: "M1", LogTime: at("2024-02-01 08:00:00")},
		testingutil.HistoryRow{AgentName: "Xavier", Designation: models.DesignationTeamManager, GroupName: "G1", Status: "OnLeave", LogTime: at("2024-03-05 08:00:00")},
	)
	require.NoError(t, err)
	_, err = fixtures.CreateTeamLeader("Xavier", "G1", nil)
	require.NoError(t, err)

	flow := NewAgentStateFlow(
		callLogs,
		NewHistoryResolver(callLogs, testLabels, 0, 0, nopLogger(), nil),
		newTestRegistry(tdb),
		nopLogger(),
	)

	t.Run("Latest", func(t *testing.T) {
		resp, err := flow.State(ctx, &dto.AgentStateRequest{AgentName: "xavier-p"})
		require.NoError(t, err)
		assert.Equal(t, "Xavier", resp.AgentName)
		assert.True(t, resp.Found)
		assert.True(t, resp.ActiveTL)
		assert.Equal(t, models.DesignationTeamManager, resp.Designation)
		assert.Equal(t, "OnLeave", resp.Status)
		require.NotNil(t, resp.LastSeen)
		assert.True(t, resp.LastSeen.Equal(at("2024-03-05 08:00:00")))
	})

	t.Run("AsOfIncludesRowAtThatInstant", func(t *testing.T) {
		asOf := at("2024-02-01 08:00:00")
		resp, err := flow.State(ctx, &dto.AgentStateRequest{AgentName: "Xavier", AsOf: &asOf})
		require.NoError(t, err)
		assert.True(t, resp.Found)
		assert.Equal(t, models.DesignationTeamLeader, resp.Designation)
		assert.Equal(t, "M1", resp.TMName)
		assert.Equal(t, models.StatusEmployee, resp.Status)
	})

	t.Run("AsOfBeforeFirstRow", func(t *testing.T) {
		asOf := at("2024-01-01 00:00:00")
		resp, err := flow.State(ctx, &dto.AgentStateRequest{AgentName: "Xavier", AsOf: &asOf})
		require.NoError(t, err)
		assert.False(t, resp.Found)
		assert.Empty(t, resp.Designation)
	})

	t.Run("UnknownAgent", func(t *testing.T) {
		resp, err := flow.State(ctx, &dto.AgentStateRequest{AgentName: "Nobody"})
		require.NoError(t, err)
		assert.False(t, resp.Found)
		assert.False(t, resp.ActiveTL)
	})

	t.Run("NameRequired", func(t *testing.T) {
		_, err := flow.State(ctx, &dto.AgentStateRequest{AgentName: " (deleted) "})
		assert.ErrorIs(t, err, ErrAgentNameMissing)

		_, err = flow.State(ctx, nil)
		assert.ErrorIs(t, err, ErrAgentNameMissing)
	})
}

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	testingutil "github.com/amirphl/workforce-ledger/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *testingutil.TestDB {
	t.Helper()
	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })
	return tdb
}

func ts(value string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func tsPtr(value string) *time.Time {
	t := ts(value)
	return &t
}

func updatedRow(name, source string, logTime *time.Time, tl string) *models.UpdatedCallLog {
	return &models.UpdatedCallLog{
		AgentName:     name,
		CallLogFields: models.CallLogFields{LogTime: logTime},
		Designation:   models.DesignationAgent,
		TLName:        tl,
		Status:        models.StatusEmployee,
		SourceFile:    source,
	}
}

func TestCallLogRepository_Latest(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewCallLogRepository(tdb.DB)
	ctx := context.Background()

	rows := []*models.UpdatedCallLog{
		updatedRow("Alice", "a.csv", tsPtr("2024-01-01 09:00:00"), "one"),
		updatedRow("Alice", "a.csv", tsPtr("2024-02-01 09:00:00"), "two"),
		updatedRow("Alice", "b.csv", nil, "undated"),
		updatedRow("Bob", "a.csv", tsPtr("2024-03-01 09:00:00"), "late"),
		updatedRow("Bob", "a.csv", nil, "undated"),
		updatedRow("Dan", "a.csv", nil, "only-undated"),
	}
	require.NoError(t, tdb.DB.Create(&rows).Error)

	byName := func(rows []*models.UpdatedCallLog) map[string]string {
		out := make(map[string]string, len(rows))
		for _, r := range rows {
			out[r.AgentName] = r.TLName
		}
		return out
	}

	t.Run("LatestBefore", func(t *testing.T) {
		got, err := repo.LatestBefore(ctx, []string{"Alice", "Bob", "Dan"}, ts("2024-02-15 00:00:00"))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Alice": "two"}, byName(got))

		got, err = repo.LatestBefore(ctx, nil, ts("2024-02-15 00:00:00"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("LatestAnySortsUndatedLast", func(t *testing.T) {
		got, err := repo.LatestAny(ctx, []string{"Alice", "Bob", "Dan"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Alice": "two", "Bob": "late", "Dan": "only-undated"}, byName(got))
	})

	t.Run("LatestPerAgentAll", func(t *testing.T) {
		got, err := repo.LatestPerAgent(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("LatestForAgent", func(t *testing.T) {
		row, err := repo.LatestForAgent(ctx, "Alice")
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, "two", row.TLName)

		row, err = repo.LatestForAgent(ctx, "Nobody")
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("FillHierarchy", func(t *testing.T) {
		row, err := repo.LatestForAgent(ctx, "Bob")
		require.NoError(t, err)

		require.NoError(t, repo.FillHierarchy(ctx, row.ID, "Mgr1", ""))
		require.NoError(t, repo.FillHierarchy(ctx, row.ID, "", ""))

		row, err = repo.LatestForAgent(ctx, "Bob")
		require.NoError(t, err)
		assert.Equal(t, "Mgr1", row.TMName)
		assert.Empty(t, row.GroupName)

		assert.Error(t, repo.FillHierarchy(ctx, 9999, "Mgr1", "North"))
	})

	t.Run("ByFilter", func(t *testing.T) {
		source := "a.csv"
		got, err := repo.ByFilter(ctx, models.CallLogFilter{SourceFile: &source, AgentNames: []string{"Alice"}}, "id ASC", 0, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "one", got[0].TLName)

		n, err := repo.Count(ctx, models.CallLogFilter{LogBefore: tsPtr("2024-02-01 09:00:00")})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		page, err := repo.ByFilter(ctx, models.CallLogFilter{}, "id ASC", 2, 1)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "two", page[0].TLName)
	})

	t.Run("RawRejectsDesignationFilter", func(t *testing.T) {
		designation := models.DesignationAgent
		_, err := repo.RawByFilter(ctx, models.CallLogFilter{Designation: &designation}, "", 0, 0)
		assert.Error(t, err)
	})
}

func TestCallLogRepository_Files(t *testing.T) {
	tdb := setupDB(t)
	repo := repository.NewCallLogRepository(tdb.DB)
	ctx := context.Background()

	raw := []*models.RawCallLog{
		{AgentName: "Alice-P", CallLogFields: models.CallLogFields{LogTime: tsPtr("2024-01-01 09:00:00")}, SourceFile: "jan.csv"},
		{AgentName: "Bob", CallLogFields: models.CallLogFields{LogTime: tsPtr("2024-01-01 17:00:00")}, SourceFile: "jan.csv"},
		{AgentName: "Bob", CallLogFields: models.CallLogFields{LogTime: tsPtr("2024-01-02 09:00:00")}, SourceFile: "jan.csv"},
		{AgentName: "Eve", SourceFile: "jan.csv"},
		{AgentName: "Carol", CallLogFields: models.CallLogFields{LogTime: tsPtr("2024-02-01 09:00:00")}, SourceFile: "feb.csv"},
	}
	require.NoError(t, tdb.DB.Create(&raw).Error)
	updated := []*models.UpdatedCallLog{
		updatedRow("Alice", "jan.csv", tsPtr("2024-01-01 09:00:00"), ""),
		updatedRow("Bob", "jan.csv", tsPtr("2024-01-01 17:00:00"), ""),
		updatedRow("Bob", "jan.csv", tsPtr("2024-01-02 09:00:00"), ""),
		updatedRow("Eve", "jan.csv", nil, ""),
		updatedRow("Carol", "feb.csv", tsPtr("2024-02-01 09:00:00"), ""),
	}
	require.NoError(t, tdb.DB.Create(&updated).Error)

	files, err := repo.SourceFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"feb.csv", "jan.csv"}, files)

	dates, err := repo.RawDates(ctx, "jan.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, dates)

	n, err := repo.CountRaw(ctx, models.CallLogFilter{LogDates: []string{"2024-01-01"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rawDeleted, updatedDeleted, err := repo.DeleteBySourceFile(ctx, "jan.csv", []string{"2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rawDeleted)
	assert.Equal(t, int64(2), updatedDeleted)

	rawDeleted, updatedDeleted, err = repo.DeleteBySourceFile(ctx, "jan.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rawDeleted, "undated rows go with the whole file")
	assert.Equal(t, int64(2), updatedDeleted)

	files, err = repo.SourceFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"feb.csv"}, files)
}

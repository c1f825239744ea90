package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/workforce-ledger/app/dto"
	"github.com/amirphl/workforce-ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMaintenanceFlow(t *testing.T) {
	h := newIngestionHarness(t)
	ctx := context.Background()

	_, err := h.ingest(ctx, "jan.csv", callLogCSV(
		[2]string{"Alice", "2024-01-01 09:00:00"},
		[2]string{"Bob", "2024-01-02 09:00:00"},
		[2]string{"Alice", "2024-01-03 09:00:00"},
	))
	require.NoError(t, err)
	_, err = h.ingest(ctx, "feb.csv", callLogCSV([2]string{"Carol", "2024-02-01 09:00:00"}))
	require.NoError(t, err)

	flow := NewFileMaintenanceFlow(
		h.callLogs,
		NewDirectorySync(h.callLogs, h.dir, 0, nopLogger()),
		NewRepositoryActivitySink(h.activity),
		nopLogger(),
	)

	t.Run("ListFiles", func(t *testing.T) {
		files, err := flow.ListFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"feb.csv", "jan.csv"}, files)
	})

	t.Run("ListDates", func(t *testing.T) {
		dates, err := flow.ListDates(ctx, "jan.csv")
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, dates)

		_, err = flow.ListDates(ctx, "  ")
		assert.ErrorIs(t, err, ErrSourceRequired)
	})

	t.Run("RejectsBadInput", func(t *testing.T) {
		_, err := flow.DeleteFile(ctx, nil)
		assert.ErrorIs(t, err, ErrSourceRequired)

		_, err = flow.DeleteFile(ctx, &dto.DeleteFileRequest{})
		var be *BusinessError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, "VALIDATION_ERROR", be.Code)

		_, err = flow.DeleteFile(ctx, &dto.DeleteFileRequest{SourceName: "jan.csv", Dates: []string{"2024-13-01"}})
		assert.ErrorIs(t, err, ErrInvalidDate)

		n, err := h.callLogs.CountRaw(ctx, models.CallLogFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("DeleteDates", func(t *testing.T) {
		resp, err := flow.DeleteFile(ctx, &dto.DeleteFileRequest{
			SourceName: "jan.csv",
			Dates:      []string{"2024-01-01", " 2024-01-02", "2024-01-01"},
			Actor:      "ops",
		})
		require.NoError(t, err)
		assert.Equal(t, "deleted data of file jan.csv for dates 2024-01-01, 2024-01-02", resp.Message)
		assert.Equal(t, int64(2), resp.RawRows)
		assert.Equal(t, int64(2), resp.UpdatedRows)

		dates, err := flow.ListDates(ctx, "jan.csv")
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-01-03"}, dates)

		actor := "ops"
		logs, err := h.activity.ByFilter(ctx, models.ActivityLogFilter{User: &actor}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, resp.Message, logs[0].Msg)
	})

	t.Run("DeleteWholeFile", func(t *testing.T) {
		resp, err := flow.DeleteFile(ctx, &dto.DeleteFileRequest{SourceName: "jan.csv"})
		require.NoError(t, err)
		assert.Equal(t, "deleted all data of file jan.csv", resp.Message)
		assert.Equal(t, int64(1), resp.RawRows)
		assert.Equal(t, int64(1), resp.UpdatedRows)

		files, err := flow.ListFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"feb.csv"}, files)

		source := "feb.csv"
		n, err := h.callLogs.Count(ctx, models.CallLogFilter{SourceFile: &source})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("DeleteUnknownFile", func(t *testing.T) {
		resp, err := flow.DeleteFile(ctx, &dto.DeleteFileRequest{SourceName: "missing.csv"})
		require.NoError(t, err)
		assert.Zero(t, resp.RawRows)
		assert.Zero(t, resp.UpdatedRows)
	})
}

package businessflow

import (
	"strings"
	"testing"
	"time"

	"github.com/amirphl/workforce-ledger/app/services"
	"github.com/amirphl/workforce-ledger/config"
	"github.com/amirphl/workforce-ledger/models"
	testingutil "github.com/amirphl/workforce-ledger/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testLabels = Labels{
	DefaultDesignation: models.DesignationAgent,
	DefaultRole:        models.RoleFullTimer,
	DefaultStatus:      models.StatusEmployee,
}

func testIngestionConfig() config.IngestionConfig {
	cfg := config.Default().Ingestion
	cfg.Workers = 2
	return cfg
}

// setupDB returns a migrated in-memory database closed at test end
func setupDB(t *testing.T) *testingutil.TestDB {
	t.Helper()
	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })
	return tdb
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func at(value string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func atPtr(value string) *time.Time {
	t := at(value)
	return &t
}

var csvHeader = strings.Join(services.RequiredColumns, ",")

// callLogCSV builds an export with the given agent names and log times, one row each
func callLogCSV(rows ...[2]string) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteString("\n")
	for i, r := range rows {
		b.WriteString(strings.Join([]string{
			r[0], "profile-" + r[0], "call-" + string(rune('a'+i)), r[1],
			"Call", "Completed", "Outbound", "Spring", "Spring", "vip",
		}, ","))
		b.WriteString("\n")
	}
	return b.String()
}

func record(name, logTime string) services.CallLogRecord {
	rec := services.CallLogRecord{
		AgentName: name,
		ProfileID: "profile-" + name,
		CallLogID: "call-" + name,
		LogType:   "Call",
		State:     "Completed",
		CallType:  "Outbound",
		Ember:     "vip",
	}
	if logTime != "" {
		rec.LogTime = atPtr(logTime)
	}
	return rec
}

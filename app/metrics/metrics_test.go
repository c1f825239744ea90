package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestionMetrics(t *testing.T) {
	m := NewIngestionMetrics()

	m.ObserveRun("completed", "Complete", 2*time.Second)
	m.ObserveRun("failed", "Parsed", time.Second)
	m.AddRows("raw_call_logs", 10)
	m.AddRows("raw_call_logs", 0)
	m.AddRows("updated_call_logs", 10)
	m.HistoryFallback()
	m.PostSyncFailed("directory_sync")
	m.PostSyncFailed("directory_sync")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("completed", "Complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("failed", "Parsed")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.rowsTotal.WithLabelValues("raw_call_logs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historyFallbacks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.postSyncFailures.WithLabelValues("directory_sync")))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess), 0.0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.runDuration))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *IngestionMetrics

	assert.NotPanics(t, func() {
		m.ObserveRun("completed", "Complete", time.Second)
		m.AddRows("raw_call_logs", 1)
		m.HistoryFallback()
		m.PostSyncFailed("directory_sync")
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.Push("http://localhost:9091", "job"))
}

func TestPush(t *testing.T) {
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewIngestionMetrics()
	m.AddRows("raw_call_logs", 3)

	require.NoError(t, m.Push(srv.URL, "workforce_ingest"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/workforce_ingest", path)

	assert.NoError(t, NewIngestionMetrics().Push("", "workforce_ingest"))
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewIngestionMetrics().Push(srv.URL, "workforce_ingest")
	assert.Error(t, err)
}

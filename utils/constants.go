package utils

import (
	"time"
)

// Ingestion constants
const (
	// HistoryBatchSize is the number of agent names per cutoff-bounded history query
	HistoryBatchSize = 500

	// HistoryFallbackBatchSize is the number of agent names per fallback history query
	HistoryFallbackBatchSize = 1000

	// InsertBatchSize is the row batch size for non-COPY bulk inserts
	InsertBatchSize = 1000

	// IngestLockKey is the cache key guarding the single-writer ingestion section
	IngestLockKey = "ingest:lock"

	// IngestLockTTL bounds how long a crashed writer can hold the ingestion lock
	IngestLockTTL = 30 * time.Minute

	// SystemActor is recorded in the activity log when no user is given
	SystemActor = "system"
)

// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/amirphl/workforce-ledger/config"
)

// Stage is a state of the ingestion state machine
type Stage string

const (
	StageStarted         Stage = "Started"
	StageParsed          Stage = "Parsed"
	StageValidated       Stage = "Validated"
	StageNormalized      Stage = "Normalized"
	StageHistoryResolved Stage = "HistoryResolved"
	StageReconciled      Stage = "Reconciled"
	StageLoaded          Stage = "Loaded"
	StageHierarchySynced Stage = "HierarchySynced"
	StageDirectorySynced Stage = "DirectorySynced"
	StageComplete        Stage = "Complete"
	StageFailed          Stage = "Failed"
)

// Labels are the values applied wherever an agent has no prior state
type Labels struct {
	DefaultDesignation string
	DefaultRole        string
	DefaultStatus      string
}

// LabelsFromConfig extracts the default labels from the ingestion configuration
func LabelsFromConfig(cfg config.IngestionConfig) Labels {
	return Labels{
		DefaultDesignation: cfg.DefaultDesignation,
		DefaultRole:        cfg.DefaultRole,
		DefaultStatus:      cfg.DefaultStatus,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

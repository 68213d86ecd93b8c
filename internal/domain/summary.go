package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary describes one completed scenario run.
type RunSummary struct {
	RunID         string       `json:"run_id"`
	Scenario      string       `json:"scenario"`
	Year          int          `json:"year"`
	SitesLoaded   int          `json:"sites_loaded"`
	SitesAssigned int          `json:"sites_assigned"`
	Rules         []RuleReport `json:"rules"`
	OutputPath    string       `json:"output_path"`
	// Totals holds the column sums of every replaced model-input column.
	Totals      map[string]float64 `json:"totals"`
	StartedAt   time.Time          `json:"started_at"`
	ProcessedAt time.Time          `json:"processed_at"`
}

// NewRunSummary starts a summary with a fresh run ID and the current time.
func NewRunSummary(scenario string, year int) *RunSummary {
	return &RunSummary{
		RunID:     uuid.NewString(),
		Scenario:  scenario,
		Year:      year,
		Totals:    make(map[string]float64),
		StartedAt: clock.Now(),
	}
}

// Finish stamps the completion time.
func (s *RunSummary) Finish() {
	s.ProcessedAt = clock.Now()
}

// Package status tracks when the dataset was last refreshed: a single-row
// timestamp record plus a per-run history.
package status

import (
	"time"

	"github.com/google/uuid"
)

// Status is the single-row freshness record the /status endpoint serves.
// It exists only after the first successful refresh.
type Status struct {
	ID          int64     `json:"id"`
	LastUpdated time.Time `json:"last_updated"`
}

// RefreshRun records one completed refresh pass and its write counts.
type RefreshRun struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Total      int       `json:"total"`
}

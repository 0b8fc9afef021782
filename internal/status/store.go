package status

import (
	"context"
	"time"
)

// Store persists the freshness record and the refresh run history. Touch and
// RecordRun honor a transaction carried in the context (pkg/platform/tx) so
// they commit together with the country rows they describe.
type Store interface {
	Get(ctx context.Context) (*Status, error)
	Touch(ctx context.Context, at time.Time) error
	RecordRun(ctx context.Context, run RefreshRun) error
	RecentRuns(ctx context.Context, limit int) ([]RefreshRun, error)
}

// Package store persists country records. Implementations come in pairs:
// an in-memory map for unit tests and a PostgreSQL store for production.
// Both return pkg/platform/sentinel errors; translation to domain errors
// happens in the service layer.
package store

import (
	"context"

	"globaldata/internal/country/models"
)

// UpsertResult reports how a batch write split between inserts and updates.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// Store is the persistence contract for country records. UpsertBatch honors
// a transaction carried in the context (pkg/platform/tx) so the refresh
// pipeline can write countries and status atomically.
type Store interface {
	UpsertBatch(ctx context.Context, countries []models.Country) (UpsertResult, error)
	List(ctx context.Context, q models.ListQuery) ([]models.Country, error)
	FindByName(ctx context.Context, name string) (*models.Country, error)
	Count(ctx context.Context) (int, error)
	TopByEstimatedGDP(ctx context.Context, n int) ([]models.Country, error)
}

// Package store provides access to the VoipNow billing database. The
// Postgres implementation is the production backend; the SQLite
// implementation backs offline and development runs.
package store

import (
	"context"
	"time"

	"github.com/e164networks/e164bill/internal/model"
)

// Store defines the persistence interface for the billing engine.
type Store interface {
	// DID inventory
	FetchDids(ctx context.Context, scope model.Scope, cutoff time.Time) ([]model.DidRecord, error)
	WriteClassifications(ctx context.Context, scope model.Scope, items []model.ClassifiedItem) (int64, error)
	FetchDidDetails(ctx context.Context) ([]model.DidDetail, error)

	// Product catalog
	FetchProductCatalog(ctx context.Context) ([]model.ProductRule, error)
	FetchPriceOverrides(ctx context.Context) ([]model.PriceOverride, error)
	SeedCatalog(ctx context.Context, rules []model.ProductRule) (int64, error)

	// Billing report inputs
	FetchCallRecords(ctx context.Context, year int, month time.Month) ([]model.CallRecord, error)
	FetchDidCounts(ctx context.Context) (resellers, clients map[int64]int, err error)
	FetchExtensionCounts(ctx context.Context) (resellers, clients map[int64]int, err error)
	FetchClients(ctx context.Context) ([]model.Client, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

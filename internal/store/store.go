package store

import (
	"context"

	"github.com/klgeo/outlets-cli/internal/model"
)

// RowQuerier runs a single read statement and returns its rows. The
// query pipeline's executor depends on this rather than the full Store.
type RowQuerier interface {
	QueryRows(ctx context.Context, query string) ([]model.Row, error)
}

// Store defines the persistence interface for the outlet directory.
// The serving path treats the outlets table as read-only; writes come
// from the scrape, import, and geocode commands.
type Store interface {
	RowQuerier

	// Outlets
	InsertOutlets(ctx context.Context, outlets []model.Outlet) (int, error)
	GetOutlet(ctx context.Context, id int64) (*model.Outlet, error)
	ListOutlets(ctx context.Context) ([]model.Outlet, error)
	ListUngeocoded(ctx context.Context, limit int) ([]model.Outlet, error)
	UpdateCoordinates(ctx context.Context, id int64, lat, lon float64) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

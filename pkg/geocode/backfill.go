package geocode

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/klgeo/outlets-cli/internal/model"
)

// Client is the lookup capability the backfiller needs; *Chain and
// single providers behind an adapter both satisfy it.
type Client interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// OutletSource is the slice of the store the backfiller touches.
type OutletSource interface {
	ListUngeocoded(ctx context.Context, limit int) ([]model.Outlet, error)
	UpdateCoordinates(ctx context.Context, id int64, lat, lon float64) error
}

// BackfillStats summarizes one backfill run.
type BackfillStats struct {
	Processed int64
	Matched   int64
	Unmatched int64
	Failed    int64
}

// Backfiller walks outlets missing coordinates and fills them in.
type Backfiller struct {
	client      Client
	source      OutletSource
	batchSize   int
	concurrency int
}

// NewBackfiller creates a Backfiller. Concurrency above the provider's
// rate limit just queues at the limiter, so the default stays small.
func NewBackfiller(client Client, source OutletSource, batchSize, concurrency int) *Backfiller {
	if batchSize <= 0 {
		batchSize = 50
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Backfiller{
		client:      client,
		source:      source,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// Run geocodes ungeocoded outlets in batches until none remain or the
// context is done. Per-outlet failures are counted, logged and skipped;
// only store listing errors or cancellation abort the run.
func (b *Backfiller) Run(ctx context.Context) (BackfillStats, error) {
	var stats BackfillStats

	for {
		if err := ctx.Err(); err != nil {
			return stats, eris.Wrap(err, "geocode: backfill canceled")
		}

		outlets, err := b.source.ListUngeocoded(ctx, b.batchSize)
		if err != nil {
			return stats, eris.Wrap(err, "geocode: list ungeocoded")
		}
		if len(outlets) == 0 {
			return stats, nil
		}

		matchedBefore := atomic.LoadInt64(&stats.Matched)

		eg, gCtx := errgroup.WithContext(ctx)
		eg.SetLimit(b.concurrency)
		for _, o := range outlets {
			eg.Go(func() error {
				b.backfillOne(gCtx, o, &stats)
				return gCtx.Err()
			})
		}
		if err := eg.Wait(); err != nil {
			return stats, eris.Wrap(err, "geocode: backfill canceled")
		}

		// Unmatched outlets stay ungeocoded, so a batch that matched
		// nothing would come back identical forever.
		if atomic.LoadInt64(&stats.Matched) == matchedBefore {
			return stats, nil
		}
		if len(outlets) < b.batchSize {
			return stats, nil
		}
	}
}

func (b *Backfiller) backfillOne(ctx context.Context, o model.Outlet, stats *BackfillStats) {
	atomic.AddInt64(&stats.Processed, 1)

	result, err := b.client.Geocode(ctx, o.Address)
	if err != nil {
		atomic.AddInt64(&stats.Failed, 1)
		zap.L().Warn("backfill: geocode failed",
			zap.Int64("outlet_id", o.ID),
			zap.String("address", o.Address),
			zap.Error(err),
		)
		return
	}
	if !result.Matched {
		atomic.AddInt64(&stats.Unmatched, 1)
		zap.L().Debug("backfill: no match",
			zap.Int64("outlet_id", o.ID),
			zap.String("address", o.Address),
		)
		return
	}

	if err := b.source.UpdateCoordinates(ctx, o.ID, result.Latitude, result.Longitude); err != nil {
		atomic.AddInt64(&stats.Failed, 1)
		zap.L().Warn("backfill: store update failed",
			zap.Int64("outlet_id", o.ID),
			zap.Error(err),
		)
		return
	}
	atomic.AddInt64(&stats.Matched, 1)
}

package geocode

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klgeo/outlets-cli/internal/model"
)

// fakeSource is an in-memory OutletSource tracking coordinate updates.
type fakeSource struct {
	mu      sync.Mutex
	outlets map[int64]model.Outlet
	updated map[int64][2]float64
	listErr error
}

func newFakeSource(outlets ...model.Outlet) *fakeSource {
	s := &fakeSource{
		outlets: make(map[int64]model.Outlet),
		updated: make(map[int64][2]float64),
	}
	for _, o := range outlets {
		s.outlets[o.ID] = o
	}
	return s
}

func (s *fakeSource) ListUngeocoded(_ context.Context, limit int) ([]model.Outlet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []model.Outlet
	for id, o := range s.outlets {
		if _, done := s.updated[id]; done {
			continue
		}
		out = append(out, o)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fakeSource) UpdateCoordinates(_ context.Context, id int64, lat, lon float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated[id] = [2]float64{lat, lon}
	return nil
}

// clientFunc adapts a function to Client.
type clientFunc func(ctx context.Context, address string) (*Result, error)

func (f clientFunc) Geocode(ctx context.Context, address string) (*Result, error) {
	return f(ctx, address)
}

func TestBackfillMatchesAll(t *testing.T) {
	src := newFakeSource(
		model.Outlet{ID: 1, Name: "Subway KLCC", Address: "Suria KLCC"},
		model.Outlet{ID: 2, Name: "Subway Bangsar", Address: "Jalan Telawi"},
	)
	client := clientFunc(func(_ context.Context, _ string) (*Result, error) {
		return &Result{Matched: true, Latitude: 3.1, Longitude: 101.6}, nil
	})

	b := NewBackfiller(client, src, 10, 2)
	stats, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Processed)
	assert.Equal(t, int64(2), stats.Matched)
	assert.Len(t, src.updated, 2)
	assert.Equal(t, [2]float64{3.1, 101.6}, src.updated[1])
}

func TestBackfillCountsMissesAndStops(t *testing.T) {
	src := newFakeSource(
		model.Outlet{ID: 1, Address: "unknowable"},
		model.Outlet{ID: 2, Address: "also unknowable"},
	)
	calls := 0
	var mu sync.Mutex
	client := clientFunc(func(_ context.Context, _ string) (*Result, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return &Result{Matched: false}, nil
	})

	b := NewBackfiller(client, src, 10, 1)
	stats, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Unmatched)
	assert.Zero(t, stats.Matched)
	// One pass over the batch, then stop: no progress means no retry loop.
	assert.Equal(t, 2, calls)
	assert.Empty(t, src.updated)
}

func TestBackfillCountsFailuresWithoutAborting(t *testing.T) {
	src := newFakeSource(
		model.Outlet{ID: 1, Address: "good"},
		model.Outlet{ID: 2, Address: "bad"},
	)
	client := clientFunc(func(_ context.Context, address string) (*Result, error) {
		if address == "bad" {
			return nil, eris.New("provider exploded")
		}
		return &Result{Matched: true, Latitude: 1, Longitude: 2}, nil
	})

	b := NewBackfiller(client, src, 10, 1)
	stats, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Matched)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Len(t, src.updated, 1)
}

func TestBackfillDrainsMultipleBatches(t *testing.T) {
	outlets := make([]model.Outlet, 5)
	for i := range outlets {
		outlets[i] = model.Outlet{ID: int64(i + 1), Address: "addr"}
	}
	src := newFakeSource(outlets...)
	client := clientFunc(func(_ context.Context, _ string) (*Result, error) {
		return &Result{Matched: true, Latitude: 1, Longitude: 2}, nil
	})

	b := NewBackfiller(client, src, 2, 2)
	stats, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Matched)
	assert.Len(t, src.updated, 5)
}

func TestBackfillListError(t *testing.T) {
	src := newFakeSource()
	src.listErr = eris.New("store offline")
	b := NewBackfiller(clientFunc(func(context.Context, string) (*Result, error) {
		return nil, nil
	}), src, 10, 1)

	_, err := b.Run(context.Background())
	assert.Error(t, err)
}

func TestBackfillCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newFakeSource(model.Outlet{ID: 1, Address: "addr"})
	b := NewBackfiller(clientFunc(func(context.Context, string) (*Result, error) {
		return &Result{Matched: true}, nil
	}), src, 10, 1)

	_, err := b.Run(ctx)
	assert.Error(t, err)
}

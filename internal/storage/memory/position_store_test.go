package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/storage"
)

func newPosition(symbol string, entry time.Time) *domain.Position {
	return &domain.Position{
		AssetClass:  domain.AssetNasdaq,
		AssetSymbol: symbol,
		Type:        domain.Long,
		EntryPrice:  100,
		Quantity:    1,
		Leverage:    1,
		EntryTime:   entry,
		Status:      domain.StatusOpen,
		CreatedAt:   entry,
		UpdatedAt:   entry,
	}
}

func TestPositionStore_InsertGet(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	p := newPosition("AAPL", time.Now())
	require.NoError(t, store.Insert(ctx, p))
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, int64(1), p.Version)

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, *p, got)

	_, err = store.Get(ctx, 99)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPositionStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	notes := "original"
	p := newPosition("AAPL", time.Now())
	p.Notes = &notes
	require.NoError(t, store.Insert(ctx, p))

	notes = "mutated"
	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", *got.Notes)

	*got.Notes = "again"
	again, _ := store.Get(ctx, p.ID)
	assert.Equal(t, "original", *again.Notes)
}

func TestPositionStore_ListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := newPosition("AAPL", base)
	newer := newPosition("MSFT", base.Add(time.Hour))
	tie := newPosition("AAPL", base.Add(time.Hour))
	tie.Status = domain.StatusClosed
	for _, p := range []*domain.Position{older, newer, tie} {
		require.NoError(t, store.Insert(ctx, p))
	}

	all, err := store.List(ctx, storage.PositionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{tie.ID, newer.ID, older.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	open, err := store.List(ctx, storage.PositionFilter{Status: domain.StatusOpen})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	aapl, err := store.List(ctx, storage.PositionFilter{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, aapl, 2)
}

func TestPositionStore_VersionGuard(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	p := newPosition("AAPL", time.Now())
	require.NoError(t, store.Insert(ctx, p))

	stale := *p
	p.Quantity = 5
	require.NoError(t, store.Update(ctx, p))
	assert.Equal(t, int64(2), p.Version)

	stale.Quantity = 7
	assert.True(t, errors.Is(store.Update(ctx, &stale), storage.ErrConflict))
	assert.True(t, errors.Is(store.Delete(ctx, p.ID, 1), storage.ErrConflict))

	require.NoError(t, store.Delete(ctx, p.ID, p.Version))
	assert.True(t, errors.Is(store.Delete(ctx, p.ID, p.Version), storage.ErrNotFound))

	missing := newPosition("X", time.Now())
	missing.ID = 42
	assert.True(t, errors.Is(store.Update(ctx, missing), storage.ErrNotFound))
}

func TestSignalLog_Recent(t *testing.T) {
	ctx := context.Background()
	log := NewSignalLog()

	for _, s := range []domain.Signal{
		{Symbol: "AAPL", Kind: domain.SignalBuy, ModelVersion: "1.0.0"},
		{Symbol: "MSFT", Kind: domain.SignalHold, ModelVersion: "1.0.0-dummy"},
		{Symbol: "AAPL", Kind: domain.SignalSell, ModelVersion: "1.0.0"},
	} {
		rec, err := log.Append(ctx, s)
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
	}

	recent, err := log.Recent(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.SignalSell, recent[0].Signal.Kind)
	assert.True(t, recent[1].Degraded)

	aapl, err := log.Recent(ctx, "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, aapl, 2)
}

package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/storage"
)

func openTestDB(t *testing.T) *PositionStore {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return NewPositionStore(db)
}

func samplePosition(symbol string, entry time.Time) *domain.Position {
	notes := "first entry"
	return &domain.Position{
		AssetClass:  domain.AssetNasdaq,
		AssetSymbol: symbol,
		Type:        domain.Short,
		EntryPrice:  250.5,
		Quantity:    3,
		Leverage:    2,
		EntryTime:   entry,
		Status:      domain.StatusOpen,
		Notes:       &notes,
		CreatedAt:   entry,
		UpdatedAt:   entry,
	}
}

func TestPositionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	entry := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	p := samplePosition("NVDA", entry)
	require.NoError(t, store.Insert(ctx, p))
	assert.NotZero(t, p.ID)
	assert.Equal(t, int64(1), p.Version)

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Short, got.Type)
	assert.Equal(t, 250.5, got.EntryPrice)
	assert.True(t, entry.Equal(got.EntryTime))
	assert.True(t, entry.Equal(got.UpdatedAt))
	assert.Nil(t, got.ExitPrice)
	assert.Nil(t, got.ExitTime)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "first entry", *got.Notes)

	_, err = store.Get(ctx, p.ID+100)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPositionStore_UpdateVersioned(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	entry := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	p := samplePosition("NVDA", entry)
	require.NoError(t, store.Insert(ctx, p))
	stale := *p

	exit := 240.0
	exitTime := entry.Add(48 * time.Hour)
	p.ExitPrice = &exit
	p.ExitTime = &exitTime
	p.Status = domain.StatusClosed
	p.UpdatedAt = exitTime
	p.Notes = nil
	require.NoError(t, store.Update(ctx, p))
	assert.Equal(t, int64(2), p.Version)

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, got.Status)
	require.NotNil(t, got.ExitPrice)
	assert.Equal(t, 240.0, *got.ExitPrice)
	require.NotNil(t, got.ExitTime)
	assert.True(t, exitTime.Equal(*got.ExitTime))
	assert.Nil(t, got.Notes)
	assert.Equal(t, int64(2), got.Version)

	assert.True(t, errors.Is(store.Update(ctx, &stale), storage.ErrConflict))

	ghost := samplePosition("GHOST", entry)
	ghost.ID = 999
	assert.True(t, errors.Is(store.Update(ctx, ghost), storage.ErrNotFound))
}

func TestPositionStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []int64
	for i, sym := range []string{"AAPL", "MSFT", "AAPL"} {
		p := samplePosition(sym, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.Insert(ctx, p))
		ids = append(ids, p.ID)
	}

	all, err := store.List(ctx, storage.PositionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	aapl, err := store.List(ctx, storage.PositionFilter{Symbol: "AAPL", Status: domain.StatusOpen})
	require.NoError(t, err)
	assert.Len(t, aapl, 2)

	closed, err := store.List(ctx, storage.PositionFilter{Status: domain.StatusClosed})
	require.NoError(t, err)
	assert.Empty(t, closed)

	assert.True(t, errors.Is(store.Delete(ctx, ids[1], 7), storage.ErrConflict))
	require.NoError(t, store.Delete(ctx, ids[1], 1))
	assert.True(t, errors.Is(store.Delete(ctx, ids[1], 1), storage.ErrNotFound))

	require.NoError(t, store.Ping(ctx))
}

func TestSignalLog(t *testing.T) {
	ctx := context.Background()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	log := NewSignalLog(db)

	price := 64000.0
	ind := domain.IndicatorSet{RSI: 61.2, MACD: 12.5, BBUpper: 66000, BBMiddle: 64000, BBLower: 62000, VolumeRatio: 1.4, Volatility: 0.02}
	first, err := log.Append(ctx, domain.Signal{
		Symbol: "BTC_USD", Kind: domain.SignalBuy, Confidence: 0.72,
		PredictedDirection: domain.DirectionUp, ModelVersion: "1.0.0",
		Timestamp: time.Now().UTC(), CurrentPrice: &price, Indicators: ind,
	})
	require.NoError(t, err)
	assert.Len(t, first.ID, 36)

	_, err = log.Append(ctx, domain.Signal{
		Symbol: "AAPL", Kind: domain.SignalHold, Confidence: 0.6,
		PredictedDirection: domain.DirectionNeutral, ModelVersion: "1.0.0-dummy",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	recent, err := log.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "AAPL", recent[0].Signal.Symbol)
	assert.True(t, recent[0].Degraded)

	btc, err := log.Recent(ctx, "BTC_USD", 0)
	require.NoError(t, err)
	require.Len(t, btc, 1)
	assert.Equal(t, ind, btc[0].Signal.Indicators)
	require.NotNil(t, btc[0].Signal.CurrentPrice)
	assert.Equal(t, price, *btc[0].Signal.CurrentPrice)
	assert.False(t, btc[0].Degraded)
}

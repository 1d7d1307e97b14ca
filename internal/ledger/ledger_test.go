package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/logger"
	"github.com/camuig/paper-desk/internal/storage/memory"
)

type eventLog struct {
	mu     sync.Mutex
	events []EventKind
}

func (e *eventLog) ObservePosition(kind EventKind, _ domain.Position) {
	e.mu.Lock()
	e.events = append(e.events, kind)
	e.mu.Unlock()
}

type stubPrices map[string]float64

func (s stubPrices) CurrentPrice(_ context.Context, ref domain.AssetRef) (float64, error) {
	p, ok := s[ref.Symbol]
	if !ok {
		return 0, fmt.Errorf("%w: no quote for %s", domain.ErrUnavailable, ref.Symbol)
	}
	return p, nil
}

func ptr[T any](v T) *T { return &v }

func newTestLedger(opts ...Option) (*Ledger, *time.Time) {
	now := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	clock := &now
	opts = append([]Option{WithClock(func() time.Time { return *clock })}, opts...)
	return New(memory.NewPositionStore(), logger.Nop(), opts...), clock
}

func longAAPL() CreateRequest {
	return CreateRequest{
		AssetClass:   domain.AssetNasdaq,
		AssetSymbol:  "AAPL",
		PositionType: domain.Long,
		EntryPrice:   100,
		Quantity:     10,
		Leverage:     ptr(2.0),
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	events := &eventLog{}
	l, clock := newTestLedger(WithObserver(events))

	p, err := l.Create(ctx, longAAPL())
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, domain.StatusOpen, p.Status)
	assert.Equal(t, *clock, p.EntryTime)
	assert.Equal(t, *clock, p.CreatedAt)
	assert.Equal(t, 2.0, p.Leverage)
	assert.Nil(t, p.ExitPrice)
	assert.Equal(t, []EventKind{EventOpened}, events.events)

	req := longAAPL()
	req.Leverage = nil
	req.AssetSymbol = " msft "
	p, err = l.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Leverage)
	assert.Equal(t, "MSFT", p.AssetSymbol)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger()

	cases := map[string]func(r *CreateRequest){
		"zero entry price":   func(r *CreateRequest) { r.EntryPrice = 0 },
		"negative quantity":  func(r *CreateRequest) { r.Quantity = -1 },
		"explicit zero lev":  func(r *CreateRequest) { r.Leverage = ptr(0.0) },
		"leverage too low":   func(r *CreateRequest) { r.Leverage = ptr(0.5) },
		"leverage too high":  func(r *CreateRequest) { r.Leverage = ptr(101.0) },
		"bad position type":  func(r *CreateRequest) { r.PositionType = "SIDEWAYS" },
		"unknown assetclass": func(r *CreateRequest) { r.AssetClass = "FOREX" },
		"empty symbol":       func(r *CreateRequest) { r.AssetSymbol = "  " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := longAAPL()
			mutate(&req)
			_, err := l.Create(ctx, req)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
		})
	}

	all, err := l.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLeverageBoundsAccepted(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger()
	for _, lev := range []float64{1, 100} {
		req := longAAPL()
		req.Leverage = ptr(lev)
		_, err := l.Create(ctx, req)
		assert.NoError(t, err)
	}
}

func TestGetNotFound(t *testing.T) {
	l, _ := newTestLedger()
	_, err := l.Get(context.Background(), 42)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLedger()

	first, err := l.Create(ctx, longAAPL())
	require.NoError(t, err)
	*clock = clock.Add(time.Minute)
	second, err := l.Create(ctx, longAAPL())
	require.NoError(t, err)
	_, err = l.Close(ctx, first.ID, CloseRequest{ExitPrice: 101})
	require.NoError(t, err)

	all, err := l.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	open, err := l.List(ctx, domain.StatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	_, err = l.List(ctx, "PENDING")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLedger()

	p, err := l.Create(ctx, longAAPL())
	require.NoError(t, err)

	*clock = clock.Add(time.Hour)
	updated, err := l.Update(ctx, p.ID, UpdateRequest{Quantity: ptr(4.0)})
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.Quantity)
	assert.Equal(t, 2.0, updated.Leverage)
	assert.Nil(t, updated.Notes)
	assert.Equal(t, *clock, updated.UpdatedAt)
	assert.Equal(t, p.CreatedAt, updated.CreatedAt)

	updated, err = l.Update(ctx, p.ID, UpdateRequest{Leverage: ptr(5.0), Notes: ptr("scale in")})
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.Quantity)
	assert.Equal(t, 5.0, updated.Leverage)
	assert.Equal(t, "scale in", *updated.Notes)

	_, err = l.Update(ctx, p.ID, UpdateRequest{Quantity: ptr(0.0)})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = l.Update(ctx, 999, UpdateRequest{Quantity: ptr(1.0)})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCloseFreezesEconomics(t *testing.T) {
	ctx := context.Background()
	events := &eventLog{}
	l, clock := newTestLedger(WithObserver(events))

	p, err := l.Create(ctx, longAAPL())
	require.NoError(t, err)

	*clock = clock.Add(24 * time.Hour)
	closed, err := l.Close(ctx, p.ID, CloseRequest{ExitPrice: 95})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	require.NotNil(t, closed.ExitPrice)
	assert.Equal(t, 95.0, *closed.ExitPrice)
	require.NotNil(t, closed.ExitTime)
	assert.Equal(t, *clock, *closed.ExitTime)

	_, err = l.Update(ctx, p.ID, UpdateRequest{Quantity: ptr(20.0)})
	assert.True(t, errors.Is(err, domain.ErrIllegalTransition))
	_, err = l.Update(ctx, p.ID, UpdateRequest{Leverage: ptr(3.0)})
	assert.True(t, errors.Is(err, domain.ErrIllegalTransition))

	stored, err := l.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, stored.Quantity)
	assert.Equal(t, 2.0, stored.Leverage)

	noted, err := l.Update(ctx, p.ID, UpdateRequest{Notes: ptr("stopped out")})
	require.NoError(t, err)
	assert.Equal(t, "stopped out", *noted.Notes)
	assert.Equal(t, domain.StatusClosed, noted.Status)

	_, err = l.Close(ctx, p.ID, CloseRequest{ExitPrice: 90})
	assert.True(t, errors.Is(err, domain.ErrIllegalTransition))

	assert.Equal(t, []EventKind{EventOpened, EventClosed, EventUpdated}, events.events)
}

func TestCloseNotes(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger()

	req := longAAPL()
	req.Notes = ptr("entry note")
	p, err := l.Create(ctx, req)
	require.NoError(t, err)

	closed, err := l.Close(ctx, p.ID, CloseRequest{ExitPrice: 120})
	require.NoError(t, err)
	assert.Equal(t, "entry note", *closed.Notes)

	q, err := l.Create(ctx, req)
	require.NoError(t, err)
	closed, err = l.Close(ctx, q.ID, CloseRequest{ExitPrice: 120, Notes: ptr("target hit")})
	require.NoError(t, err)
	assert.Equal(t, "target hit", *closed.Notes)

	_, err = l.Close(ctx, q.ID+1, CloseRequest{ExitPrice: 120})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = l.Close(ctx, q.ID, CloseRequest{ExitPrice: -1})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger()

	p, err := l.Create(ctx, longAAPL())
	require.NoError(t, err)
	require.NoError(t, l.Delete(ctx, p.ID))
	assert.True(t, errors.Is(l.Delete(ctx, p.ID), domain.ErrNotFound))

	q, err := l.Create(ctx, longAAPL())
	require.NoError(t, err)
	_, err = l.Close(ctx, q.ID, CloseRequest{ExitPrice: 99})
	require.NoError(t, err)
	err = l.Delete(ctx, q.ID)
	assert.True(t, errors.Is(err, domain.ErrIllegalTransition))
	assert.False(t, errors.Is(err, domain.ErrNotFound))

	_, err = l.Get(ctx, q.ID)
	assert.NoError(t, err)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger()

	p, err := l.Create(ctx, longAAPL())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(q float64) {
			defer wg.Done()
			if _, err := l.Update(ctx, p.ID, UpdateRequest{Quantity: ptr(q)}); err != nil {
				errs <- err
			}
		}(float64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected update error: %v", err)
	}

	stored, err := l.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(51), stored.Version)
}

func TestOpenWithPnL(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger()

	aapl, err := l.Create(ctx, longAAPL())
	require.NoError(t, err)

	short := CreateRequest{
		AssetClass: domain.AssetCrypto, AssetSymbol: "BTC_USD", PositionType: domain.Short,
		EntryPrice: 100, Quantity: 10,
	}
	btc, err := l.Create(ctx, short)
	require.NoError(t, err)

	_, err = l.Create(ctx, CreateRequest{
		AssetClass: domain.AssetNasdaq, AssetSymbol: "NOQUOTE", PositionType: domain.Long,
		EntryPrice: 5, Quantity: 1,
	})
	require.NoError(t, err)

	closed, err := l.Create(ctx, longAAPL())
	require.NoError(t, err)
	_, err = l.Close(ctx, closed.ID, CloseRequest{ExitPrice: 150})
	require.NoError(t, err)

	got, err := l.OpenWithPnL(ctx, stubPrices{"AAPL": 110, "BTC_USD": 90})
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[int64]domain.PositionWithPnL{}
	for _, p := range got {
		byID[p.ID] = p
	}

	a := byID[aapl.ID]
	require.NotNil(t, a.CurrentPrice)
	assert.Equal(t, 110.0, *a.CurrentPrice)
	assert.InDelta(t, 100.0, a.Amount, 1e-9)
	assert.InDelta(t, 10.0, a.Percent, 1e-9)
	assert.InDelta(t, 200.0, a.Leveraged, 1e-9)
	assert.InDelta(t, 20.0, a.LeveragedPercent, 1e-9)

	b := byID[btc.ID]
	assert.InDelta(t, 100.0, b.Amount, 1e-9)
	assert.InDelta(t, 10.0, b.Percent, 1e-9)
	assert.InDelta(t, 100.0, b.Leveraged, 1e-9)
}

// Package ledger manages simulated positions. A position is created OPEN and
// either closed (terminal, kept forever) or deleted while still open.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/logger"
	"github.com/camuig/paper-desk/internal/storage"
)

type EventKind string

const (
	EventOpened  EventKind = "opened"
	EventUpdated EventKind = "updated"
	EventClosed  EventKind = "closed"
	EventDeleted EventKind = "deleted"
)

// Observer receives every successful ledger mutation.
type Observer interface {
	ObservePosition(kind EventKind, p domain.Position)
}

// PriceSource supplies current prices for unrealized P&L.
type PriceSource interface {
	CurrentPrice(ctx context.Context, ref domain.AssetRef) (float64, error)
}

type Ledger struct {
	store     storage.PositionStore
	locks     stripedLock
	observers []Observer
	logger    *logger.Logger
	now       func() time.Time
}

type Option func(*Ledger)

func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observers = append(l.observers, o) }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(store storage.PositionStore, log *logger.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Create(ctx context.Context, req CreateRequest) (domain.Position, error) {
	if err := req.Validate(); err != nil {
		return domain.Position{}, err
	}

	now := l.now()
	p := domain.Position{
		AssetClass:  req.AssetClass,
		AssetSymbol: req.AssetSymbol,
		Type:        req.PositionType,
		EntryPrice:  req.EntryPrice,
		Quantity:    req.Quantity,
		Leverage:    req.leverage(),
		EntryTime:   now,
		Status:      domain.StatusOpen,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.store.Insert(ctx, &p); err != nil {
		return domain.Position{}, fmt.Errorf("create position: %w", err)
	}

	l.logger.Info("position opened",
		"id", p.ID, "symbol", p.AssetSymbol, "type", p.Type,
		"entry_price", p.EntryPrice, "quantity", p.Quantity, "leverage", p.Leverage)
	l.notify(EventOpened, p)
	return p, nil
}

func (l *Ledger) Get(ctx context.Context, id int64) (domain.Position, error) {
	p, err := l.store.Get(ctx, id)
	if err != nil {
		return domain.Position{}, l.wrap("get", id, err)
	}
	return p, nil
}

// List returns positions newest entry_time first. An empty status lists all.
func (l *Ledger) List(ctx context.Context, status domain.PositionStatus) ([]domain.Position, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	positions, err := l.store.List(ctx, storage.PositionFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

// Update applies the supplied fields. Quantity and leverage are frozen once a
// position is closed; notes stay editable.
func (l *Ledger) Update(ctx context.Context, id int64, req UpdateRequest) (domain.Position, error) {
	if err := req.Validate(); err != nil {
		return domain.Position{}, err
	}

	unlock := l.locks.lock(id)
	defer unlock()

	p, err := l.store.Get(ctx, id)
	if err != nil {
		return domain.Position{}, l.wrap("update", id, err)
	}
	if !p.IsOpen() && req.touchesEconomics() {
		return domain.Position{}, fmt.Errorf("%w: position %d is closed, quantity and leverage are frozen",
			domain.ErrIllegalTransition, id)
	}
	if req.empty() {
		return p, nil
	}

	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	if req.Leverage != nil {
		p.Leverage = *req.Leverage
	}
	if req.Notes != nil {
		notes := *req.Notes
		p.Notes = &notes
	}
	p.UpdatedAt = l.now()

	if err := l.store.Update(ctx, &p); err != nil {
		return domain.Position{}, l.wrap("update", id, err)
	}

	l.logger.Info("position updated", "id", id, "quantity", p.Quantity, "leverage", p.Leverage)
	l.notify(EventUpdated, p)
	return p, nil
}

func (l *Ledger) Close(ctx context.Context, id int64, req CloseRequest) (domain.Position, error) {
	if err := req.Validate(); err != nil {
		return domain.Position{}, err
	}

	unlock := l.locks.lock(id)
	defer unlock()

	p, err := l.store.Get(ctx, id)
	if err != nil {
		return domain.Position{}, l.wrap("close", id, err)
	}
	if !p.IsOpen() {
		return domain.Position{}, fmt.Errorf("%w: position %d is already closed", domain.ErrIllegalTransition, id)
	}

	now := l.now()
	exit := req.ExitPrice
	p.ExitPrice = &exit
	p.ExitTime = &now
	p.Status = domain.StatusClosed
	if req.Notes != nil {
		notes := *req.Notes
		p.Notes = &notes
	}
	p.UpdatedAt = now

	if err := l.store.Update(ctx, &p); err != nil {
		return domain.Position{}, l.wrap("close", id, err)
	}

	l.logger.Info("position closed",
		"id", id, "symbol", p.AssetSymbol, "exit_price", exit, "pnl", ClosedPnL(p))
	l.notify(EventClosed, p)
	return p, nil
}

// Delete removes an open position. Closed positions are kept for analytics.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	unlock := l.locks.lock(id)
	defer unlock()

	p, err := l.store.Get(ctx, id)
	if err != nil {
		return l.wrap("delete", id, err)
	}
	if !p.IsOpen() {
		return fmt.Errorf("%w: position %d is closed and cannot be deleted", domain.ErrIllegalTransition, id)
	}
	if err := l.store.Delete(ctx, id, p.Version); err != nil {
		return l.wrap("delete", id, err)
	}

	l.logger.Info("position deleted", "id", id, "symbol", p.AssetSymbol)
	l.notify(EventDeleted, p)
	return nil
}

// OpenWithPnL values every open position at its current price. Positions
// whose price cannot be fetched are left out.
func (l *Ledger) OpenWithPnL(ctx context.Context, prices PriceSource) ([]domain.PositionWithPnL, error) {
	open, err := l.List(ctx, domain.StatusOpen)
	if err != nil {
		return nil, err
	}

	cache := make(map[string]float64)
	result := make([]domain.PositionWithPnL, 0, len(open))
	for _, p := range open {
		ref, err := domain.ParseAssetRef(p.AssetClass, p.AssetSymbol)
		if err != nil {
			l.logger.Warn("skip position with unresolvable asset", "id", p.ID, "error", err)
			continue
		}

		price, ok := cache[ref.Symbol]
		if !ok {
			price, err = prices.CurrentPrice(ctx, ref)
			if err != nil {
				l.logger.Warn("current price unavailable", "id", p.ID, "symbol", ref.Symbol, "error", err)
				continue
			}
			cache[ref.Symbol] = price
		}

		withPnL, err := WithPnL(p, price)
		if err != nil {
			l.logger.Warn("skip position pnl", "id", p.ID, "error", err)
			continue
		}
		result = append(result, withPnL)
	}
	return result, nil
}

func (l *Ledger) notify(kind EventKind, p domain.Position) {
	for _, o := range l.observers {
		o.ObservePosition(kind, p)
	}
}

func (l *Ledger) wrap(op string, id int64, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w: position %d", domain.ErrNotFound, id)
	case errors.Is(err, domain.ErrConflict):
		return fmt.Errorf("%w: position %d was modified concurrently", domain.ErrConflict, id)
	default:
		return fmt.Errorf("%s position %d: %w", op, id, err)
	}
}

package storage

import (
	"context"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
)

// PositionFilter narrows List. Zero values match everything.
type PositionFilter struct {
	Status domain.PositionStatus
	Symbol string
}

// PositionStore persists paper positions keyed by integer id.
// Update and Delete are guarded by Position.Version: the stored version must
// equal the caller's, otherwise ErrConflict is returned.
type PositionStore interface {
	// Insert assigns ID and Version to p.
	Insert(ctx context.Context, p *domain.Position) error

	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id int64) (domain.Position, error)

	// List orders by entry_time DESC, id DESC.
	List(ctx context.Context, filter PositionFilter) ([]domain.Position, error)

	// Update writes all mutable fields of p and increments p.Version.
	Update(ctx context.Context, p *domain.Position) error

	// Delete removes the row if its version equals version.
	Delete(ctx context.Context, id int64, version int64) error
}

// SignalRecord is one journaled signal.
type SignalRecord struct {
	ID        string        `json:"id"`
	Signal    domain.Signal `json:"signal"`
	Degraded  bool          `json:"degraded"`
	CreatedAt time.Time     `json:"created_at"`
}

// SignalLog is an append-only journal of generated signals.
type SignalLog interface {
	Append(ctx context.Context, sig domain.Signal) (SignalRecord, error)

	// Recent returns the newest records first. An empty symbol matches all.
	Recent(ctx context.Context, symbol string, limit int) ([]SignalRecord, error)
}

// Pinger is implemented by stores backed by a connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

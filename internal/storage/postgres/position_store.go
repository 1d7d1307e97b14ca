package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/storage"
)

var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `id, asset_class, asset_symbol, position_type, entry_price, quantity,
	leverage, entry_time, exit_price, exit_time, status, notes, created_at, updated_at, version`

type PositionStore struct {
	pool *Pool
}

func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	if p == nil {
		return storage.ErrInvalidInput
	}
	query := `
		INSERT INTO positions (
			asset_class, asset_symbol, position_type, entry_price, quantity, leverage,
			entry_time, exit_price, exit_time, status, notes, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
		RETURNING id
	`
	err := s.pool.QueryRow(ctx, query,
		string(p.AssetClass), p.AssetSymbol, string(p.Type), p.EntryPrice, p.Quantity, p.Leverage,
		p.EntryTime.UTC(), p.ExitPrice, utcPtr(p.ExitTime), string(p.Status), p.Notes,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	p.Version = 1
	return nil
}

func (s *PositionStore) Get(ctx context.Context, id int64) (domain.Position, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = $1`, id)
	p, err := scanPosition(row)
	if isNotFoundError(err) {
		return domain.Position{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Position{}, fmt.Errorf("get position %d: %w", id, err)
	}
	return p, nil
}

func (s *PositionStore) List(ctx context.Context, filter storage.PositionFilter) ([]domain.Position, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Symbol != "" {
		args = append(args, filter.Symbol)
		where = append(where, fmt.Sprintf("asset_symbol = $%d", len(args)))
	}

	query := `SELECT ` + positionColumns + ` FROM positions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY entry_time DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	result := []domain.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return result, nil
}

func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	if p == nil {
		return storage.ErrInvalidInput
	}
	query := `
		UPDATE positions SET
			quantity = $3, leverage = $4, exit_price = $5, exit_time = $6,
			status = $7, notes = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2
	`
	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.Version,
		p.Quantity, p.Leverage, p.ExitPrice, utcPtr(p.ExitTime),
		string(p.Status), p.Notes, p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("update position %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, p.ID)
	}
	p.Version++
	return nil
}

func (s *PositionStore) Delete(ctx context.Context, id int64, version int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("delete position %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, id)
	}
	return nil
}

func (s *PositionStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PositionStore) missOrConflict(ctx context.Context, id int64) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM positions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check position %d: %w", id, err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

func scanPosition(row pgx.Row) (domain.Position, error) {
	var (
		p                          domain.Position
		class, kind, status        string
		entryTime, created, update time.Time
	)
	err := row.Scan(
		&p.ID, &class, &p.AssetSymbol, &kind, &p.EntryPrice, &p.Quantity,
		&p.Leverage, &entryTime, &p.ExitPrice, &p.ExitTime, &status, &p.Notes,
		&created, &update, &p.Version,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.AssetClass = domain.AssetClass(class)
	p.Type = domain.PositionType(kind)
	p.Status = domain.PositionStatus(status)
	p.EntryTime = entryTime.UTC()
	p.ExitTime = utcPtr(p.ExitTime)
	p.CreatedAt = created.UTC()
	p.UpdatedAt = update.UTC()
	return p, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/storage"
)

var _ storage.PositionStore = (*PositionStore)(nil)

type PositionStore struct {
	db *gorm.DB
}

func NewPositionStore(db *gorm.DB) *PositionStore {
	return &PositionStore{db: db}
}

func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	if p == nil {
		return storage.ErrInvalidInput
	}
	row := rowFromPosition(*p)
	row.ID = 0
	row.Version = 1
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	p.ID = row.ID
	p.Version = row.Version
	return nil
}

func (s *PositionStore) Get(ctx context.Context, id int64) (domain.Position, error) {
	var row PositionRow
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Position{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Position{}, fmt.Errorf("get position %d: %w", id, err)
	}
	return row.toPosition(), nil
}

func (s *PositionStore) List(ctx context.Context, filter storage.PositionFilter) ([]domain.Position, error) {
	q := s.db.WithContext(ctx).Model(&PositionRow{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Symbol != "" {
		q = q.Where("asset_symbol = ?", filter.Symbol)
	}

	var rows []PositionRow
	if err := q.Order("entry_time DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	result := make([]domain.Position, len(rows))
	for i, r := range rows {
		result[i] = r.toPosition()
	}
	return result, nil
}

func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	if p == nil {
		return storage.ErrInvalidInput
	}
	row := rowFromPosition(*p)

	res := s.db.WithContext(ctx).Model(&PositionRow{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]any{
			"quantity":   row.Quantity,
			"leverage":   row.Leverage,
			"exit_price": row.ExitPrice,
			"exit_time":  row.ExitTime,
			"status":     row.Status,
			"notes":      row.Notes,
			"updated_at": row.UpdatedAt,
			"version":    p.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("update position %d: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, p.ID)
	}
	p.Version++
	return nil
}

func (s *PositionStore) Delete(ctx context.Context, id int64, version int64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND version = ?", id, version).
		Delete(&PositionRow{})
	if res.Error != nil {
		return fmt.Errorf("delete position %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, id)
	}
	return nil
}

func (s *PositionStore) Ping(ctx context.Context) error {
	return Ping(ctx, s.db)
}

func (s *PositionStore) missOrConflict(ctx context.Context, id int64) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&PositionRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("check position %d: %w", id, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

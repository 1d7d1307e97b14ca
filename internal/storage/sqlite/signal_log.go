package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/storage"
)

var _ storage.SignalLog = (*SignalLog)(nil)

type SignalLog struct {
	db *gorm.DB
}

func NewSignalLog(db *gorm.DB) *SignalLog {
	return &SignalLog{db: db}
}

func (l *SignalLog) Append(ctx context.Context, sig domain.Signal) (storage.SignalRecord, error) {
	row, err := rowFromSignal(uuid.NewString(), sig)
	if err != nil {
		return storage.SignalRecord{}, fmt.Errorf("encode signal: %w", err)
	}
	row.CreatedAt = time.Now().UTC()

	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return storage.SignalRecord{}, fmt.Errorf("append signal: %w", err)
	}
	return row.toRecord()
}

func (l *SignalLog) Recent(ctx context.Context, symbol string, limit int) ([]storage.SignalRecord, error) {
	q := l.db.WithContext(ctx).Model(&SignalRow{})
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []SignalRow
	if err := q.Order("created_at DESC").Order("signal_time DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("recent signals: %w", err)
	}

	result := make([]storage.SignalRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.toRecord()
		if err != nil {
			return nil, fmt.Errorf("decode signal %s: %w", r.ID, err)
		}
		result = append(result, rec)
	}
	return result, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/storage"
)

var _ storage.SignalLog = (*SignalLog)(nil)

type SignalLog struct {
	pool *Pool
	now  func() time.Time
}

func NewSignalLog(pool *Pool) *SignalLog {
	return &SignalLog{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

func (l *SignalLog) Append(ctx context.Context, sig domain.Signal) (storage.SignalRecord, error) {
	ind, err := json.Marshal(sig.Indicators)
	if err != nil {
		return storage.SignalRecord{}, fmt.Errorf("encode signal: %w", err)
	}

	rec := storage.SignalRecord{
		ID:        uuid.NewString(),
		Signal:    sig,
		Degraded:  sig.IsDegraded(),
		CreatedAt: l.now(),
	}
	rec.Signal.Timestamp = sig.Timestamp.UTC()

	query := `
		INSERT INTO signal_log (
			id, symbol, kind, confidence, direction, model_version,
			degraded, current_price, signal_time, indicators, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = l.pool.Exec(ctx, query,
		rec.ID, sig.Symbol, string(sig.Kind), sig.Confidence, string(sig.PredictedDirection), sig.ModelVersion,
		rec.Degraded, sig.CurrentPrice, rec.Signal.Timestamp, ind, rec.CreatedAt,
	)
	if err != nil {
		return storage.SignalRecord{}, fmt.Errorf("append signal: %w", err)
	}
	return rec, nil
}

func (l *SignalLog) Recent(ctx context.Context, symbol string, limit int) ([]storage.SignalRecord, error) {
	query := `
		SELECT id::text, symbol, kind, confidence, direction, model_version,
			degraded, current_price, signal_time, indicators, created_at
		FROM signal_log
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY created_at DESC, signal_time DESC
	`
	args := []any{symbol}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent signals: %w", err)
	}
	defer rows.Close()

	result := []storage.SignalRecord{}
	for rows.Next() {
		var (
			rec             storage.SignalRecord
			kind, direction string
			ind             []byte
		)
		err := rows.Scan(
			&rec.ID, &rec.Signal.Symbol, &kind, &rec.Signal.Confidence, &direction, &rec.Signal.ModelVersion,
			&rec.Degraded, &rec.Signal.CurrentPrice, &rec.Signal.Timestamp, &ind, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if err := json.Unmarshal(ind, &rec.Signal.Indicators); err != nil {
			return nil, fmt.Errorf("decode signal %s: %w", rec.ID, err)
		}
		rec.Signal.Kind = domain.SignalKind(kind)
		rec.Signal.PredictedDirection = domain.Direction(direction)
		rec.Signal.Timestamp = rec.Signal.Timestamp.UTC()
		rec.CreatedAt = rec.CreatedAt.UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent signals: %w", err)
	}
	return result, nil
}

package sqlite

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/storage"
)

// PositionRow timestamps are owned by the ledger, so gorm must not touch them.
type PositionRow struct {
	ID        int64     `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;not null"`

	AssetClass   string    `gorm:"not null"`
	AssetSymbol  string    `gorm:"index;not null"`
	PositionType string    `gorm:"not null"`
	EntryPrice   float64   `gorm:"not null"`
	Quantity     float64   `gorm:"not null"`
	Leverage     float64   `gorm:"not null;default:1"`
	EntryTime    time.Time `gorm:"index;not null"`
	ExitPrice    *float64
	ExitTime     *time.Time
	Status       string  `gorm:"index;not null;default:'OPEN'"`
	Notes        *string `gorm:"type:text"`
	Version      int64   `gorm:"not null;default:1"`
}

func (PositionRow) TableName() string { return "positions" }

func rowFromPosition(p domain.Position) PositionRow {
	return PositionRow{
		ID:           p.ID,
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
		AssetClass:   string(p.AssetClass),
		AssetSymbol:  p.AssetSymbol,
		PositionType: string(p.Type),
		EntryPrice:   p.EntryPrice,
		Quantity:     p.Quantity,
		Leverage:     p.Leverage,
		EntryTime:    p.EntryTime.UTC(),
		ExitPrice:    p.ExitPrice,
		ExitTime:     utcPtr(p.ExitTime),
		Status:       string(p.Status),
		Notes:        p.Notes,
		Version:      p.Version,
	}
}

func (r PositionRow) toPosition() domain.Position {
	return domain.Position{
		ID:          r.ID,
		AssetClass:  domain.AssetClass(r.AssetClass),
		AssetSymbol: r.AssetSymbol,
		Type:        domain.PositionType(r.PositionType),
		EntryPrice:  r.EntryPrice,
		Quantity:    r.Quantity,
		Leverage:    r.Leverage,
		EntryTime:   r.EntryTime.UTC(),
		ExitPrice:   r.ExitPrice,
		ExitTime:    utcPtr(r.ExitTime),
		Status:      domain.PositionStatus(r.Status),
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
		Version:     r.Version,
	}
}

type SignalRow struct {
	ID        string    `gorm:"primarykey;size:36"`
	CreatedAt time.Time `gorm:"index"`

	Symbol       string  `gorm:"index;not null"`
	Kind         string  `gorm:"not null"`
	Confidence   float64 `gorm:"not null"`
	Direction    string  `gorm:"not null"`
	ModelVersion string  `gorm:"not null"`
	Degraded     bool    `gorm:"index"`
	CurrentPrice *float64
	SignalTime   time.Time
	Indicators   datatypes.JSON `gorm:"type:json"`
}

func (SignalRow) TableName() string { return "signal_log" }

func rowFromSignal(id string, sig domain.Signal) (SignalRow, error) {
	ind, err := json.Marshal(sig.Indicators)
	if err != nil {
		return SignalRow{}, err
	}
	return SignalRow{
		ID:           id,
		Symbol:       sig.Symbol,
		Kind:         string(sig.Kind),
		Confidence:   sig.Confidence,
		Direction:    string(sig.PredictedDirection),
		ModelVersion: sig.ModelVersion,
		Degraded:     sig.IsDegraded(),
		CurrentPrice: sig.CurrentPrice,
		SignalTime:   sig.Timestamp.UTC(),
		Indicators:   datatypes.JSON(ind),
	}, nil
}

func (r SignalRow) toRecord() (storage.SignalRecord, error) {
	var ind domain.IndicatorSet
	if len(r.Indicators) > 0 {
		if err := json.Unmarshal(r.Indicators, &ind); err != nil {
			return storage.SignalRecord{}, err
		}
	}
	return storage.SignalRecord{
		ID: r.ID,
		Signal: domain.Signal{
			Symbol:             r.Symbol,
			Kind:               domain.SignalKind(r.Kind),
			Confidence:         r.Confidence,
			PredictedDirection: domain.Direction(r.Direction),
			ModelVersion:       r.ModelVersion,
			Timestamp:          r.SignalTime.UTC(),
			CurrentPrice:       r.CurrentPrice,
			Indicators:         ind,
		},
		Degraded:  r.Degraded,
		CreatedAt: r.CreatedAt.UTC(),
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

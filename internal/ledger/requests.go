package ledger

import (
	"fmt"
	"math"
	"strings"

	"github.com/camuig/paper-desk/internal/domain"
)

const (
	MinLeverage = 1.0
	MaxLeverage = 100.0
)

type CreateRequest struct {
	AssetClass   domain.AssetClass   `json:"asset_class"`
	AssetSymbol  string              `json:"asset_symbol"`
	PositionType domain.PositionType `json:"position_type"`
	EntryPrice   float64             `json:"entry_price"`
	Quantity     float64             `json:"quantity"`
	Leverage     *float64            `json:"leverage,omitempty"`
	Notes        *string             `json:"notes,omitempty"`
}

// Validate normalizes the symbol and rejects anything the ledger cannot store.
func (r *CreateRequest) Validate() error {
	r.AssetSymbol = strings.ToUpper(strings.TrimSpace(r.AssetSymbol))
	r.PositionType = domain.PositionType(strings.ToUpper(string(r.PositionType)))
	r.AssetClass = domain.AssetClass(strings.ToUpper(string(r.AssetClass)))

	if !r.AssetClass.Valid() {
		return invalid("unknown asset_class %q", r.AssetClass)
	}
	if r.AssetSymbol == "" {
		return invalid("asset_symbol is required")
	}
	if !r.PositionType.Valid() {
		return invalid("position_type must be LONG or SHORT, got %q", r.PositionType)
	}
	if err := positive("entry_price", r.EntryPrice); err != nil {
		return err
	}
	if err := positive("quantity", r.Quantity); err != nil {
		return err
	}
	if r.Leverage != nil {
		if err := leverageInRange(*r.Leverage); err != nil {
			return err
		}
	}
	return nil
}

func (r CreateRequest) leverage() float64 {
	if r.Leverage == nil {
		return MinLeverage
	}
	return *r.Leverage
}

// UpdateRequest changes only the non-nil fields.
type UpdateRequest struct {
	Quantity *float64 `json:"quantity,omitempty"`
	Leverage *float64 `json:"leverage,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

func (r UpdateRequest) Validate() error {
	if r.Quantity != nil {
		if err := positive("quantity", *r.Quantity); err != nil {
			return err
		}
	}
	if r.Leverage != nil {
		if err := leverageInRange(*r.Leverage); err != nil {
			return err
		}
	}
	return nil
}

func (r UpdateRequest) touchesEconomics() bool {
	return r.Quantity != nil || r.Leverage != nil
}

func (r UpdateRequest) empty() bool {
	return r.Quantity == nil && r.Leverage == nil && r.Notes == nil
}

type CloseRequest struct {
	ExitPrice float64 `json:"exit_price"`
	Notes     *string `json:"notes,omitempty"`
}

func (r CloseRequest) Validate() error {
	return positive("exit_price", r.ExitPrice)
}

func positive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid("%s must be greater than 0", field)
	}
	return nil
}

func leverageInRange(v float64) error {
	if math.IsNaN(v) || v < MinLeverage || v > MaxLeverage {
		return invalid("leverage must be between %.0f and %.0f", MinLeverage, MaxLeverage)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

package ledger

import (
	"fmt"

	"github.com/camuig/paper-desk/internal/domain"
)

// PnLAt values p at price. LONG gains when price rises, SHORT when it falls.
// Leverage scales both the absolute and the percent figure.
func PnLAt(p domain.Position, price float64) domain.PnL {
	diff := price - p.EntryPrice
	if p.Type == domain.Short {
		diff = -diff
	}

	amount := diff * p.Quantity
	percent := 0.0
	if p.EntryPrice != 0 {
		percent = diff / p.EntryPrice * 100
	}

	return domain.PnL{
		Amount:           amount,
		Percent:          percent,
		Leveraged:        amount * p.Leverage,
		LeveragedPercent: percent * p.Leverage,
	}
}

// Unrealized is the P&L of an open position at the current price.
func Unrealized(p domain.Position, current float64) (domain.PnL, error) {
	if !p.IsOpen() {
		return domain.PnL{}, fmt.Errorf("%w: position %d is %s", domain.ErrIllegalTransition, p.ID, p.Status)
	}
	if err := positive("current_price", current); err != nil {
		return domain.PnL{}, err
	}
	return PnLAt(p, current), nil
}

// Realized is the P&L of a closed position at its exit price.
// ok is false when the position is not closed.
func Realized(p domain.Position) (pnl domain.PnL, ok bool) {
	if p.Status != domain.StatusClosed || p.ExitPrice == nil {
		return domain.PnL{}, false
	}
	return PnLAt(p, *p.ExitPrice), true
}

// ClosedPnL is the leveraged absolute P&L used for portfolio totals.
func ClosedPnL(p domain.Position) float64 {
	pnl, _ := Realized(p)
	return pnl.Leveraged
}

func WithPnL(p domain.Position, current float64) (domain.PositionWithPnL, error) {
	pnl, err := Unrealized(p, current)
	if err != nil {
		return domain.PositionWithPnL{}, err
	}
	price := current
	return domain.PositionWithPnL{Position: p, CurrentPrice: &price, PnL: pnl}, nil
}

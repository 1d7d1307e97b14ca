package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/camuig/paper-desk/internal/domain"
)

func closedAt(typ domain.PositionType, entry, exit, qty, lev float64) domain.Position {
	return domain.Position{
		Type: typ, EntryPrice: entry, Quantity: qty, Leverage: lev,
		Status: domain.StatusClosed, ExitPrice: &exit,
	}
}

func openPos(entry float64) domain.Position {
	return domain.Position{Type: domain.Long, EntryPrice: entry, Quantity: 1, Leverage: 1, Status: domain.StatusOpen}
}

func TestComputeEmpty(t *testing.T) {
	assert.Equal(t, domain.PortfolioStats{}, Compute(nil))
}

func TestComputeOnlyOpen(t *testing.T) {
	stats := Compute([]domain.Position{openPos(10), openPos(20)})
	assert.Equal(t, domain.PortfolioStats{TotalPositions: 2, OpenPositions: 2}, stats)
}

func TestCompute(t *testing.T) {
	positions := []domain.Position{
		closedAt(domain.Long, 100, 110, 10, 2), // +200
		closedAt(domain.Short, 100, 90, 10, 1), // +100
		closedAt(domain.Long, 50, 40, 5, 1),    // -50
		closedAt(domain.Short, 20, 22, 10, 3),  // -60
		closedAt(domain.Long, 10, 10, 1, 1),    // 0
		openPos(1000),
	}
	stats := Compute(positions)

	assert.Equal(t, 6, stats.TotalPositions)
	assert.Equal(t, 1, stats.OpenPositions)
	assert.Equal(t, 5, stats.ClosedPositions)
	assert.InDelta(t, 190.0, stats.TotalPnL, 1e-9)
	assert.InDelta(t, 40.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 200.0, stats.LargestWin, 1e-9)
	assert.InDelta(t, -60.0, stats.LargestLoss, 1e-9)
	assert.InDelta(t, 150.0, stats.AvgWin, 1e-9)
	assert.InDelta(t, -110.0/3.0, stats.AvgLoss, 1e-9)

	// invested = 1000 + 1000 + 250 + 200 + 10
	assert.InDelta(t, 190.0/2460.0*100, stats.TotalPnLPercent, 1e-9)
}

func TestComputeAllLosses(t *testing.T) {
	stats := Compute([]domain.Position{
		closedAt(domain.Long, 100, 90, 1, 1),
		closedAt(domain.Long, 100, 80, 1, 1),
	})
	assert.Zero(t, stats.WinRate)
	assert.Zero(t, stats.LargestWin)
	assert.Zero(t, stats.AvgWin)
	assert.InDelta(t, -20.0, stats.LargestLoss, 1e-9)
	assert.InDelta(t, -15.0, stats.AvgLoss, 1e-9)
	assert.InDelta(t, -15.0, stats.TotalPnLPercent, 1e-9)
}

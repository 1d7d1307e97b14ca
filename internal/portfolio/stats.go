// Package portfolio aggregates ledger positions into performance statistics.
package portfolio

import (
	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/ledger"
)

// Compute derives PortfolioStats from the full position set. Only closed
// positions contribute to P&L figures. A break-even close counts as a loss.
// TotalPnLPercent is relative to the capital committed to closed positions.
func Compute(positions []domain.Position) domain.PortfolioStats {
	stats := domain.PortfolioStats{TotalPositions: len(positions)}

	var (
		wins, losses []float64
		invested     float64
	)
	for _, p := range positions {
		switch p.Status {
		case domain.StatusOpen:
			stats.OpenPositions++
			continue
		case domain.StatusClosed:
			stats.ClosedPositions++
		default:
			continue
		}

		pnl := ledger.ClosedPnL(p)
		stats.TotalPnL += pnl
		invested += p.EntryPrice * p.Quantity

		if pnl > 0 {
			wins = append(wins, pnl)
		} else {
			losses = append(losses, pnl)
		}
	}

	if stats.ClosedPositions > 0 {
		stats.WinRate = float64(len(wins)) / float64(stats.ClosedPositions) * 100
	}
	if invested > 0 {
		stats.TotalPnLPercent = stats.TotalPnL / invested * 100
	}
	if len(wins) > 0 {
		stats.LargestWin = largest(wins)
		stats.AvgWin = mean(wins)
	}
	if len(losses) > 0 {
		stats.LargestLoss = smallest(losses)
		stats.AvgLoss = mean(losses)
	}
	return stats
}

func largest(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func smallest(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

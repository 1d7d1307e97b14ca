package domain

import "time"

type PositionType string

const (
	Long  PositionType = "LONG"
	Short PositionType = "SHORT"
)

func (t PositionType) Valid() bool {
	return t == Long || t == Short
}

type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

func (s PositionStatus) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

type Position struct {
	ID          int64          `json:"id"`
	AssetClass  AssetClass     `json:"asset_class"`
	AssetSymbol string         `json:"asset_symbol"`
	Type        PositionType   `json:"position_type"`
	EntryPrice  float64        `json:"entry_price"`
	Quantity    float64        `json:"quantity"`
	Leverage    float64        `json:"leverage"`
	EntryTime   time.Time      `json:"entry_time"`
	ExitPrice   *float64       `json:"exit_price"`
	ExitTime    *time.Time     `json:"exit_time"`
	Status      PositionStatus `json:"status"`
	Notes       *string        `json:"notes"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// Version increments on every stored mutation.
	Version int64 `json:"-"`
}

func (p Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// PnL holds absolute and percent profit, raw and leveraged.
type PnL struct {
	Amount           float64 `json:"pnl"`
	Percent          float64 `json:"pnl_percent"`
	Leveraged        float64 `json:"pnl_with_leverage"`
	LeveragedPercent float64 `json:"pnl_with_leverage_percent"`
}

type PositionWithPnL struct {
	Position
	CurrentPrice *float64 `json:"current_price"`
	PnL
}

type PortfolioStats struct {
	TotalPositions  int     `json:"total_positions"`
	OpenPositions   int     `json:"open_positions"`
	ClosedPositions int     `json:"closed_positions"`
	TotalPnL        float64 `json:"total_pnl"`
	TotalPnLPercent float64 `json:"total_pnl_percent"`
	WinRate         float64 `json:"win_rate"`
	LargestWin      float64 `json:"largest_win"`
	LargestLoss     float64 `json:"largest_loss"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"`
}

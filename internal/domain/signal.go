package domain

import (
	"strings"
	"time"
)

type SignalKind string

const (
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
	SignalHold SignalKind = "HOLD"
)

type Direction string

const (
	DirectionUp      Direction = "UP"
	DirectionDown    Direction = "DOWN"
	DirectionNeutral Direction = "NEUTRAL"
)

// DegradedSuffix marks model versions produced without a real model.
const DegradedSuffix = "-dummy"

type Signal struct {
	Symbol             string       `json:"asset_symbol"`
	Kind               SignalKind   `json:"signal"`
	Confidence         float64      `json:"confidence"`
	PredictedDirection Direction    `json:"predicted_direction"`
	ModelVersion       string       `json:"model_version"`
	Timestamp          time.Time    `json:"timestamp"`
	CurrentPrice       *float64     `json:"current_price,omitempty"`
	Indicators         IndicatorSet `json:"indicators"`
}

// IsDegraded reports whether the signal came from the fallback model.
func (s Signal) IsDegraded() bool {
	return strings.HasSuffix(s.ModelVersion, DegradedSuffix)
}

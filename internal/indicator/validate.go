package indicator

import (
	"fmt"
	"math"

	"github.com/camuig/paper-desk/internal/domain"
)

// ValidateSeries rejects series that cannot produce a well-formed IndicatorSet.
// Prices must be finite and positive, volumes finite and non-negative.
// A nil volumes slice is allowed.
func ValidateSeries(prices, volumes []float64) error {
	if len(prices) == 0 {
		return fmt.Errorf("%w: bars or prices are required", domain.ErrInvalidInput)
	}
	if volumes != nil && len(volumes) != len(prices) {
		return fmt.Errorf("%w: volumes must be the same length as prices", domain.ErrInvalidInput)
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return fmt.Errorf("%w: price %d must be greater than 0", domain.ErrInvalidInput, i)
		}
	}
	for i, v := range volumes {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: volume %d must not be negative", domain.ErrInvalidInput, i)
		}
	}
	return nil
}

// Finite reports whether every field of set is a finite number.
func Finite(set domain.IndicatorSet) bool {
	for _, v := range []float64{
		set.RSI, set.MACD, set.MACDSignal,
		set.BBUpper, set.BBMiddle, set.BBLower,
		set.VolumeRatio, set.Volatility, set.Momentum,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

package signal

import "github.com/camuig/paper-desk/internal/domain"

const bbEpsilon = 1e-10

// FeatureNames is the column order models are trained on.
var FeatureNames = []string{"rsi", "macd", "bb_width", "volume_ratio", "volatility", "momentum"}

// Features lays out the model input vector in FeatureNames order.
func Features(ind domain.IndicatorSet) []float64 {
	return []float64{
		ind.RSI,
		ind.MACD,
		BandWidth(ind),
		ind.VolumeRatio,
		ind.Volatility,
		ind.Momentum,
	}
}

func BandWidth(ind domain.IndicatorSet) float64 {
	return (ind.BBUpper - ind.BBLower) / (ind.BBMiddle + bbEpsilon)
}

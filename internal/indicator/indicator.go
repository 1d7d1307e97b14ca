// Package indicator computes technical indicators over ordered price and
// volume series. Short histories never fail; every function falls back to a
// neutral default instead.
package indicator

import (
	"math"

	"github.com/camuig/paper-desk/internal/domain"
)

// Params holds the window sizes used by All.
type Params struct {
	RSIPeriod        int     `yaml:"rsi_period"`
	MACDFast         int     `yaml:"macd_fast"`
	MACDSlow         int     `yaml:"macd_slow"`
	MACDSignal       int     `yaml:"macd_signal"`
	BollingerPeriod  int     `yaml:"bollinger_period"`
	BollingerMult    float64 `yaml:"bollinger_mult"`
	VolumePeriod     int     `yaml:"volume_period"`
	VolatilityPeriod int     `yaml:"volatility_period"`
	MomentumPeriod   int     `yaml:"momentum_period"`
}

func DefaultParams() Params {
	return Params{
		RSIPeriod:        14,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		BollingerPeriod:  20,
		BollingerMult:    2.0,
		VolumePeriod:     20,
		VolatilityPeriod: 20,
		MomentumPeriod:   10,
	}
}

// All computes the full indicator set with default windows.
// A nil volumes slice yields a volume ratio of 1.
func All(prices, volumes []float64) domain.IndicatorSet {
	return DefaultParams().Compute(prices, volumes)
}

// FromBars computes the full indicator set from closes and volumes of bars.
func FromBars(bars []domain.PriceBar) domain.IndicatorSet {
	return All(domain.Closes(bars), domain.Volumes(bars))
}

func (p Params) Compute(prices, volumes []float64) domain.IndicatorSet {
	macd, signal := MACD(prices, p.MACDFast, p.MACDSlow, p.MACDSignal)
	upper, middle, lower := Bollinger(prices, p.BollingerPeriod, p.BollingerMult)

	set := domain.IndicatorSet{
		RSI:         RSI(prices, p.RSIPeriod),
		MACD:        macd,
		MACDSignal:  signal,
		BBUpper:     upper,
		BBMiddle:    middle,
		BBLower:     lower,
		VolumeRatio: 1.0,
		Volatility:  Volatility(prices, p.VolatilityPeriod),
		Momentum:    Momentum(prices, p.MomentumPeriod),
	}
	if volumes != nil {
		set.VolumeRatio = VolumeRatio(volumes, p.VolumePeriod)
	}
	return set
}

// RSI uses simple rolling means of gains and losses over the last period deltas.
// Returns 50 when there are fewer than period+1 prices.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50.0
	}

	var gains, losses float64
	for i := len(prices) - period; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}

	rs := avgGain / avgLoss
	rsi := 100 - 100/(1+rs)
	if math.IsNaN(rsi) {
		return 50.0
	}
	return clamp(rsi, 0, 100)
}

// MACD returns the MACD line and its signal line at the last price.
// Returns (0, 0) when there are fewer than slow+signal prices.
func MACD(prices []float64, fast, slow, signal int) (float64, float64) {
	if len(prices) < slow+signal || fast <= 0 || slow <= 0 || signal <= 0 {
		return 0.0, 0.0
	}

	emaFast := EMA(prices, fast)
	emaSlow := EMA(prices, slow)
	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig := EMA(line, signal)

	return line[len(line)-1], sig[len(sig)-1]
}

// Bollinger returns upper, middle and lower bands over the last period prices.
func Bollinger(prices []float64, period int, mult float64) (float64, float64, float64) {
	if len(prices) == 0 {
		return 0, 0, 0
	}
	if period <= 0 || len(prices) < period {
		last := prices[len(prices)-1]
		return last * 1.02, last, last * 0.98
	}

	window := prices[len(prices)-period:]
	middle := mean(window)
	sd := stddev(window)
	if math.IsNaN(sd) {
		sd = 0
	}
	return middle + mult*sd, middle, middle - mult*sd
}

// VolumeRatio is the last volume divided by the mean of the last period volumes.
func VolumeRatio(volumes []float64, period int) float64 {
	if period <= 0 || len(volumes) < period {
		return 1.0
	}
	avg := mean(volumes[len(volumes)-period:])
	if avg == 0 {
		return 1.0
	}
	ratio := volumes[len(volumes)-1] / avg
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 0 {
		return 1.0
	}
	return ratio
}

// Volatility is the sample standard deviation of the last period simple returns.
// The value is not annualized.
func Volatility(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 0.01
	}
	r := Returns(prices[len(prices)-period-1:])
	v := stddev(r)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.01
	}
	return v
}

// Momentum is the rate of change between the last price and prices[len-period].
func Momentum(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 0.0
	}
	base := prices[len(prices)-period]
	m := (prices[len(prices)-1] - base) / base
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0.0
	}
	return m
}

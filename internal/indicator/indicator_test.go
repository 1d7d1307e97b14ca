package indicator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/paper-desk/internal/domain"
)

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func randomWalk(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	p := 100.0
	for i := range out {
		p *= 1 + (rng.Float64()-0.5)*0.04
		out[i] = p
	}
	return out
}

func TestRSI(t *testing.T) {
	t.Run("insufficient history is neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, RSI(linear(14, 100, 1), 14))
		assert.Equal(t, 50.0, RSI(nil, 14))
	})
	t.Run("only gains", func(t *testing.T) {
		assert.Equal(t, 100.0, RSI(linear(30, 100, 1), 14))
	})
	t.Run("only losses", func(t *testing.T) {
		assert.Equal(t, 0.0, RSI(linear(30, 100, -1), 14))
	})
	t.Run("flat", func(t *testing.T) {
		assert.Equal(t, 50.0, RSI(linear(30, 100, 0), 14))
	})
	t.Run("mixed", func(t *testing.T) {
		// gains 1.0, losses 0.5 over two deltas: rs = 2
		assert.InDelta(t, 200.0/3.0, RSI([]float64{10, 11, 10.5}, 2), 1e-9)
	})
	t.Run("bounded", func(t *testing.T) {
		for seed := int64(1); seed <= 20; seed++ {
			v := RSI(randomWalk(100, seed), 14)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	})
}

func TestEMA(t *testing.T) {
	got := EMA([]float64{1, 2, 3}, 3)
	require.Len(t, got, 3)
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, 1.5, got[1], 1e-12)
	assert.InDelta(t, 2.25, got[2], 1e-12)
	assert.Empty(t, EMA(nil, 3))
}

func TestMACD(t *testing.T) {
	macd, signal := MACD(linear(34, 100, 1), 12, 26, 9)
	assert.Equal(t, 0.0, macd)
	assert.Equal(t, 0.0, signal)

	macd, signal = MACD(linear(60, 100, 0), 12, 26, 9)
	assert.InDelta(t, 0.0, macd, 1e-12)
	assert.InDelta(t, 0.0, signal, 1e-12)

	macd, signal = MACD(linear(60, 100, 1), 12, 26, 9)
	assert.Greater(t, macd, 0.0)
	assert.Greater(t, signal, 0.0)

	macd, _ = MACD(linear(60, 200, -1), 12, 26, 9)
	assert.Less(t, macd, 0.0)
}

func TestBollinger(t *testing.T) {
	t.Run("short history", func(t *testing.T) {
		u, m, l := Bollinger(linear(19, 81, 1), 20, 2)
		assert.InDelta(t, 99*1.02, u, 1e-9)
		assert.InDelta(t, 99.0, m, 1e-9)
		assert.InDelta(t, 99*0.98, l, 1e-9)
	})
	t.Run("empty", func(t *testing.T) {
		u, m, l := Bollinger(nil, 20, 2)
		assert.Zero(t, u)
		assert.Zero(t, m)
		assert.Zero(t, l)
	})
	t.Run("sample stddev", func(t *testing.T) {
		u, m, l := Bollinger(linear(20, 1, 1), 20, 2)
		sd := math.Sqrt(35)
		assert.InDelta(t, 10.5, m, 1e-9)
		assert.InDelta(t, 10.5+2*sd, u, 1e-9)
		assert.InDelta(t, 10.5-2*sd, l, 1e-9)
	})
	t.Run("uses last window", func(t *testing.T) {
		prices := append(linear(10, 1000, 50), linear(20, 5, 0)...)
		u, m, l := Bollinger(prices, 20, 2)
		assert.Equal(t, []float64{5, 5, 5}, []float64{u, m, l})
	})
	t.Run("ordered", func(t *testing.T) {
		u, m, l := Bollinger(randomWalk(80, 7), 20, 2)
		assert.GreaterOrEqual(t, u, m)
		assert.GreaterOrEqual(t, m, l)
	})
}

func TestVolumeRatio(t *testing.T) {
	assert.Equal(t, 1.0, VolumeRatio(linear(19, 10, 0), 20))
	assert.Equal(t, 1.0, VolumeRatio(linear(25, 0, 0), 20))

	volumes := append(linear(19, 10, 0), 30)
	assert.InDelta(t, 30.0/11.0, VolumeRatio(volumes, 20), 1e-12)
}

func TestVolatility(t *testing.T) {
	assert.Equal(t, 0.01, Volatility(linear(20, 100, 1), 20))
	assert.InDelta(t, 0.0, Volatility(linear(21, 100, 0), 20), 1e-12)

	geometric := make([]float64, 30)
	geometric[0] = 100
	for i := 1; i < len(geometric); i++ {
		geometric[i] = geometric[i-1] * 1.01
	}
	assert.InDelta(t, 0.0, Volatility(geometric, 20), 1e-12)

	zeros := append(linear(20, 0, 0), 1)
	assert.Equal(t, 0.01, Volatility(zeros, 20))

	v := Volatility(randomWalk(60, 3), 20)
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 0.05)
}

func TestMomentum(t *testing.T) {
	assert.Equal(t, 0.0, Momentum(linear(10, 1, 1), 10))
	// base is prices[len-10] = 2
	assert.InDelta(t, 4.5, Momentum(linear(11, 1, 1), 10), 1e-12)

	zeroBase := append([]float64{5}, linear(10, 0, 0)...)
	assert.Equal(t, 0.0, Momentum(zeroBase, 10))

	assert.Less(t, Momentum(linear(30, 100, -1), 10), 0.0)
}

func TestAll(t *testing.T) {
	prices := randomWalk(120, 11)
	volumes := randomWalk(120, 12)

	first := All(prices, volumes)
	second := All(prices, volumes)
	assert.Equal(t, first, second)

	noVolume := All(prices, nil)
	assert.Equal(t, 1.0, noVolume.VolumeRatio)
	assert.Equal(t, first.RSI, noVolume.RSI)
	assert.Equal(t, first.Momentum, noVolume.Momentum)

	short := All([]float64{42}, nil)
	assert.Equal(t, 50.0, short.RSI)
	assert.Zero(t, short.MACD)
	assert.Zero(t, short.MACDSignal)
	assert.InDelta(t, 42.84, short.BBUpper, 1e-9)
	assert.Equal(t, 42.0, short.BBMiddle)
	assert.InDelta(t, 41.16, short.BBLower, 1e-9)
	assert.Equal(t, 1.0, short.VolumeRatio)
	assert.Equal(t, 0.01, short.Volatility)
	assert.Zero(t, short.Momentum)
}

func TestFromBars(t *testing.T) {
	prices := randomWalk(50, 5)
	bars := make([]domain.PriceBar, len(prices))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		bars[i] = domain.PriceBar{Time: start.Add(time.Duration(i) * time.Hour), Close: p, Volume: float64(1000 + i)}
	}
	assert.Equal(t, All(domain.Closes(bars), domain.Volumes(bars)), FromBars(bars))
}

func TestValidateSeries(t *testing.T) {
	require.NoError(t, ValidateSeries([]float64{1, 2, 3}, nil))
	require.NoError(t, ValidateSeries([]float64{1, 2, 3}, []float64{0, 5, 7}))

	for name, tc := range map[string]struct{ prices, volumes []float64 }{
		"empty":           {prices: nil},
		"length mismatch": {prices: []float64{1, 2}, volumes: []float64{1}},
		"negative price":  {prices: []float64{-5, -4, -3}},
		"zero price":      {prices: []float64{1, 0}},
		"nan price":       {prices: []float64{1, math.NaN()}},
		"inf price":       {prices: []float64{math.Inf(1)}},
		"negative volume": {prices: []float64{1, 2}, volumes: []float64{1, -2}},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateSeries(tc.prices, tc.volumes), domain.ErrInvalidInput)
		})
	}
}

func TestValidSeriesKeepsBandOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 50 + rng.Float64()*10
	}
	require.NoError(t, ValidateSeries(prices, nil))

	set := DefaultParams().Compute(prices, nil)
	require.True(t, Finite(set))
	assert.GreaterOrEqual(t, set.BBUpper, set.BBMiddle)
	assert.GreaterOrEqual(t, set.BBMiddle, set.BBLower)

	set.Volatility = math.Inf(1)
	assert.False(t, Finite(set))
}

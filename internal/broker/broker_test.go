package broker

import (
	"testing"
	"time"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestPickUID(t *testing.T) {
	uid, ok := pickUID("SBER", []string{"SBERP", "SBER"}, []string{"u-pref", "u-common"})
	require.True(t, ok)
	assert.Equal(t, "u-common", uid)

	uid, ok = pickUID("GAZP", []string{"GAZPX"}, []string{"u-first"})
	require.True(t, ok)
	assert.Equal(t, "u-first", uid)

	_, ok = pickUID("NONE", nil, nil)
	assert.False(t, ok)
}

func TestCandleInterval(t *testing.T) {
	iv, step := candleInterval("1d")
	assert.Equal(t, pb.CandleInterval_CANDLE_INTERVAL_DAY, iv)
	assert.Equal(t, 24*time.Hour, step)

	iv, step = candleInterval("bogus")
	assert.Equal(t, pb.CandleInterval_CANDLE_INTERVAL_HOUR, iv)
	assert.Equal(t, time.Hour, step)
}

func TestLookback(t *testing.T) {
	assert.Equal(t, 30*time.Hour, lookback(time.Hour, 10))
	assert.Equal(t, 7*24*time.Hour, lookback(time.Hour, 200))
	assert.Equal(t, 24*time.Hour, lookback(15*time.Minute, 500))
	assert.Equal(t, 3*time.Hour, lookback(time.Hour, 0))
}

func TestToBars(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	candles := []*pb.HistoricCandle{
		{
			Time:   timestamppb.New(t0.Add(time.Hour)),
			Open:   &pb.Quotation{Units: 281, Nano: 500000000},
			High:   &pb.Quotation{Units: 283},
			Low:    &pb.Quotation{Units: 280},
			Close:  &pb.Quotation{Units: 282, Nano: 250000000},
			Volume: 1500,
		},
		{
			Time:   timestamppb.New(t0),
			Open:   &pb.Quotation{Units: 280},
			High:   &pb.Quotation{Units: 282},
			Low:    &pb.Quotation{Units: 279},
			Close:  &pb.Quotation{Units: 281, Nano: 500000000},
			Volume: 900,
		},
	}

	bars := toBars(candles)
	require.Len(t, bars, 2)
	assert.Equal(t, t0, bars[0].Time)
	assert.InDelta(t, 281.5, bars[0].Close, 1e-9)
	assert.InDelta(t, 282.25, bars[1].Close, 1e-9)
	assert.Equal(t, 1500.0, bars[1].Volume)
}

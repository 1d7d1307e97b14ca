package broker

import (
	"context"
	"fmt"
	"sort"
	"time"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/marketdata"
)

var _ marketdata.Source = (*BrokerClient)(nil)

// Bars returns up to limit candles for a MOEX ticker, oldest first.
func (bc *BrokerClient) Bars(ctx context.Context, ref domain.AssetRef, limit int) ([]domain.PriceBar, error) {
	interval, step := candleInterval(bc.interval)
	return bc.candles(ctx, ref, interval, lookback(step, limit), limit)
}

// CurrentPrice is the close of the most recent hourly candle.
func (bc *BrokerClient) CurrentPrice(ctx context.Context, ref domain.AssetRef) (float64, error) {
	bars, err := bc.candles(ctx, ref, pb.CandleInterval_CANDLE_INTERVAL_HOUR, 4*24*time.Hour, 1)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("%w: no recent candles for %s", domain.ErrUnavailable, ref.Symbol)
	}
	return bars[len(bars)-1].Close, nil
}

func (bc *BrokerClient) candles(ctx context.Context, ref domain.AssetRef, interval pb.CandleInterval, window time.Duration, limit int) ([]domain.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uid, err := bc.ResolveTickerToUID(ref.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	now := time.Now()
	md := bc.Client.NewMarketDataServiceClient()
	resp, err := md.GetCandles(
		uid,
		interval,
		now.Add(-window), now,
		pb.GetCandlesRequest_CANDLE_SOURCE_EXCHANGE,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: get candles %s: %v", domain.ErrUnavailable, ref.Symbol, err)
	}

	bars := toBars(resp.GetCandles())
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

func toBars(candles []*pb.HistoricCandle) []domain.PriceBar {
	bars := make([]domain.PriceBar, 0, len(candles))
	for _, c := range candles {
		bars = append(bars, domain.PriceBar{
			Time:   c.GetTime().AsTime().UTC(),
			Open:   c.GetOpen().ToFloat(),
			High:   c.GetHigh().ToFloat(),
			Low:    c.GetLow().ToFloat(),
			Close:  c.GetClose().ToFloat(),
			Volume: float64(c.GetVolume()),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}

func candleInterval(s string) (pb.CandleInterval, time.Duration) {
	switch s {
	case "1m":
		return pb.CandleInterval_CANDLE_INTERVAL_1_MIN, time.Minute
	case "5m":
		return pb.CandleInterval_CANDLE_INTERVAL_5_MIN, 5 * time.Minute
	case "15m":
		return pb.CandleInterval_CANDLE_INTERVAL_15_MIN, 15 * time.Minute
	case "1d":
		return pb.CandleInterval_CANDLE_INTERVAL_DAY, 24 * time.Hour
	default:
		return pb.CandleInterval_CANDLE_INTERVAL_HOUR, time.Hour
	}
}

// maxWindow is the widest from/to span GetCandles accepts per interval.
func maxWindow(step time.Duration) time.Duration {
	switch {
	case step < time.Hour:
		return 24 * time.Hour
	case step < 24*time.Hour:
		return 7 * 24 * time.Hour
	default:
		return 365 * 24 * time.Hour
	}
}

// lookback widens limit*step to cover nights and weekends, capped at the
// API window.
func lookback(step time.Duration, limit int) time.Duration {
	if limit <= 0 {
		limit = 1
	}
	w := step * time.Duration(limit) * 3
	if m := maxWindow(step); w > m {
		return m
	}
	return w
}

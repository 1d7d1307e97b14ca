package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
)

// metalTickers maps metal asset classes to front-month futures on Yahoo.
var metalTickers = map[domain.AssetClass]string{
	domain.AssetGold:      "GC=F",
	domain.AssetSilver:    "SI=F",
	domain.AssetPalladium: "PA=F",
}

// Yahoo reads the public Yahoo Finance chart API.
type Yahoo struct {
	client   *http.Client
	baseURL  string
	interval string
}

func NewYahoo(baseURL, interval, proxy string, timeout time.Duration) *Yahoo {
	return &Yahoo{
		client:   newHTTPClient(proxy, timeout),
		baseURL:  strings.TrimRight(baseURL, "/"),
		interval: interval,
	}
}

// Ticker converts an asset reference to a Yahoo ticker. Share classes use a
// dash on Yahoo, so BRK_B becomes BRK-B.
func Ticker(ref domain.AssetRef) string {
	if t, ok := metalTickers[ref.Class]; ok && !strings.Contains(ref.Symbol, "=") {
		return t
	}
	if ref.Kind == domain.KindCryptoPair {
		return ref.Base + "-" + ref.Quote
	}
	return strings.ReplaceAll(ref.Symbol, "_", "-")
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) Bars(ctx context.Context, ref domain.AssetRef, limit int) ([]domain.PriceBar, error) {
	chart, err := y.fetchChart(ctx, Ticker(ref), y.interval, yahooRange(y.interval, limit))
	if err != nil {
		return nil, err
	}
	return tail(chartBars(chart), limit), nil
}

func (y *Yahoo) CurrentPrice(ctx context.Context, ref domain.AssetRef) (float64, error) {
	chart, err := y.fetchChart(ctx, Ticker(ref), "1d", "5d")
	if err != nil {
		return 0, err
	}
	if p := chart.Chart.Result[0].Meta.RegularMarketPrice; p > 0 {
		return p, nil
	}
	bars := chartBars(chart)
	if len(bars) == 0 {
		return 0, fmt.Errorf("%w: yahoo: no price data for %s", domain.ErrUnavailable, ref.Symbol)
	}
	return bars[len(bars)-1].Close, nil
}

func (y *Yahoo) fetchChart(ctx context.Context, ticker, interval, rng string) (*yahooChart, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		y.baseURL, url.PathEscape(ticker), url.QueryEscape(interval), rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo fetch: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo: status %d, body: %.200s", domain.ErrUnavailable, resp.StatusCode, body)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error: %s", domain.ErrUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo: no data returned for %s", domain.ErrUnavailable, ticker)
	}
	return &chart, nil
}

func chartBars(chart *yahooChart) []domain.PriceBar {
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]
	bars := make([]domain.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c == 0 {
			continue // null bar (holiday or halted)
		}
		bars = append(bars, domain.PriceBar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

// yahooRange picks the smallest chart range that covers limit bars.
func yahooRange(interval string, limit int) string {
	var barsPerDay float64
	switch interval {
	case "1m":
		barsPerDay = 390
	case "5m":
		barsPerDay = 78
	case "15m":
		barsPerDay = 26
	case "30m":
		barsPerDay = 13
	case "1h", "60m":
		barsPerDay = 7
	case "1wk":
		barsPerDay = 0.2
	default:
		barsPerDay = 1
	}

	days := float64(limit) / barsPerDay * 1.5
	for _, r := range []struct {
		name string
		days float64
	}{
		{"5d", 5}, {"1mo", 30}, {"3mo", 90}, {"6mo", 180}, {"1y", 365}, {"2y", 730},
	} {
		if days <= r.days {
			return r.name
		}
	}
	return "5y"
}

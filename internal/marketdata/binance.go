package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
)

// maxKlines is the per-request cap of the klines endpoint.
const maxKlines = 1000

// Binance reads spot klines and ticker prices from the Binance REST API.
type Binance struct {
	client   *http.Client
	baseURL  string
	interval string
}

func NewBinance(baseURL, interval, proxy string, timeout time.Duration) *Binance {
	return &Binance{
		client:   newHTTPClient(proxy, timeout),
		baseURL:  strings.TrimRight(baseURL, "/"),
		interval: interval,
	}
}

// PairSymbol converts BTC_USD to BTCUSDT. Binance quotes dollars in USDT.
func PairSymbol(ref domain.AssetRef) string {
	quote := ref.Quote
	if quote == "USD" {
		quote = "USDT"
	}
	return ref.Base + quote
}

func (b *Binance) Bars(ctx context.Context, ref domain.AssetRef, limit int) ([]domain.PriceBar, error) {
	if ref.Kind != domain.KindCryptoPair {
		return nil, fmt.Errorf("%w: binance serves crypto pairs only, got %s", domain.ErrInvalidInput, ref.Symbol)
	}
	if limit <= 0 || limit > maxKlines {
		limit = maxKlines
	}

	q := url.Values{}
	q.Set("symbol", PairSymbol(ref))
	q.Set("interval", b.interval)
	q.Set("limit", strconv.Itoa(limit))

	var rows [][]json.RawMessage
	if err := b.get(ctx, "/api/v3/klines", q, &rows); err != nil {
		return nil, err
	}

	bars := make([]domain.PriceBar, 0, len(rows))
	for _, row := range rows {
		bar, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("binance kline: %w", err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (b *Binance) CurrentPrice(ctx context.Context, ref domain.AssetRef) (float64, error) {
	if ref.Kind != domain.KindCryptoPair {
		return 0, fmt.Errorf("%w: binance serves crypto pairs only, got %s", domain.ErrInvalidInput, ref.Symbol)
	}

	q := url.Values{}
	q.Set("symbol", PairSymbol(ref))

	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := b.get(ctx, "/api/v3/ticker/price", q, &ticker); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance price %q: %w", ticker.Price, err)
	}
	return price, nil
}

func (b *Binance) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: binance fetch: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("binance read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: binance: status %d, body: %.200s", domain.ErrUnavailable, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("binance decode: %w", err)
	}
	return nil
}

// parseKline reads [openTime, open, high, low, close, volume, ...].
func parseKline(row []json.RawMessage) (domain.PriceBar, error) {
	if len(row) < 6 {
		return domain.PriceBar{}, fmt.Errorf("expected at least 6 fields, got %d", len(row))
	}

	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return domain.PriceBar{}, fmt.Errorf("open time: %w", err)
	}

	vals := make([]float64, 5)
	for i := range vals {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return domain.PriceBar{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.PriceBar{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}

	return domain.PriceBar{
		Time:   time.UnixMilli(openTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
)

// moscow is fixed at UTC+3; ISS timestamps carry no zone.
var moscow = time.FixedZone("MSK", 3*60*60)

const moexBoard = "/iss/engines/stock/markets/shares/boards/TQBR/securities/"

// MOEX reads TQBR share candles from the public MOEX ISS API. It needs no
// token, unlike the broker source.
type MOEX struct {
	client   *http.Client
	baseURL  string
	interval string
}

func NewMOEX(baseURL, interval, proxy string, timeout time.Duration) *MOEX {
	return &MOEX{
		client:   newHTTPClient(proxy, timeout),
		baseURL:  strings.TrimRight(baseURL, "/"),
		interval: interval,
	}
}

// issTable is the columnar block ISS returns for every section.
type issTable struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

func (t issTable) index(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

func (m *MOEX) Bars(ctx context.Context, ref domain.AssetRef, limit int) ([]domain.PriceBar, error) {
	interval, step := issInterval(m.interval)
	if limit <= 0 {
		limit = 1
	}
	from := time.Now().In(moscow).Add(-lookback(step, limit))

	q := url.Values{}
	q.Set("iss.meta", "off")
	q.Set("interval", interval)
	q.Set("from", from.Format("2006-01-02"))

	var resp struct {
		Candles issTable `json:"candles"`
	}
	if err := m.get(ctx, moexBoard+url.PathEscape(ref.Symbol)+"/candles.json", q, &resp); err != nil {
		return nil, err
	}

	bars, err := issBars(resp.Candles)
	if err != nil {
		return nil, err
	}
	return tail(bars, limit), nil
}

func (m *MOEX) CurrentPrice(ctx context.Context, ref domain.AssetRef) (float64, error) {
	q := url.Values{}
	q.Set("iss.meta", "off")
	q.Set("iss.only", "marketdata")
	q.Set("marketdata.columns", "SECID,LAST")

	var resp struct {
		Marketdata issTable `json:"marketdata"`
	}
	if err := m.get(ctx, moexBoard+url.PathEscape(ref.Symbol)+".json", q, &resp); err != nil {
		return 0, err
	}

	col := resp.Marketdata.index("LAST")
	for _, row := range resp.Marketdata.Data {
		if col < 0 || col >= len(row) {
			break
		}
		if last := toFloat64(row[col]); last > 0 {
			return last, nil
		}
	}
	// Trading suspended or outside the session.
	return 0, fmt.Errorf("%w: moex: no last price for %s", domain.ErrUnavailable, ref.Symbol)
}

func (m *MOEX) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: moex fetch: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: MOEX ISS returned status %d", domain.ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse ISS response: %w", err)
	}
	return nil
}

// issBars converts candle rows, oldest first. Rows with a zero close are
// skipped.
func issBars(t issTable) ([]domain.PriceBar, error) {
	cols := map[string]int{}
	for _, name := range []string{"open", "close", "high", "low", "volume", "begin"} {
		i := t.index(name)
		if i < 0 {
			return nil, fmt.Errorf("ISS candles: missing column %q", name)
		}
		cols[name] = i
	}

	bars := make([]domain.PriceBar, 0, len(t.Data))
	for _, row := range t.Data {
		if len(row) < len(t.Columns) {
			continue
		}
		begin, _ := row[cols["begin"]].(string)
		ts, err := time.ParseInLocation("2006-01-02 15:04:05", begin, moscow)
		if err != nil {
			return nil, fmt.Errorf("ISS candle time %q: %w", begin, err)
		}
		bar := domain.PriceBar{
			Time:   ts.UTC(),
			Open:   toFloat64(row[cols["open"]]),
			High:   toFloat64(row[cols["high"]]),
			Low:    toFloat64(row[cols["low"]]),
			Close:  toFloat64(row[cols["close"]]),
			Volume: toFloat64(row[cols["volume"]]),
		}
		if bar.Close == 0 {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// issInterval maps a bar interval to the ISS interval code and its length.
func issInterval(s string) (string, time.Duration) {
	switch s {
	case "1m":
		return "1", time.Minute
	case "10m":
		return "10", 10 * time.Minute
	case "1d":
		return "24", 24 * time.Hour
	case "1w":
		return "7", 7 * 24 * time.Hour
	default:
		return "60", time.Hour
	}
}

// lookback covers limit bars with room for nights and weekends.
func lookback(step time.Duration, limit int) time.Duration {
	d := step * time.Duration(limit) * 3
	if step < 24*time.Hour {
		d += 4 * 24 * time.Hour
	}
	return d
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// Package marketdata fetches OHLCV history and spot prices for assets.
package marketdata

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
)

// Source returns bars oldest first.
type Source interface {
	Bars(ctx context.Context, ref domain.AssetRef, limit int) ([]domain.PriceBar, error)
	CurrentPrice(ctx context.Context, ref domain.AssetRef) (float64, error)
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func tail(bars []domain.PriceBar, limit int) []domain.PriceBar {
	if limit > 0 && len(bars) > limit {
		return bars[len(bars)-limit:]
	}
	return bars
}

package broker

import (
	"fmt"
	"strings"
	"sync"
)

type uidCache struct {
	mu   sync.RWMutex
	byTk map[string]string // ticker -> instrument UID
}

func newUIDCache() *uidCache {
	return &uidCache{byTk: make(map[string]string)}
}

func (c *uidCache) get(ticker string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	uid, ok := c.byTk[ticker]
	return uid, ok
}

func (c *uidCache) put(ticker, uid string) {
	c.mu.Lock()
	c.byTk[ticker] = uid
	c.mu.Unlock()
}

// ResolveTickerToUID resolves a ticker to its instrument UID using the instruments service.
func (bc *BrokerClient) ResolveTickerToUID(ticker string) (string, error) {
	ticker = strings.ToUpper(ticker)
	if uid, ok := bc.uids.get(ticker); ok {
		return uid, nil
	}

	instruments := bc.Client.NewInstrumentsServiceClient()
	resp, err := instruments.FindInstrument(ticker)
	if err != nil {
		return "", fmt.Errorf("find instrument %s: %w", ticker, err)
	}

	var tickers, uids []string
	for _, inst := range resp.GetInstruments() {
		tickers = append(tickers, inst.GetTicker())
		uids = append(uids, inst.GetUid())
	}

	uid, ok := pickUID(ticker, tickers, uids)
	if !ok {
		return "", fmt.Errorf("instrument not found: %s", ticker)
	}
	bc.uids.put(ticker, uid)
	return uid, nil
}

// pickUID prefers an exact ticker match and falls back to the first hit.
func pickUID(ticker string, tickers, uids []string) (string, bool) {
	for i, tk := range tickers {
		if strings.EqualFold(tk, ticker) && uids[i] != "" {
			return uids[i], true
		}
	}
	if len(uids) > 0 && uids[0] != "" {
		return uids[0], true
	}
	return "", false
}

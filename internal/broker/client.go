// Package broker reads MOEX market data through the T-Invest API.
package broker

import (
	"context"
	"fmt"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"

	"github.com/camuig/paper-desk/internal/config"
	"github.com/camuig/paper-desk/internal/logger"
)

const (
	sandboxEndpoint = "sandbox-invest-public-api.tinkoff.ru:443"
	liveEndpoint    = "invest-public-api.tinkoff.ru:443"
)

// BrokerClient is read-only: positions are paper positions kept by the
// ledger and nothing is ever routed to the exchange.
type BrokerClient struct {
	Client   *investgo.Client
	Logger   *logger.Logger
	interval string
	uids     *uidCache
}

func NewBrokerClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*BrokerClient, error) {
	if cfg.Tinkoff.Token == "" {
		return nil, fmt.Errorf("tinkoff token is required")
	}

	endpoint := liveEndpoint
	if cfg.IsSandbox() {
		endpoint = sandboxEndpoint
	}

	investCfg := investgo.Config{
		EndPoint:  endpoint,
		Token:     cfg.Tinkoff.Token,
		AccountId: cfg.Tinkoff.AccountID,
		AppName:   "paper-desk",
	}

	client, err := investgo.NewClient(ctx, investCfg, log)
	if err != nil {
		return nil, fmt.Errorf("create investgo client: %w", err)
	}

	return &BrokerClient{
		Client:   client,
		Logger:   log.With("component", "broker"),
		interval: cfg.MarketData.Interval,
		uids:     newUIDCache(),
	}, nil
}

func (bc *BrokerClient) Stop() error {
	return bc.Client.Stop()
}

package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssetRef(t *testing.T) {
	tests := []struct {
		name   string
		class  AssetClass
		symbol string
		want   AssetRef
	}{
		{"equity", AssetNasdaq, "aapl", Equity(AssetNasdaq, "AAPL")},
		{"explicit crypto", AssetCrypto, "BTC_USD", CryptoPair("BTC", "USD")},
		{"crypto slash", AssetCrypto, "eth/usdt", CryptoPair("ETH", "USDT")},
		{"crypto bare base", AssetCrypto, "SOL", CryptoPair("SOL", "USD")},
		{"inferred crypto", "", "BTC_USD", CryptoPair("BTC", "USD")},
		{"inferred equity share class", "", "BRK_B", Equity(AssetNasdaq, "BRK_B")},
		{"metal", AssetGold, "GLD", Equity(AssetGold, "GLD")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssetRef(tt.class, tt.symbol)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAssetRefRejects(t *testing.T) {
	for _, tc := range []struct {
		class  AssetClass
		symbol string
	}{
		{AssetNasdaq, ""},
		{"FOREX", "EURUSD"},
		{AssetCrypto, "_USD"},
	} {
		_, err := ParseAssetRef(tc.class, tc.symbol)
		assert.True(t, errors.Is(err, ErrInvalidInput), "%s/%s", tc.class, tc.symbol)
	}
}

func TestSignalIsDegraded(t *testing.T) {
	assert.True(t, Signal{ModelVersion: "1.0.0-dummy"}.IsDegraded())
	assert.False(t, Signal{ModelVersion: "1.0.0"}.IsDegraded())
}

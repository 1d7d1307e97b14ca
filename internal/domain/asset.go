package domain

import (
	"fmt"
	"strings"
)

type AssetClass string

const (
	AssetNasdaq    AssetClass = "NASDAQ"
	AssetCrypto    AssetClass = "CRYPTO"
	AssetGold      AssetClass = "GOLD"
	AssetSilver    AssetClass = "SILVER"
	AssetPalladium AssetClass = "PALLADIUM"
	AssetMOEX      AssetClass = "MOEX"
)

func (c AssetClass) Valid() bool {
	switch c {
	case AssetNasdaq, AssetCrypto, AssetGold, AssetSilver, AssetPalladium, AssetMOEX:
		return true
	}
	return false
}

type AssetKind int

const (
	KindEquity AssetKind = iota
	KindCryptoPair
)

func (k AssetKind) String() string {
	if k == KindCryptoPair {
		return "crypto"
	}
	return "equity"
}

// AssetRef identifies a tradable instrument. It is resolved once from the
// user-facing (class, symbol) pair and passed around structurally.
type AssetRef struct {
	Kind   AssetKind
	Class  AssetClass
	Symbol string
	Base   string
	Quote  string
}

func Equity(class AssetClass, symbol string) AssetRef {
	return AssetRef{Kind: KindEquity, Class: class, Symbol: symbol}
}

func CryptoPair(base, quote string) AssetRef {
	return AssetRef{
		Kind:   KindCryptoPair,
		Class:  AssetCrypto,
		Symbol: base + "_" + quote,
		Base:   base,
		Quote:  quote,
	}
}

// ParseAssetRef resolves an asset class and symbol such as "AAPL" or "BTC_USD".
// An empty class is inferred from the symbol shape.
func ParseAssetRef(class AssetClass, symbol string) (AssetRef, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return AssetRef{}, fmt.Errorf("%w: asset symbol is required", ErrInvalidInput)
	}
	if class == "" {
		class = AssetNasdaq
		if base, quote, ok := splitPair(symbol); ok && isCryptoQuote(quote) && base != "" {
			class = AssetCrypto
		}
	}
	if !class.Valid() {
		return AssetRef{}, fmt.Errorf("%w: unknown asset class %q", ErrInvalidInput, class)
	}
	if class != AssetCrypto {
		return Equity(class, symbol), nil
	}

	base, quote, ok := splitPair(symbol)
	if !ok {
		base, quote = symbol, "USD"
	}
	if base == "" || quote == "" {
		return AssetRef{}, fmt.Errorf("%w: malformed crypto pair %q", ErrInvalidInput, symbol)
	}
	return CryptoPair(base, quote), nil
}

func (a AssetRef) String() string {
	return a.Symbol
}

// Key identifies the asset across classes, e.g. "MOEX:SBER".
func (a AssetRef) Key() string {
	return string(a.Class) + ":" + a.Symbol
}

func splitPair(symbol string) (string, string, bool) {
	for _, sep := range []string{"_", "/", "-"} {
		if base, quote, ok := strings.Cut(symbol, sep); ok {
			return base, quote, true
		}
	}
	return "", "", false
}

func isCryptoQuote(quote string) bool {
	switch quote {
	case "USD", "USDT", "USDC", "BTC", "ETH", "EUR":
		return true
	}
	return false
}

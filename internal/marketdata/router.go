package marketdata

import (
	"context"
	"fmt"

	"github.com/camuig/paper-desk/internal/domain"
)

// Router dispatches by asset kind and class. Nil routes report
// domain.ErrUnavailable.
type Router struct {
	Equities Source
	Crypto   Source
	MOEX     Source
}

var _ Source = (*Router)(nil)

func (r *Router) route(ref domain.AssetRef) (Source, error) {
	var s Source
	switch {
	case ref.Kind == domain.KindCryptoPair:
		s = r.Crypto
	case ref.Class == domain.AssetMOEX:
		s = r.MOEX
	default:
		s = r.Equities
	}
	if s == nil {
		return nil, fmt.Errorf("%w: no market data source for %s %s", domain.ErrUnavailable, ref.Class, ref.Symbol)
	}
	return s, nil
}

func (r *Router) Bars(ctx context.Context, ref domain.AssetRef, limit int) ([]domain.PriceBar, error) {
	s, err := r.route(ref)
	if err != nil {
		return nil, err
	}
	return s.Bars(ctx, ref, limit)
}

func (r *Router) CurrentPrice(ctx context.Context, ref domain.AssetRef) (float64, error) {
	s, err := r.route(ref)
	if err != nil {
		return 0, err
	}
	return s.CurrentPrice(ctx, ref)
}

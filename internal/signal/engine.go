// Package signal turns indicator sets and model probabilities into BUY, SELL
// or HOLD decisions.
package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/logger"
)

const (
	DefaultThreshold    = 0.5
	DefaultModelVersion = "1.0.0"
)

// Observer is notified of every signal the engine emits.
type Observer interface {
	ObserveSignal(sig domain.Signal)
}

// Decide applies the threshold policy to a predicted class (1 up, 0 down).
func Decide(class int, confidence, threshold float64) (domain.SignalKind, domain.Direction) {
	if confidence < threshold {
		return domain.SignalHold, domain.DirectionNeutral
	}
	if class == 1 {
		return domain.SignalBuy, domain.DirectionUp
	}
	return domain.SignalSell, domain.DirectionDown
}

func directionOf(kind domain.SignalKind) domain.Direction {
	switch kind {
	case domain.SignalBuy:
		return domain.DirectionUp
	case domain.SignalSell:
		return domain.DirectionDown
	default:
		return domain.DirectionNeutral
	}
}

type Engine struct {
	resolver  Resolver
	threshold float64
	null      *NullModel
	observers []Observer
	logger    *logger.Logger
	now       func() time.Time
}

type Option func(*Engine)

func WithThreshold(threshold float64) Option {
	return func(e *Engine) { e.threshold = threshold }
}

func WithNullModel(n *NullModel) Option {
	return func(e *Engine) { e.null = n }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(resolver Resolver, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		resolver:  resolver,
		threshold: DefaultThreshold,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.null == nil {
		e.null = NewNullModel(DefaultModelVersion, nil)
	}
	return e
}

func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Evaluate converts a probability pair into a signal without consulting a model.
func (e *Engine) Evaluate(symbol string, probs ProbabilityPair, version string, ind domain.IndicatorSet, currentPrice *float64) domain.Signal {
	confidence := probs.Confidence()
	kind, dir := Decide(probs.Class(), confidence, e.threshold)
	return domain.Signal{
		Symbol:             symbol,
		Kind:               kind,
		Confidence:         confidence,
		PredictedDirection: dir,
		ModelVersion:       version,
		Timestamp:          e.now(),
		CurrentPrice:       currentPrice,
		Indicators:         ind,
	}
}

// Generate runs the asset's model over ind. A missing or failing model yields
// a degraded signal from the null model; Generate itself never fails.
func (e *Engine) Generate(ctx context.Context, ref domain.AssetRef, ind domain.IndicatorSet, currentPrice *float64) domain.Signal {
	sig, err := e.predict(ctx, ref, ind, currentPrice)
	if err != nil {
		e.logger.Warn("model unavailable, emitting degraded signal",
			"symbol", ref.Symbol, "error", err)
		sig = e.null.Signal(ref.Symbol, ind, currentPrice, e.now())
	}

	e.logger.Debug("signal generated",
		"symbol", sig.Symbol, "signal", sig.Kind,
		"confidence", sig.Confidence, "model_version", sig.ModelVersion)

	for _, o := range e.observers {
		o.ObserveSignal(sig)
	}
	return sig
}

func (e *Engine) predict(ctx context.Context, ref domain.AssetRef, ind domain.IndicatorSet, currentPrice *float64) (domain.Signal, error) {
	if e.resolver == nil {
		return domain.Signal{}, fmt.Errorf("%w: no model registry", domain.ErrUnavailable)
	}
	p, ok := e.resolver.Predictor(ref)
	if !ok || p == nil {
		return domain.Signal{}, fmt.Errorf("%w: no model for %s", domain.ErrUnavailable, ref.Symbol)
	}

	probs, err := p.Predict(ctx, Features(ind))
	if err != nil {
		return domain.Signal{}, fmt.Errorf("predict %s: %w", ref.Symbol, err)
	}
	if err := probs.Validate(); err != nil {
		return domain.Signal{}, fmt.Errorf("predict %s: %w", ref.Symbol, err)
	}

	version := p.Version()
	if version == "" {
		version = DefaultModelVersion
	}
	return e.Evaluate(ref.Symbol, probs, version, ind, currentPrice), nil
}

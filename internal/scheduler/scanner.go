package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/indicator"
	"github.com/camuig/paper-desk/internal/logger"
	"github.com/camuig/paper-desk/internal/marketdata"
	"github.com/camuig/paper-desk/internal/signal"
	"github.com/camuig/paper-desk/internal/storage"
)

// Notifier receives every journaled signal. It decides itself what to push.
type Notifier interface {
	NotifySignal(sig domain.Signal) bool
	NotifyError(context string, err error)
}

// Recorder is the metrics sink for scans.
type Recorder interface {
	RecordScan(d time.Duration, finished time.Time)
	RecordScanError(stage string)
}

// Scanner turns one asset into a journaled signal:
// bars -> indicators -> engine -> signal log -> notifier.
type Scanner struct {
	source   marketdata.Source
	engine   *signal.Engine
	signals  storage.SignalLog
	params   indicator.Params
	lookback int
	timeout  time.Duration
	notifier Notifier
	recorder Recorder
	logger   *logger.Logger
}

type ScannerOption func(*Scanner)

func WithNotifier(n Notifier) ScannerOption {
	return func(s *Scanner) { s.notifier = n }
}

func WithRecorder(r Recorder) ScannerOption {
	return func(s *Scanner) { s.recorder = r }
}

// WithLookback sets how many bars are requested per asset.
func WithLookback(bars int) ScannerOption {
	return func(s *Scanner) { s.lookback = bars }
}

// WithFetchTimeout bounds each market data call.
func WithFetchTimeout(d time.Duration) ScannerOption {
	return func(s *Scanner) { s.timeout = d }
}

func NewScanner(source marketdata.Source, engine *signal.Engine, signals storage.SignalLog, params indicator.Params, log *logger.Logger, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		source:   source,
		engine:   engine,
		signals:  signals,
		params:   params,
		lookback: 200,
		timeout:  15 * time.Second,
		logger:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan fetches fresh bars for ref and journals the resulting signal.
// Market data failures are returned; model failures degrade inside the engine.
func (s *Scanner) Scan(ctx context.Context, ref domain.AssetRef) (domain.Signal, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	bars, err := s.source.Bars(fetchCtx, ref, s.lookback)
	if err != nil {
		s.recordError("bars")
		return domain.Signal{}, fmt.Errorf("fetch bars %s: %w", ref.Symbol, err)
	}
	if len(bars) == 0 {
		s.recordError("bars")
		return domain.Signal{}, fmt.Errorf("%w: no bars for %s", domain.ErrUnavailable, ref.Symbol)
	}

	ind := s.params.Compute(domain.Closes(bars), domain.Volumes(bars))
	price := bars[len(bars)-1].Close

	sig := s.engine.Generate(ctx, ref, ind, &price)
	s.journal(ctx, sig)
	return sig, nil
}

// Emit journals a signal computed from caller-supplied indicators.
func (s *Scanner) Emit(ctx context.Context, ref domain.AssetRef, ind domain.IndicatorSet, price *float64) domain.Signal {
	sig := s.engine.Generate(ctx, ref, ind, price)
	s.journal(ctx, sig)
	return sig
}

func (s *Scanner) journal(ctx context.Context, sig domain.Signal) {
	if s.signals != nil {
		if _, err := s.signals.Append(ctx, sig); err != nil {
			s.recordError("journal")
			s.logger.Error("append signal log", "symbol", sig.Symbol, "error", err)
		}
	}
	if s.notifier != nil {
		s.notifier.NotifySignal(sig)
	}
}

func (s *Scanner) recordError(stage string) {
	if s.recorder != nil {
		s.recorder.RecordScanError(stage)
	}
}

// Package scheduler scans a watchlist on a cron schedule and journals a
// signal per asset.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/camuig/paper-desk/internal/config"
	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/logger"
)

// Report summarizes one watchlist pass.
type Report struct {
	Started  time.Time
	Duration time.Duration
	Signals  []domain.Signal
	// Failed is keyed by AssetRef.Key.
	Failed   map[string]error
}

type Scheduler struct {
	cron        *cron.Cron
	scanner     *Scanner
	watchlist   []domain.AssetRef
	spec        string
	concurrency int
	runOnStart  bool
	logger      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewScheduler(cfg config.SchedulerConfig, watchlist []domain.AssetRef, scanner *Scanner, log *logger.Logger) *Scheduler {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	log = log.With("component", "scheduler")

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})),
		),
		scanner:     scanner,
		watchlist:   watchlist,
		spec:        cfg.Cron,
		concurrency: concurrency,
		runOnStart:  cfg.RunOnStart,
		logger:      log,
	}
}

// ParseWatchlist reads entries such as "AAPL", "BTC_USD" or "MOEX:SBER".
func ParseWatchlist(entries []string) ([]domain.AssetRef, error) {
	refs := make([]domain.AssetRef, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		var class domain.AssetClass
		symbol := e
		if c, s, ok := strings.Cut(e, ":"); ok {
			class, symbol = domain.AssetClass(strings.ToUpper(strings.TrimSpace(c))), s
		}
		ref, err := domain.ParseAssetRef(class, symbol)
		if err != nil {
			return nil, fmt.Errorf("watchlist entry %q: %w", e, err)
		}
		if seen[ref.Key()] {
			continue
		}
		seen[ref.Key()] = true
		refs = append(refs, ref)
	}
	return refs, nil
}

// Start registers the cron job and returns immediately. Jobs stop when ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.spec, func() { s.RunNow(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "cron", s.spec, "assets", len(s.watchlist))

	if s.runOnStart {
		go s.RunNow(ctx)
	}
	return nil
}

// Stop cancels in-flight scans and waits for the running job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow scans the whole watchlist with bounded concurrency.
func (s *Scheduler) RunNow(ctx context.Context) Report {
	report := Report{Started: time.Now().UTC(), Failed: make(map[string]error)}
	if len(s.watchlist) == 0 {
		s.logger.Info("watchlist empty, skipping cycle")
		return report
	}

	s.logger.Info("starting scan cycle", "assets", len(s.watchlist))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency)
	)

	for _, ref := range s.watchlist {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(ref domain.AssetRef) {
			defer wg.Done()
			defer func() { <-sem }()

			sig, err := s.scanOne(ctx, ref)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[ref.Key()] = err
				return
			}
			report.Signals = append(report.Signals, sig)
		}(ref)
	}
	wg.Wait()

	report.Duration = time.Since(report.Started)
	if s.scanner.recorder != nil {
		s.scanner.recorder.RecordScan(report.Duration, time.Now())
	}

	s.logger.Info("scan cycle completed",
		"signals", len(report.Signals), "failed", len(report.Failed),
		"duration", report.Duration.String())

	if len(report.Failed) > 0 && len(report.Signals) == 0 && s.scanner.notifier != nil {
		s.scanner.notifier.NotifyError("scan", fmt.Errorf("all %d assets failed", len(report.Failed)))
	}
	return report
}

func (s *Scheduler) scanOne(ctx context.Context, ref domain.AssetRef) (sig domain.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in scan", "symbol", ref.Symbol, "panic", fmt.Sprint(r))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	sig, err = s.scanner.Scan(ctx, ref)
	if err != nil {
		s.logger.Warn("scan failed", "symbol", ref.Symbol, "error", err)
		return domain.Signal{}, err
	}
	return sig, nil
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}

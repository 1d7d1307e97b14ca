package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/storage"
)

var _ storage.SignalLog = (*SignalLog)(nil)

// SignalLog is an in-memory append-only signal journal.
type SignalLog struct {
	mu      sync.RWMutex
	records []storage.SignalRecord
}

func NewSignalLog() *SignalLog {
	return &SignalLog{}
}

func (l *SignalLog) Append(_ context.Context, sig domain.Signal) (storage.SignalRecord, error) {
	rec := storage.SignalRecord{
		ID:        uuid.NewString(),
		Signal:    sig,
		Degraded:  sig.IsDegraded(),
		CreatedAt: time.Now().UTC(),
	}

	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	return rec, nil
}

func (l *SignalLog) Recent(_ context.Context, symbol string, limit int) ([]storage.SignalRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []storage.SignalRecord
	for i := len(l.records) - 1; i >= 0; i-- {
		if symbol != "" && l.records[i].Signal.Symbol != symbol {
			continue
		}
		result = append(result, l.records[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

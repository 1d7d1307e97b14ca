package signal

import (
	"math/rand"
	"sync"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
)

// NullModel produces randomized signals when no real model can answer.
// Its version always ends in domain.DegradedSuffix.
type NullModel struct {
	mu      sync.Mutex
	rng     *rand.Rand
	version string
}

func NewNullModel(baseVersion string, rng *rand.Rand) *NullModel {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if baseVersion == "" {
		baseVersion = DefaultModelVersion
	}
	return &NullModel{rng: rng, version: baseVersion + domain.DegradedSuffix}
}

func (n *NullModel) Version() string {
	return n.version
}

// Signal draws a kind uniformly among BUY, SELL and HOLD and a confidence in [0.5, 0.95].
func (n *NullModel) Signal(symbol string, ind domain.IndicatorSet, currentPrice *float64, now time.Time) domain.Signal {
	n.mu.Lock()
	pick := n.rng.Intn(3)
	confidence := 0.5 + n.rng.Float64()*0.45
	n.mu.Unlock()

	kinds := [...]domain.SignalKind{domain.SignalBuy, domain.SignalSell, domain.SignalHold}
	kind := kinds[pick]

	return domain.Signal{
		Symbol:             symbol,
		Kind:               kind,
		Confidence:         confidence,
		PredictedDirection: directionOf(kind),
		ModelVersion:       n.version,
		Timestamp:          now,
		CurrentPrice:       currentPrice,
		Indicators:         ind,
	}
}

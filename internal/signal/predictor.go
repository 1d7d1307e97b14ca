package signal

import (
	"context"
	"fmt"
	"math"

	"github.com/camuig/paper-desk/internal/domain"
)

// ProbabilityPair is a binary class distribution: Down is class 0, Up is class 1.
type ProbabilityPair struct {
	Down float64 `json:"down"`
	Up   float64 `json:"up"`
}

// FromUp builds a pair from a single positive-class probability.
func FromUp(up float64) ProbabilityPair {
	return ProbabilityPair{Down: 1 - up, Up: up}
}

// Class is 1 when Up exceeds 0.5, else 0.
func (p ProbabilityPair) Class() int {
	if p.Up > 0.5 {
		return 1
	}
	return 0
}

// Confidence is the larger of the two probabilities.
func (p ProbabilityPair) Confidence() float64 {
	return math.Max(p.Down, p.Up)
}

func (p ProbabilityPair) Validate() error {
	for _, v := range []float64{p.Down, p.Up} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("probability out of range: %+v", p)
		}
	}
	return nil
}

// Predictor is implemented by every loaded model artifact.
// features are laid out as FeatureNames.
type Predictor interface {
	Predict(ctx context.Context, features []float64) (ProbabilityPair, error)
	Version() string
}

// Resolver looks up the predictor serving an asset.
type Resolver interface {
	Predictor(ref domain.AssetRef) (Predictor, bool)
}

// StaticResolver serves a fixed map of symbol to predictor.
type StaticResolver map[string]Predictor

func (r StaticResolver) Predictor(ref domain.AssetRef) (Predictor, bool) {
	p, ok := r[ref.Symbol]
	return p, ok
}

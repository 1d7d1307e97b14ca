package inference

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/camuig/paper-desk/internal/signal"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// InitializeORT loads the onnxruntime shared library once per process.
func InitializeORT(libPath string) error {
	ortOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

type ONNXOptions struct {
	InputName  string
	OutputName string
	// Outputs is 2 for a [down, up] distribution or 1 for a bare up probability.
	Outputs int
}

// ONNXPredictor runs a classifier exported to ONNX with input shape
// [1, len(FeatureNames)].
type ONNXPredictor struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	outputs int
	version string
}

var _ signal.Predictor = (*ONNXPredictor)(nil)

func NewONNXPredictor(modelPath, version string, opts ONNXOptions) (*ONNXPredictor, error) {
	if opts.Outputs != 1 {
		opts.Outputs = 2
	}

	width := int64(len(signal.FeatureNames))
	inputTensor, err := ort.NewTensor(ort.NewShape(1, width), make([]float32, width))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(opts.Outputs)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{opts.InputName}, []string{opts.OutputName},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create session for %s: %w", modelPath, err)
	}

	return &ONNXPredictor{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		outputs: opts.Outputs,
		version: version,
	}, nil
}

func (m *ONNXPredictor) Predict(ctx context.Context, features []float64) (signal.ProbabilityPair, error) {
	if err := ctx.Err(); err != nil {
		return signal.ProbabilityPair{}, err
	}
	if len(features) != len(signal.FeatureNames) {
		return signal.ProbabilityPair{}, fmt.Errorf("expected %d features, got %d", len(signal.FeatureNames), len(features))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.input.GetData()
	for i, f := range features {
		data[i] = float32(f)
	}
	if err := m.session.Run(); err != nil {
		return signal.ProbabilityPair{}, fmt.Errorf("inference failed: %w", err)
	}

	out := m.output.GetData()
	if m.outputs == 1 {
		return signal.FromUp(float64(out[0])), nil
	}
	return signal.ProbabilityPair{Down: float64(out[0]), Up: float64(out[1])}, nil
}

func (m *ONNXPredictor) Version() string {
	return m.version
}

func (m *ONNXPredictor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
}

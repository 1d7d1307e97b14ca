// Package inference adapts model artifacts to signal.Predictor and keeps the
// per-symbol set that was loaded at startup.
package inference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/logger"
	"github.com/camuig/paper-desk/internal/signal"
)

type ModelInfo struct {
	Symbol  string `json:"asset_symbol"`
	Version string `json:"version"`
	Kind    string `json:"kind"`
}

type entry struct {
	predictor signal.Predictor
	kind      string
}

// Registry maps asset symbols to predictors. It implements signal.Resolver.
type Registry struct {
	mu       sync.RWMutex
	models   map[string]entry
	fallback *ChatClient
	logger   *logger.Logger
}

var _ signal.Resolver = (*Registry)(nil)

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{models: make(map[string]entry), logger: log}
}

// SetFallback serves symbols without a loaded model through a chat model.
func (r *Registry) SetFallback(c *ChatClient) {
	r.mu.Lock()
	r.fallback = c
	r.mu.Unlock()
}

func (r *Registry) Register(symbol, kind string, p signal.Predictor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[strings.ToUpper(symbol)] = entry{predictor: p, kind: kind}
}

func (r *Registry) Predictor(ref domain.AssetRef) (signal.Predictor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.models[strings.ToUpper(ref.Symbol)]; ok {
		return e.predictor, true
	}
	if r.fallback != nil {
		return r.fallback.For(ref.Symbol), true
	}
	return nil, false
}

// Symbols lists symbols with a dedicated model, sorted.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.models))
	for s := range r.models {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Models() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModelInfo, 0, len(r.models))
	for s, e := range r.models {
		out = append(out, ModelInfo{Symbol: s, Version: e.predictor.Version(), Kind: e.kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Close releases native resources held by loaded models.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.models {
		if c, ok := e.predictor.(interface{ Close() }); ok {
			c.Close()
		}
	}
	r.models = make(map[string]entry)
}

type LoadOptions struct {
	Dir            string
	// Pattern is matched relative to Dir and may use **. Defaults to
	// "**/*.onnx".
	Pattern        string
	Library        string
	DefaultVersion string
	ONNX           ONNXOptions
}

type sidecar struct {
	Version string `json:"version"`
	Outputs int    `json:"outputs"`
}

// LoadDir registers every <SYMBOL>.onnx file under opts.Dir. A <SYMBOL>.json
// sidecar may override the version and output width. When one symbol has
// several files the most recently modified wins. Files that fail to load are
// logged and skipped.
func (r *Registry) LoadDir(opts LoadOptions) error {
	files, err := modelFiles(opts.Dir, opts.Pattern)
	if err != nil {
		return fmt.Errorf("scan model dir: %w", err)
	}
	if len(files) == 0 {
		r.logger.Warn("no models found, signals will be degraded", "dir", opts.Dir)
		return nil
	}

	if err := InitializeORT(opts.Library); err != nil {
		r.logger.Error("onnxruntime unavailable, skipping models", "error", err, "count", len(files))
		return nil
	}

	for symbol, path := range files {
		meta := readSidecar(strings.TrimSuffix(path, ".onnx") + ".json")

		version := opts.DefaultVersion
		if meta.Version != "" {
			version = meta.Version
		}
		onnxOpts := opts.ONNX
		if meta.Outputs != 0 {
			onnxOpts.Outputs = meta.Outputs
		}

		p, err := NewONNXPredictor(path, version, onnxOpts)
		if err != nil {
			r.logger.Warn("failed to load model", "symbol", symbol, "error", err)
			continue
		}
		r.Register(symbol, "onnx", p)
		r.logger.Info("model loaded", "symbol", symbol, "version", version)
	}
	return nil
}

// modelFiles maps each symbol to its newest matching file.
func modelFiles(dir, pattern string) (map[string]string, error) {
	if pattern == "" {
		pattern = "**/*.onnx"
	}
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	files := make(map[string]string, len(matches))
	newest := make(map[string]time.Time, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if prev, ok := newest[symbol]; ok && !info.ModTime().After(prev) {
			continue
		}
		files[symbol] = path
		newest[symbol] = info.ModTime()
	}
	return files, nil
}

func readSidecar(path string) sidecar {
	var meta sidecar
	data, err := os.ReadFile(path)
	if err != nil {
		return meta
	}
	_ = json.Unmarshal(data, &meta)
	return meta
}

package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/indicator"
	"github.com/camuig/paper-desk/internal/inference"
	"github.com/camuig/paper-desk/internal/storage"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
	maxBatchAssets     = 50
)

type indicatorsRequest struct {
	Bars    []domain.PriceBar `json:"bars,omitempty"`
	Prices  []float64         `json:"prices,omitempty"`
	Volumes []float64         `json:"volumes,omitempty"`
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	var req indicatorsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	prices, volumes := req.Prices, req.Volumes
	if len(req.Bars) > 0 {
		prices, volumes = domain.Closes(req.Bars), domain.Volumes(req.Bars)
	}
	if err := indicator.ValidateSeries(prices, volumes); err != nil {
		s.writeError(w, r, err)
		return
	}

	set := s.svc.Params.Compute(prices, volumes)
	if !indicator.Finite(set) {
		writeDetail(w, http.StatusBadRequest, "series magnitude is out of range")
		return
	}
	s.writeJSON(w, r, http.StatusOK, set)
}

type predictRequest struct {
	AssetClass   domain.AssetClass    `json:"asset_class"`
	AssetSymbol  string               `json:"asset_symbol"`
	Indicators   *domain.IndicatorSet `json:"indicators,omitempty"`
	CurrentPrice *float64             `json:"current_price,omitempty"`
}

func (p predictRequest) ref() (domain.AssetRef, error) {
	symbol := p.AssetSymbol
	class := domain.AssetClass(strings.ToUpper(string(p.AssetClass)))
	if strings.TrimSpace(symbol) == "" {
		switch class {
		case domain.AssetGold, domain.AssetSilver, domain.AssetPalladium:
			symbol = string(class)
		}
	}
	return domain.ParseAssetRef(class, symbol)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sig, err := s.predict(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sig)
}

type batchRequest struct {
	Assets []predictRequest `json:"assets"`
}

type batchResponse struct {
	Predictions []domain.Signal   `json:"predictions"`
	Errors      map[string]string `json:"errors,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Assets) == 0 || len(req.Assets) > maxBatchAssets {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("assets must contain 1 to %d entries", maxBatchAssets))
		return
	}

	resp := batchResponse{Predictions: []domain.Signal{}, Timestamp: time.Now().UTC()}
	for _, a := range req.Assets {
		sig, err := s.predict(r.Context(), a)
		if err != nil {
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[strings.ToUpper(a.AssetSymbol)] = err.Error()
			continue
		}
		resp.Predictions = append(resp.Predictions, sig)
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

// predict uses supplied indicators when present and fresh market data
// otherwise.
func (s *Server) predict(ctx context.Context, req predictRequest) (domain.Signal, error) {
	if s.svc.Scanner == nil {
		return domain.Signal{}, unavailable("signal engine")
	}
	ref, err := req.ref()
	if err != nil {
		return domain.Signal{}, err
	}

	if req.Indicators == nil {
		return s.svc.Scanner.Scan(ctx, ref)
	}

	price := req.CurrentPrice
	if price == nil && s.svc.Prices != nil {
		if p, err := s.svc.Prices.CurrentPrice(ctx, ref); err == nil {
			price = &p
		} else {
			s.logger.Warn("current price unavailable", "symbol", ref.Symbol, "error", err)
		}
	}
	return s.svc.Scanner.Emit(ctx, ref, *req.Indicators, price), nil
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	if s.svc.Scanner == nil {
		s.writeError(w, r, unavailable("signal engine"))
		return
	}

	class := domain.AssetClass(strings.ToUpper(r.URL.Query().Get("asset_class")))
	ref, err := domain.ParseAssetRef(class, r.PathValue("symbol"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sig, err := s.svc.Scanner.Scan(r.Context(), ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sig)
}

func (s *Server) handleRecentSignals(w http.ResponseWriter, r *http.Request) {
	if s.svc.Signals == nil {
		s.writeError(w, r, unavailable("signal log"))
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeDetail(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	records, err := s.svc.Signals.Recent(r.Context(), symbol, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []storage.SignalRecord{}
	}
	s.writeJSON(w, r, http.StatusOK, records)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := []inference.ModelInfo{}
	if s.svc.Models != nil {
		models = append(models, s.svc.Models.Models()...)
	}
	s.writeJSON(w, r, http.StatusOK, models)
}

type healthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	ModelsLoaded int       `json:"models_loaded"`
	Storage      string    `json:"storage"`
	Version      string    `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Storage:   "ok",
		Version:   s.svc.Version,
	}
	if s.svc.Models != nil {
		resp.ModelsLoaded = len(s.svc.Models.Models())
	}
	if s.svc.Storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Storage.Ping(ctx); err != nil {
			s.logger.Error("storage ping failed", "error", err)
			resp.Status = "unhealthy"
			resp.Storage = "unreachable"
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, r, status, resp)
}

package web

import (
	"net/http"
	"strings"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/ledger"
	"github.com/camuig/paper-desk/internal/portfolio"
)

func (s *Server) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var req ledger.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.Ledger.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	status := domain.PositionStatus(strings.ToUpper(r.URL.Query().Get("status")))

	positions, err := s.svc.Ledger.List(r.Context(), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	s.writeJSON(w, r, http.StatusOK, positions)
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.Ledger.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req ledger.UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.Ledger.Update(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req ledger.CloseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.Ledger.Close(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleDeletePosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Ledger.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"message": "Position deleted successfully"})
}

func (s *Server) handleOpenWithPnL(w http.ResponseWriter, r *http.Request) {
	if s.svc.Prices == nil {
		s.writeError(w, r, unavailable("market data"))
		return
	}

	positions, err := s.svc.Ledger.OpenWithPnL(r.Context(), s.svc.Prices)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if positions == nil {
		positions = []domain.PositionWithPnL{}
	}
	s.writeJSON(w, r, http.StatusOK, positions)
}

func (s *Server) handlePortfolioStats(w http.ResponseWriter, r *http.Request) {
	positions, err := s.svc.Ledger.List(r.Context(), "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, portfolio.Compute(positions))
}

package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/portfolio"
)

//go:embed templates/dashboard.html
var templatesFS embed.FS

var dashboardTmpl = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"deref":     func(f *float64) float64 { return *f },
	"derefTime": func(t *time.Time) time.Time { return *t },
}).ParseFS(templatesFS, "templates/dashboard.html"))

type DashboardData struct {
	Stats         domain.PortfolioStats
	OpenPositions []domain.PositionWithPnL
	// Unpriced are open positions whose current price could not be fetched.
	Unpriced      []domain.Position
	RecentClosed  []domain.Position
	ModelsLoaded  int
	Version       string
	// Live enables the websocket event feed.
	Live          bool
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := DashboardData{Version: s.svc.Version, Live: s.svc.Stream != nil}

	positions, err := s.svc.Ledger.List(ctx, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data.Stats = portfolio.Compute(positions)

	priced := map[int64]bool{}
	if s.svc.Prices != nil {
		if open, err := s.svc.Ledger.OpenWithPnL(ctx, s.svc.Prices); err == nil {
			data.OpenPositions = open
			for _, p := range open {
				priced[p.ID] = true
			}
		} else {
			s.logger.Error("open positions with pnl", "error", err)
		}
	}

	for _, p := range positions {
		switch {
		case p.IsOpen() && !priced[p.ID]:
			data.Unpriced = append(data.Unpriced, p)
		case !p.IsOpen() && len(data.RecentClosed) < 20:
			data.RecentClosed = append(data.RecentClosed, p)
		}
	}

	if s.svc.Models != nil {
		data.ModelsLoaded = len(s.svc.Models.Models())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Error("execute template", "error", err)
	}
}

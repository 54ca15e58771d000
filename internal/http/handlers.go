package http

import (
	"context"
	"net/http"
	"time"

	"presupuesto/internal/core"
	"presupuesto/internal/log"
)

type monthsResponse struct {
	Active core.MonthKey   `json:"mesActivo"`
	Seed   core.MonthKey   `json:"mesInicial"`
	Months []core.MonthKey `json:"meses"`
	Window []core.MonthKey `json:"ventana"`
}

// debtDetail carries the figures derived from a card or loan.
type debtDetail struct {
	ID                    int64      `json:"id"`
	Kind                  core.Kind  `json:"tipo"`
	Rate                  string     `json:"tasaTexto"`
	RemainingInstallments int        `json:"cuotasRestantes"`
	RemainingPrincipal    core.Money `json:"saldoPendiente"`
	TotalInterest         core.Money `json:"interesTotal"`
}

type goalDetail struct {
	ID       int64   `json:"id"`
	Progress float64 `json:"progreso"`
}

type monthResponse struct {
	Month   core.MonthKey     `json:"mes"`
	Data    *core.Snapshot    `json:"datos"`
	Summary core.MonthSummary `json:"resumen"`
	Debts   []debtDetail      `json:"detalleDeudas"`
	Goals   []goalDetail      `json:"detalleAhorros"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that storage answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := http.StatusOK

	if s.pinger == nil {
		checks["storage"] = "not_checked"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
			checks["storage"] = "failed"
			status = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	NewResponse().Status(status).JSON(map[string]any{
		"status": state,
		"checks": checks,
		"cache": map[string]any{
			"summaries": s.summaries.Stats(),
			"history":   s.history.Stats(),
		},
	}).Write(w)
}

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	seed := s.ledger.SeedMonth()
	NewResponse().JSON(monthsResponse{
		Active: s.ledger.Active(),
		Seed:   seed,
		Months: s.ledger.Months(),
		Window: core.MonthRange(seed, monthWindow),
	}).Write(w)
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	k, err := pathMonth(r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	snap, err := s.ledger.Month(r.Context(), k)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	s.writeMonth(w, r, k, snap)
}

// handleNavigate makes the month active, creating it from the previous
// month if it does not exist yet.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	k, err := pathMonth(r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	snap, err := s.ledger.Navigate(r.Context(), k)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	s.writeMonth(w, r, k, snap)
}

func (s *Server) writeMonth(w http.ResponseWriter, r *http.Request, k core.MonthKey, snap *core.Snapshot) {
	sum, err := s.summary(r.Context(), k)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	resp := monthResponse{Month: k, Data: snap, Summary: sum}
	for _, kind := range []core.Kind{core.KindCards, core.KindLoans} {
		for _, d := range *snap.Debts(kind) {
			resp.Debts = append(resp.Debts, debtDetail{
				ID:                    d.ID,
				Kind:                  kind,
				Rate:                  core.FormatRate(d.MonthlyRate),
				RemainingInstallments: d.RemainingInstallments(),
				RemainingPrincipal:    d.RemainingPrincipal(),
				TotalInterest:         d.TotalInterest(),
			})
		}
	}
	for _, g := range snap.Goals {
		resp.Goals = append(resp.Goals, goalDetail{ID: g.ID, Progress: g.Progress()})
	}
	NewResponse().JSON(resp).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	k, err := pathMonth(r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	sum, err := s.summary(r.Context(), k)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	NewResponse().JSON(sum).Write(w)
}

func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	k, err := pathMonth(r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	sum, err := s.summary(r.Context(), k)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	NewResponse().JSON(core.Tips(sum)).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := s.history.Get("all", func() ([]core.HistoryRow, error) {
		return s.ledger.History(), nil
	})
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	if rows == nil {
		rows = []core.HistoryRow{}
	}
	NewResponse().JSON(rows).Write(w)
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"presupuesto/internal/core"
	"presupuesto/internal/ledger"
	"presupuesto/internal/storage/memory"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, opts Options) (*Server, *ledger.Manager) {
	t.Helper()
	store := memory.New()
	m := ledger.New(store,
		ledger.WithClock(func() time.Time { return time.Date(2025, time.August, 15, 12, 0, 0, 0, time.UTC) }),
		ledger.WithSeedMonth("2025-08"))
	m.Load(context.Background())
	if opts.Pinger == nil {
		opts.Pinger = store
	}
	srv := NewServer(":0", m, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, m
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		if strings.HasPrefix(body, "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorBody](t, rr).Error
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: missing security headers", path)
		}
	}

	down, _ := newTestServer(t, Options{Pinger: failingPinger{}})
	rr := do(t, down, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store status=%d", rr.Code)
	}
}

func TestListMonths(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/months", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	got := decode[monthsResponse](t, rr)
	if got.Active != "2025-08" || got.Seed != "2025-08" {
		t.Errorf("active=%s seed=%s", got.Active, got.Seed)
	}
	if len(got.Months) != 1 || got.Months[0] != "2025-08" {
		t.Errorf("months=%v", got.Months)
	}
	if len(got.Window) != 37 || got.Window[0] != "2025-08" || got.Window[36] != "2028-08" {
		t.Errorf("window=%v", got.Window)
	}
}

func TestMonthIncludesSummaryAndDebtDetail(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/months/2025-08", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[monthResponse](t, rr)
	if got.Summary.Income != 3500000 {
		t.Errorf("income=%d", got.Summary.Income)
	}
	if got.Summary.Expenses != 2269809 || got.Summary.Disposable != 1230191 {
		t.Errorf("expenses=%d disposable=%d", got.Summary.Expenses, got.Summary.Disposable)
	}
	if len(got.Debts) != 1 {
		t.Fatalf("debts=%v", got.Debts)
	}
	d := got.Debts[0]
	if d.Kind != core.KindLoans || d.RemainingInstallments != 60 || d.RemainingPrincipal != 24200000 || d.Rate != "1,842" {
		t.Errorf("debt detail=%+v", d)
	}
	if d.TotalInterest <= 0 {
		t.Errorf("total interest=%d", d.TotalInterest)
	}
}

func TestNavigateClonesForward(t *testing.T) {
	srv, m := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/months/2025-09/navigate", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	got := decode[monthResponse](t, rr)
	if len(got.Data.Income) != 1 || got.Data.Income[0].Date.String() != "2025-09-01" {
		t.Errorf("cloned income=%+v", got.Data.Income)
	}
	if m.Active() != "2025-09" {
		t.Errorf("active=%s", m.Active())
	}

	rr = do(t, srv, http.MethodPost, "/api/months/2025-13/navigate", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid month status=%d", rr.Code)
	}
}

func TestCreateEntryValidationAndSuccess(t *testing.T) {
	srv, m := newTestServer(t, Options{})

	tests := []struct {
		name   string
		target string
		body   string
		status int
		errMsg string
	}{
		{"unknown kind", "/api/months/2025-08/otros", `nombre=x&monto=1`, http.StatusBadRequest, "Tipo de registro desconocido"},
		{"missing name", "/api/months/2025-08/ingresos", `nombre=&monto=1000`, http.StatusUnprocessableEntity, "El nombre es obligatorio"},
		{"bad amount", "/api/months/2025-08/gastosFijos", `nombre=Luz&monto=abc`, http.StatusUnprocessableEntity, "El monto debe ser mayor que cero"},
		{"date outside month", "/api/months/2025-08/gastosCompras", `nombre=Cine&monto=30000&fecha=2025-09-02`, http.StatusUnprocessableEntity, "La fecha debe estar dentro del mes"},
		{"zero rate", "/api/months/2025-08/tarjetas", `{"nombre":"Visa","montoTotal":"1000000","numeroCuotas":"12","tasaMensual":"0"}`, http.StatusUnprocessableEntity, "La tasa mensual debe ser mayor que 0% y como máximo 5%"},
		{"paid above term", "/api/months/2025-08/creditos", `{"nombre":"Moto","montoTotal":"1000000","numeroCuotas":"12","cuotasPagadas":"13","tasaMensual":"2"}`, http.StatusUnprocessableEntity, "Las cuotas pagadas no pueden superar el número de cuotas"},
		{"goal over target", "/api/months/2025-08/ahorros", `nombre=Viaje&meta=100&actual=200`, http.StatusUnprocessableEntity, "El ahorro actual no puede superar la meta"},
		{"malformed json", "/api/months/2025-08/ingresos", `{"nombre":`, http.StatusBadRequest, "Formato de solicitud no válido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := m.Version()
			rr := do(t, srv, http.MethodPost, tt.target, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if msg := errorOf(t, rr); msg != tt.errMsg {
				t.Errorf("error=%q want %q", msg, tt.errMsg)
			}
			if m.Version() != before {
				t.Errorf("rejected write changed the ledger")
			}
		})
	}

	rr := do(t, srv, http.MethodPost, "/api/months/2025-08/tarjetas",
		`{"nombre":"Visa","montoTotal":1000000,"numeroCuotas":12,"tasaMensual":"2"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create card status=%d body=%s", rr.Code, rr.Body.String())
	}
	card := decode[core.Debt](t, rr)
	if card.Installment != 94560 || card.MonthlyRate != 0.02 || card.ID == 0 {
		t.Errorf("card=%+v", card)
	}

	rr = do(t, srv, http.MethodPost, "/api/months/2025-08/ingresos", `nombre=Bono&monto=1.500.000`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create income status=%d", rr.Code)
	}
	income := decode[core.Movement](t, rr)
	if income.Amount != 1500000 || income.Category != "General" || income.Date.String() != "2025-08-01" {
		t.Errorf("income=%+v", income)
	}
}

func TestUpdateDeleteAndDeposit(t *testing.T) {
	srv, m := newTestServer(t, Options{})
	snap, err := m.Month(context.Background(), "2025-08")
	if err != nil {
		t.Fatal(err)
	}
	incomeID := strconv.FormatInt(snap.Income[0].ID, 10)
	goalID := strconv.FormatInt(snap.Goals[0].ID, 10)
	loanID := strconv.FormatInt(snap.Loans[0].ID, 10)

	rr := do(t, srv, http.MethodPut, "/api/months/2025-08/ingresos/"+incomeID, `nombre=Salario&monto=4000000&categoria=Trabajo`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.Movement](t, rr); got.Amount != 4000000 {
		t.Errorf("updated=%+v", got)
	}

	rr = do(t, srv, http.MethodPut, "/api/months/2025-08/creditos/"+loanID, `nombre=Crédito&montoTotal=24200000&numeroCuotas=60&cuotasPagadas=12&tasaMensual=1,842`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update loan status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.Debt](t, rr); math.Abs(got.MonthlyRate-0.01842) > 1e-12 || got.Paid != 12 {
		t.Errorf("loan=%+v", got)
	}

	rr = do(t, srv, http.MethodPost, "/api/months/2025-08/ahorros/"+goalID+"/deposit", `{"monto":"300.000"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("deposit status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.SavingsGoal](t, rr); got.Current != 1500000 {
		t.Errorf("goal=%+v", got)
	}

	rr = do(t, srv, http.MethodPost, "/api/months/2025-08/ahorros/"+goalID+"/deposit", `monto=-5`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative deposit status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/api/months/2025-08/ingresos/"+incomeID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/months/2025-08/ingresos/"+incomeID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/months/2025-08/ingresos/abc", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("non-numeric id status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/months/2025-08/ingresos/"+loanID, `nombre=x&monto=1`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("id from another list status=%d", rr.Code)
	}
}

func TestSummaryCacheFollowsWrites(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	first := decode[core.MonthSummary](t, do(t, srv, http.MethodGet, "/api/months/2025-08/summary", ""))
	again := decode[core.MonthSummary](t, do(t, srv, http.MethodGet, "/api/months/2025-08/summary", ""))
	if first.Income != again.Income {
		t.Fatalf("summaries differ without writes")
	}
	if srv.summaries.Stats().Hits == 0 {
		t.Errorf("second read should hit the cache")
	}

	if rr := do(t, srv, http.MethodPost, "/api/months/2025-08/ingresos", `nombre=Extra&monto=500000`); rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d", rr.Code)
	}
	after := decode[core.MonthSummary](t, do(t, srv, http.MethodGet, "/api/months/2025-08/summary", ""))
	if after.Income != first.Income+500000 {
		t.Errorf("income after write=%d, want %d", after.Income, first.Income+500000)
	}
}

func TestTipsAndHistory(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	tips := decode[[]core.Tip](t, do(t, srv, http.MethodGet, "/api/months/2025-08/tips", ""))
	if len(tips) < 2 {
		t.Errorf("tips=%v", tips)
	}

	do(t, srv, http.MethodPost, "/api/months/2025-09/navigate", "")
	rows := decode[[]core.HistoryRow](t, do(t, srv, http.MethodGet, "/api/history", ""))
	if len(rows) != 2 || rows[0].Month != "2025-08" || rows[1].Month != "2025-09" {
		t.Errorf("history=%+v", rows)
	}
}

func TestSchedule(t *testing.T) {
	srv, m := newTestServer(t, Options{})
	snap, _ := m.Month(context.Background(), "2025-08")
	loanID := strconv.FormatInt(snap.Loans[0].ID, 10)

	rr := do(t, srv, http.MethodGet, "/api/months/2025-08/creditos/"+loanID+"/schedule", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	rows := decode[[]core.ScheduleRow](t, rr)
	if len(rows) < 59 || len(rows) > 60 || rows[0].Month != "2025-08" || rows[len(rows)-1].Balance != 0 {
		t.Errorf("schedule rows=%d first=%+v last=%+v", len(rows), rows[0], rows[len(rows)-1])
	}

	rr = do(t, srv, http.MethodGet, "/api/months/2025-08/ingresos/"+loanID+"/schedule", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("schedule of income status=%d", rr.Code)
	}
}

func TestExports(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "organizador-financiero.json") {
		t.Errorf("disposition=%q", rr.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rr.Body.String(), `"datos"`) {
		t.Errorf("export body missing data")
	}

	rr = do(t, srv, http.MethodGet, "/api/export/history.csv", "")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "Mes,Ingresos,Gastos,Balance,% Ahorro") {
		t.Errorf("history csv status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/months/2025-08/export.csv", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Supermercado") {
		t.Errorf("month csv status=%d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != contentTypeCSV {
		t.Errorf("content type=%q", rr.Header().Get("Content-Type"))
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	srv, m := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/api/months/2025-10/navigate", "")

	rr := do(t, srv, http.MethodPost, "/api/reset", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed reset status=%d", rr.Code)
	}
	if len(m.Months()) != 2 {
		t.Fatalf("unconfirmed reset touched the ledger")
	}

	rr = do(t, srv, http.MethodPost, "/api/reset", `{"confirmar":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("reset status=%d", rr.Code)
	}
	got := decode[monthsResponse](t, rr)
	if len(got.Months) != 1 || got.Active != "2025-08" {
		t.Errorf("after reset=%+v", got)
	}
}

func TestParseRate(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	tests := []struct {
		body    string
		status  int
		percent string
	}{
		{`tasa=1,84`, http.StatusOK, "1,84"},
		{`tasa=1.84`, http.StatusOK, "1,84"},
		{`tasa=184`, http.StatusOK, "1,84"},
		{`{"tasa":1.842}`, http.StatusOK, "1,842"},
		{`tasa=0`, http.StatusUnprocessableEntity, ""},
		{`tasa=abc`, http.StatusUnprocessableEntity, ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/rates/parse", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d", rr.Code, tt.status)
			}
			if tt.status == http.StatusOK {
				if got := decode[rateResponse](t, rr); got.Percent != tt.percent {
					t.Errorf("percent=%q want %q", got.Percent, tt.percent)
				}
			}
		})
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/rates/parse", `tasa=2`); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/rates/parse", `tasa=2`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Errorf("missing Retry-After")
	}
	if rr := do(t, srv, http.MethodGet, "/api/months", ""); rr.Code != http.StatusOK {
		t.Errorf("reads are not limited, status=%d", rr.Code)
	}
}

func TestSuspiciousRequestsBlocked(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/.env", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status=%d", rr.Code)
	}
}

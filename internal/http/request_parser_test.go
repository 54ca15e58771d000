package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"presupuesto/internal/core"
	"presupuesto/internal/ledger"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/months/2025-08/ingresos", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParserJSON(t *testing.T) {
	p := newParser(t, "application/json", `{"nombre":"  Salario\u0007 ","monto":3500000,"fijo":true,"extra":{"a":1}}`)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.IsJSON() {
		t.Fatal("expected JSON")
	}

	tests := []struct {
		key  string
		want string
	}{
		{"nombre", "Salario"},
		{"monto", "3500000"},
		{"fijo", "true"},
		{"extra", ""},
		{"missing", ""},
	}
	for _, tt := range tests {
		if got := p.Get(tt.key); got != tt.want {
			t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestRequestBodyParserForm(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", "nombre=Arriendo&monto=1.200.000&categoria=Vivienda&fecha=2025-08-05")
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.IsJSON() {
		t.Fatal("form parsed as JSON")
	}

	in := p.MovementInput()
	want := ledger.MovementInput{Name: "Arriendo", Amount: "1.200.000", Category: "Vivienda", Date: "2025-08-05"}
	if in != want {
		t.Errorf("MovementInput = %+v, want %+v", in, want)
	}
}

func TestRequestBodyParserDebtAndGoal(t *testing.T) {
	p := newParser(t, "", `{"nombre":"Visa","montoTotal":"2.000.000","numeroCuotas":24,"cuotasPagadas":3,"tasaMensual":"1,84","meta":"5000000","actual":"0"}`)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	debt := p.DebtInput()
	if debt.Principal != "2.000.000" || debt.Installments != "24" || debt.Paid != "3" || debt.Rate != "1,84" {
		t.Errorf("DebtInput = %+v", debt)
	}
	goal := p.GoalInput()
	if goal.Name != "Visa" || goal.Target != "5000000" || goal.Current != "0" {
		t.Errorf("GoalInput = %+v", goal)
	}
}

func TestRequestBodyParserEmptyAndMalformed(t *testing.T) {
	empty := newParser(t, "", "")
	if err := empty.Parse(); err != nil {
		t.Fatalf("empty body: %v", err)
	}
	if empty.Get("nombre") != "" {
		t.Error("empty body should yield empty fields")
	}

	for _, body := range []string{`{"nombre":`, `[1,2]`} {
		p := newParser(t, "application/json", body)
		if err := p.Parse(); !errors.Is(err, errMalformedBody) {
			t.Errorf("Parse(%q) = %v, want errMalformedBody", body, err)
		}
		// A second call reports the same error without re-reading.
		if err := p.Parse(); !errors.Is(err, errMalformedBody) {
			t.Errorf("second Parse(%q) = %v", body, err)
		}
	}
}

func TestRequestBodyParserTooLarge(t *testing.T) {
	p := newParser(t, "", "nombre="+strings.Repeat("x", maxBodyBytes+1))
	err := p.Parse()
	if err == nil {
		t.Fatal("expected error for oversized body")
	}
	rr := httptest.NewRecorder()
	errorResponse(err).Write(rr)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestPathValues(t *testing.T) {
	mux := http.NewServeMux()
	var (
		month core.MonthKey
		kind  core.Kind
		id    int64
		errs  []error
	)
	mux.HandleFunc("GET /m/{month}/{kind}/{id}", func(w http.ResponseWriter, r *http.Request) {
		var err error
		month, err = pathMonth(r)
		errs = append(errs, err)
		kind, err = pathKind(r)
		errs = append(errs, err)
		id, err = pathID(r)
		errs = append(errs, err)
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/m/2025-08/creditos/42", nil))
	for _, err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if month != "2025-08" || kind != core.KindLoans || id != 42 {
		t.Errorf("got %s %s %d", month, kind, id)
	}

	errs = nil
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/m/agosto/deudas/-1", nil))
	if !errors.Is(errs[0], core.ErrInvalidMonth) || !errors.Is(errs[1], core.ErrUnknownKind) || !errors.Is(errs[2], ledger.ErrEntryNotFound) {
		t.Errorf("errors = %v", errs)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hola  ", "hola"},
		{"a\x00b", "ab"},
		{"línea\nnueva", "línea\nnueva"},
		{"tab\tok", "tab\tok"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestErrorResponseMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.ErrInvalidMonth, http.StatusBadRequest},
		{core.ErrUnknownKind, http.StatusBadRequest},
		{ledger.ErrKindMismatch, http.StatusBadRequest},
		{ledger.ErrEntryNotFound, http.StatusNotFound},
		{core.ErrInvalidRate, http.StatusUnprocessableEntity},
		{ledger.ErrDateOutsideMonth, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		errorResponse(tt.err).Write(rr)
		if rr.Code != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, rr.Code, tt.status)
		}
	}
}

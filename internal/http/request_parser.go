// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading request data. Entry forms
// arrive as JSON or form-encoded bodies and every field is read as a raw
// string; the ledger does the parsing.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"presupuesto/internal/core"
	"presupuesto/internal/ledger"
)

// maxBodyBytes bounds entry form bodies.
const maxBodyBytes = 64 << 10

var errMalformedBody = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body of r once, up to maxBodyBytes.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = errMalformedBody
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	if p.err != nil {
		p.err = errMalformedBody
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue renders a decoded JSON value the way a form field would
// carry it.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// MovementInput reads an income, fixed expense or purchase form.
func (p *RequestBodyParser) MovementInput() ledger.MovementInput {
	return ledger.MovementInput{
		Name:     p.Get("nombre"),
		Amount:   p.Get("monto"),
		Category: p.Get("categoria"),
		Date:     p.Get("fecha"),
	}
}

// DebtInput reads a card or loan form.
func (p *RequestBodyParser) DebtInput() ledger.DebtInput {
	return ledger.DebtInput{
		Name:         p.Get("nombre"),
		Principal:    p.Get("montoTotal"),
		Installments: p.Get("numeroCuotas"),
		Paid:         p.Get("cuotasPagadas"),
		Rate:         p.Get("tasaMensual"),
	}
}

// GoalInput reads a savings goal form.
func (p *RequestBodyParser) GoalInput() ledger.GoalInput {
	return ledger.GoalInput{
		Name:    p.Get("nombre"),
		Target:  p.Get("meta"),
		Current: p.Get("actual"),
		Date:    p.Get("fecha"),
	}
}

// pathMonth reads the {month} path value.
func pathMonth(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(r.PathValue("month"))
}

// pathKind reads the {kind} path value.
func pathKind(r *http.Request) (core.Kind, error) {
	return core.ParseKind(r.PathValue("kind"))
}

// pathID reads the {id} path value. An id that is not a number names no
// entry.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, ledger.ErrEntryNotFound
	}
	return id, nil
}

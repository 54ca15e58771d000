package http

import (
	"bytes"
	"net/http"
	"time"

	"presupuesto/internal/core"
	"presupuesto/internal/export"
	"presupuesto/internal/log"
)

// handleExport downloads every month as the JSON backup document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	b, err := s.ledger.Export().JSON()
	if err != nil {
		log.FromContext(r.Context()).Failure(r.Context(), "Export failed", log.OpExport, err, nil)
		InternalServerError("No se pudo generar la exportación").Write(w)
		return
	}
	NewResponse().
		Raw(contentTypeJSON, b).
		Attachment(export.Filename).
		Write(w)
}

func (s *Server) handleHistoryCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := s.history.Get("all", func() ([]core.HistoryRow, error) {
		return s.ledger.History(), nil
	})
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteHistoryCSV(&buf, rows); err != nil {
		log.FromContext(r.Context()).Failure(r.Context(), "History report failed", log.OpExport, err, nil)
		InternalServerError("No se pudo generar el reporte").Write(w)
		return
	}
	NewResponse().
		Raw(contentTypeCSV, buf.Bytes()).
		Attachment("historial.csv").
		Write(w)
}

func (s *Server) handleMonthCSV(w http.ResponseWriter, r *http.Request) {
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
	var buf bytes.Buffer
	if err := export.WriteMonthCSV(&buf, k, snap, time.Now()); err != nil {
		log.FromContext(r.Context()).Failure(r.Context(), "Month report failed", log.OpExport, err,
			log.NewFields().WithEntry(k.String(), "", 0))
		InternalServerError("No se pudo generar el reporte").Write(w)
		return
	}
	NewResponse().
		Raw(contentTypeCSV, buf.Bytes()).
		Attachment("presupuesto-" + k.String() + ".csv").
		Write(w)
}

// handleReset wipes the stored ledger. The client must confirm explicitly.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	if body.Get("confirmar") != "true" {
		BadRequestError("Confirma el borrado con confirmar=true").Write(w)
		return
	}
	s.ledger.Reset(r.Context())
	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger reset requested", log.FieldOperation, log.OpReset)
	s.handleListMonths(w, r)
}

type rateResponse struct {
	Input    string  `json:"entrada"`
	Fraction float64 `json:"tasaMensual"`
	Percent  string  `json:"tasaTexto"`
}

// handleParseRate previews how a typed monthly rate will be stored.
func (s *Server) handleParseRate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	raw := body.Get("tasa")
	rate, err := core.ParseRate(raw)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	NewResponse().JSON(rateResponse{
		Input:    raw,
		Fraction: rate,
		Percent:  core.FormatRate(rate),
	}).Write(w)
}

// Package export turns the ledger into downloadable documents: the full JSON
// backup and CSV reports.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"presupuesto/internal/core"
)

// Filename is the suggested name of the JSON backup.
const Filename = "organizador-financiero.json"

// Document is the full backup: every month with every entry.
type Document struct {
	Exported time.Time     `json:"exportado"`
	Month    core.MonthKey `json:"mes"`
	Data     core.Ledger   `json:"datos"`
}

func NewDocument(l core.Ledger, active core.MonthKey, now time.Time) Document {
	return Document{Exported: now.UTC(), Month: active, Data: l}
}

// JSON renders the document with two-space indentation.
func (d Document) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return b, nil
}

// ParseDocument reads a backup produced by JSON. A bare month mapping is
// accepted too.
func ParseDocument(b []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err == nil && d.Data != nil {
		return d, nil
	}
	var l core.Ledger
	if err := json.Unmarshal(b, &l); err != nil {
		return Document{}, fmt.Errorf("parse export: %w", err)
	}
	return Document{Data: l}, nil
}

func money(m core.Money) string {
	return strconv.FormatInt(int64(m), 10)
}

// SummaryRows lists the dashboard totals of a month.
func SummaryRows(sum core.MonthSummary) [][]string {
	return [][]string{
		{"RESUMEN"},
		{"Ingresos", money(sum.Income)},
		{"Gastos fijos", money(sum.Fixed)},
		{"Tarjetas", money(sum.Cards)},
		{"Créditos", money(sum.Loans)},
		{"Compras", money(sum.Purchases)},
		{"Total gastos", money(sum.Expenses)},
		{"Disponible", money(sum.Disposable)},
		{"Ahorros", money(sum.Savings)},
		{"% Ahorro", core.FormatPercent(sum.SavingsRate)},
	}
}

// EntryRows lists every entry of a month grouped by list, one header row
// per list.
func EntryRows(s *core.Snapshot) [][]string {
	var rows [][]string
	for _, k := range core.Kinds {
		rows = append(rows, []string{k.Label()})
		switch {
		case k.IsMovement():
			rows = append(rows, []string{"Fecha", "Nombre", "Categoría", "Monto"})
			for _, m := range *s.Movements(k) {
				rows = append(rows, []string{m.Date.String(), m.Name, m.Category, money(m.Amount)})
			}
		case k.IsDebt():
			rows = append(rows, []string{"Fecha", "Nombre", "Monto total", "Cuotas", "Pagadas", "Tasa %", "Cuota", "Interés total", "Saldo"})
			for _, d := range *s.Debts(k) {
				rows = append(rows, []string{
					d.Date.String(), d.Name, money(d.Principal),
					strconv.Itoa(d.Installments), strconv.Itoa(d.Paid),
					core.FormatRate(d.MonthlyRate), money(d.Installment),
					money(d.TotalInterest()), money(d.RemainingPrincipal()),
				})
			}
		case k.IsGoal():
			rows = append(rows, []string{"Fecha", "Nombre", "Meta", "Actual", "Progreso %"})
			for _, g := range s.Goals {
				rows = append(rows, []string{g.Date.String(), g.Name, money(g.Target), money(g.Current), core.FormatPercent(g.Progress())})
			}
		}
		rows = append(rows, []string{})
	}
	return rows
}

// WriteMonthCSV writes the summary and entries of one month.
func WriteMonthCSV(w io.Writer, month core.MonthKey, s *core.Snapshot, generated time.Time) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"Reporte mensual"},
		{"Mes", month.String()},
		{"Generado", generated.Format("2006-01-02 15:04:05")},
		{},
	}
	rows = append(rows, SummaryRows(core.Summarize(month, s))...)
	rows = append(rows, []string{})
	rows = append(rows, EntryRows(s)...)

	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write month report: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV writes one line per month.
func WriteHistoryCSV(w io.Writer, rows []core.HistoryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Mes", "Ingresos", "Gastos", "Balance", "% Ahorro"}); err != nil {
		return fmt.Errorf("write history header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Month.String(), money(r.Income), money(r.Expenses), money(r.Balance), core.FormatPercent(r.SavingsRate)}); err != nil {
			return fmt.Errorf("write history row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

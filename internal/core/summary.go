package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// debtLoadWarning is the share of income spent on installments above which
// a warning tip is shown.
const debtLoadWarning = 40.0

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"categoria"`
	Amount Money  `json:"monto"`
}

// MonthSummary holds the dashboard figures of one month.
type MonthSummary struct {
	Month       MonthKey `json:"mes"`
	Income      Money    `json:"ingresos"`
	Fixed       Money    `json:"gastosFijos"`
	Cards       Money    `json:"tarjetas"`
	Loans       Money    `json:"creditos"`
	Purchases   Money    `json:"gastosCompras"`
	Savings     Money    `json:"ahorros"`
	Expenses    Money    `json:"gastos"`
	Disposable  Money    `json:"libre"`
	SavingsRate float64  `json:"tasaAhorro"`
	// ByCategory groups fixed expenses and purchases, largest first.
	ByCategory []CategoryAmount `json:"porCategoria"`
}

// HistoryRow is one line of the month-by-month table.
type HistoryRow struct {
	Month       MonthKey `json:"mes"`
	Income      Money    `json:"ingresos"`
	Expenses    Money    `json:"gastos"`
	Balance     Money    `json:"balance"`
	SavingsRate float64  `json:"tasaAhorro"`
}

// Tip is a short piece of advice derived from a month summary.
type Tip struct {
	Title  string `json:"titulo"`
	Detail string `json:"detalle"`
}

// Summarize totals every list of a month. Expenses are fixed expenses,
// card and loan installments and purchases; savings are not an expense.
func Summarize(month MonthKey, s *Snapshot) MonthSummary {
	if s == nil {
		s = NewSnapshot()
	}
	sum := MonthSummary{
		Month:     month,
		Income:    s.Total(KindIncome),
		Fixed:     s.Total(KindFixed),
		Cards:     s.Total(KindCards),
		Loans:     s.Total(KindLoans),
		Purchases: s.Total(KindPurchases),
		Savings:   s.Total(KindGoals),
	}
	sum.Expenses = sum.Fixed + sum.Cards + sum.Loans + sum.Purchases
	sum.Disposable = sum.Income - sum.Expenses
	sum.SavingsRate = ratePercent(sum.Disposable, sum.Income)
	sum.ByCategory = byCategory(s.Fixed, s.Purchases)
	return sum
}

func ratePercent(part, whole Money) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func byCategory(lists ...[]Movement) []CategoryAmount {
	totals := map[string]Money{}
	for _, list := range lists {
		for _, m := range list {
			name := strings.TrimSpace(m.Category)
			if name == "" {
				name = "General"
			}
			totals[name] += m.Amount
		}
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// BuildHistory returns one row per stored month in ascending order.
func BuildHistory(l Ledger) []HistoryRow {
	rows := make([]HistoryRow, 0, len(l))
	for _, month := range l.Months() {
		sum := Summarize(month, l[month])
		rows = append(rows, HistoryRow{
			Month:       month,
			Income:      sum.Income,
			Expenses:    sum.Expenses,
			Balance:     sum.Disposable,
			SavingsRate: sum.SavingsRate,
		})
	}
	return rows
}

// Tips returns advice for the month. The last two tips are always present.
func Tips(sum MonthSummary) []Tip {
	var tips []Tip
	if sum.Disposable < 0 {
		tips = append(tips, Tip{
			Title:  "🚨 Gastos Excesivos",
			Detail: "Tus gastos superan ingresos. Revisa gastos no esenciales.",
		})
	}
	if sum.SavingsRate < 10 {
		tips = append(tips, Tip{
			Title:  "⚠️ Mejora tu ahorro",
			Detail: fmt.Sprintf("Estás ahorrando %s%%. Intenta llegar al 20%%.", FormatPercent(sum.SavingsRate)),
		})
	}
	if load := ratePercent(sum.Cards+sum.Loans, sum.Income); load > debtLoadWarning {
		tips = append(tips, Tip{
			Title:  "🏦 Endeudamiento alto",
			Detail: fmt.Sprintf("Tus cuotas son el %s%% de tus ingresos. Evita nuevas deudas.", FormatPercent(load)),
		})
	}
	tips = append(tips,
		Tip{Title: "📊 50/30/20", Detail: "50% necesidades, 30% gustos, 20% ahorro/inversión."},
		Tip{Title: "💳 Tarjetas", Detail: "Paga el total mensual para evitar intereses."},
	)
	return tips
}

// FormatPercent renders a percentage with one comma decimal, e.g. "12,5".
func FormatPercent(p float64) string {
	return strings.Replace(strconv.FormatFloat(p, 'f', 1, 64), ".", ",", 1)
}

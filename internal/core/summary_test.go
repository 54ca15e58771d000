package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *Snapshot {
	s := NewSnapshot()
	s.Income = []Movement{{ID: 1, Name: "Salario", Amount: 3500000, Category: "Trabajo"}}
	s.Fixed = []Movement{{ID: 2, Name: "Arriendo", Amount: 1200000, Category: "Vivienda"}}
	s.Loans = []Debt{{ID: 3, Name: "Crédito Vehículo", Principal: 24200000, Installments: 60, MonthlyRate: 0.01842}}
	s.Loans[0].Recompute()
	s.Purchases = []Movement{
		{ID: 4, Name: "Supermercado", Amount: 400000, Category: "Alimentación"},
		{ID: 5, Name: "Cine", Amount: 50000},
	}
	s.Goals = []SavingsGoal{{ID: 6, Name: "Emergencias", Target: 5000000, Current: 1200000}}
	return s
}

func TestSummarize(t *testing.T) {
	sum := Summarize("2025-08", sampleSnapshot())

	assert.Equal(t, Money(3500000), sum.Income)
	assert.Equal(t, Money(1200000), sum.Fixed)
	assert.Equal(t, Money(669809), sum.Loans)
	assert.Equal(t, Money(0), sum.Cards)
	assert.Equal(t, Money(450000), sum.Purchases)
	assert.Equal(t, Money(1200000), sum.Savings)
	assert.Equal(t, Money(1200000+669809+450000), sum.Expenses)
	assert.Equal(t, sum.Income-sum.Expenses, sum.Disposable)
	assert.InDelta(t, float64(sum.Disposable)/3500000*100, sum.SavingsRate, 1e-9)

	require.Len(t, sum.ByCategory, 3)
	assert.Equal(t, "Vivienda", sum.ByCategory[0].Name)
	assert.Equal(t, "General", sum.ByCategory[2].Name)
}

func TestSummarizeWithoutIncome(t *testing.T) {
	sum := Summarize("2025-09", nil)
	assert.Equal(t, Money(0), sum.Income)
	assert.Equal(t, 0.0, sum.SavingsRate)
}

func TestBuildHistory(t *testing.T) {
	l := Ledger{
		"2025-09": sampleSnapshot(),
		"2025-08": NewSnapshot(),
	}
	rows := BuildHistory(l)
	require.Len(t, rows, 2)
	assert.Equal(t, MonthKey("2025-08"), rows[0].Month)
	assert.Equal(t, MonthKey("2025-09"), rows[1].Month)
	assert.Equal(t, rows[1].Income-rows[1].Expenses, rows[1].Balance)
}

func titles(tips []Tip) []string {
	var out []string
	for _, tip := range tips {
		out = append(out, tip.Title)
	}
	return out
}

func TestTips(t *testing.T) {
	healthy := Summarize("2025-08", sampleSnapshot())
	got := titles(Tips(healthy))
	assert.Equal(t, []string{"📊 50/30/20", "💳 Tarjetas"}, got)

	over := MonthSummary{Income: 1000000, Expenses: 1500000, Loans: 500000, Disposable: -500000, SavingsRate: -50}
	tips := Tips(over)
	got = titles(tips)
	assert.Equal(t, []string{"🚨 Gastos Excesivos", "⚠️ Mejora tu ahorro", "🏦 Endeudamiento alto", "📊 50/30/20", "💳 Tarjetas"}, got)
	assert.True(t, strings.Contains(tips[1].Detail, "-50,0%"), tips[1].Detail)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "35,1", FormatPercent(35.14))
	assert.Equal(t, "0,0", FormatPercent(0))
}

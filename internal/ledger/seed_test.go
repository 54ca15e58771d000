package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presupuesto/internal/core"
)

func counter() func() int64 {
	var n int64
	return func() int64 {
		n++
		return n
	}
}

func TestDefaultSnapshot(t *testing.T) {
	s := DefaultSnapshot("2026-02", counter())

	require.Len(t, s.Loans, 1)
	assert.True(t, s.Loans[0].Verify())
	assert.NoError(t, s.Loans[0].Validate())
	assert.Equal(t, int64(6), s.MaxID())
	for _, k := range core.Kinds {
		for _, e := range s.Entries(k) {
			assert.Positive(t, e.EntryID())
		}
	}
	assert.Equal(t, "2026-02-01", s.Income[0].Date.String())
	assert.Equal(t, "2026-02-10", s.Purchases[0].Date.String())
}

func TestCloneForwardLeavesSourceUntouched(t *testing.T) {
	next := counter()
	prev := DefaultSnapshot("2025-12", next)
	s := cloneForward(prev, "2026-01", next)

	assert.Equal(t, "2025-12-10", prev.Purchases[0].Date.String())
	assert.Equal(t, "2026-01-01", s.Purchases[0].Date.String())
	assert.Equal(t, int64(1), prev.Loans[0].ID)
	assert.Greater(t, s.Loans[0].ID, prev.MaxID())

	s.Goals[0].Current = 0
	assert.Equal(t, core.Money(1200000), prev.Goals[0].Current)
}

func TestRepairIsIdempotent(t *testing.T) {
	l := core.Ledger{
		"2025-01": {
			Cards: []core.Debt{
				{ID: 1, Name: "a", Principal: 1000000, Installments: 12, MonthlyRate: 2},
				{ID: 2, Name: "b", Principal: 1000000, Installments: 12, MonthlyRate: 184.2},
				{ID: 3, Name: "c", Principal: 1000000, Installments: 12, MonthlyRate: 0.02},
			},
		},
	}
	l["2025-01"].Cards[2].Recompute()

	rep := Repair(l)
	assert.Equal(t, RepairReport{Rates: 2}, rep)
	assert.InDelta(t, 0.02, l["2025-01"].Cards[0].MonthlyRate, 1e-12)
	assert.InDelta(t, 0.01842, l["2025-01"].Cards[1].MonthlyRate, 1e-12)
	assert.Equal(t, core.Money(94560), l["2025-01"].Cards[0].Installment)

	assert.False(t, Repair(l).Changed())
}

package ledger

import "presupuesto/internal/core"

// DefaultSnapshot is the sample month created when nothing is stored yet.
func DefaultSnapshot(month core.MonthKey, nextID func() int64) *core.Snapshot {
	first := month.FirstDay()
	loan := core.Debt{
		ID:           nextID(),
		Name:         "Crédito Vehículo",
		Principal:    24200000,
		Installments: 60,
		Paid:         0,
		MonthlyRate:  0.01842,
		Date:         first,
	}
	loan.Recompute()

	s := core.NewSnapshot()
	s.Income = append(s.Income, core.Movement{
		ID: nextID(), Name: "Salario", Amount: 3500000, Category: "Trabajo", Date: first,
	})
	s.Fixed = append(s.Fixed, core.Movement{
		ID: nextID(), Name: "Arriendo", Amount: 1200000, Category: "Vivienda", Date: first,
	})
	s.Loans = append(s.Loans, loan)
	s.Purchases = append(s.Purchases, core.Movement{
		ID: nextID(), Name: "Supermercado", Amount: 400000, Category: "Alimentación",
		Date: core.NewDate(month.Year(), month.Month(), 10),
	})
	s.Goals = append(s.Goals, core.SavingsGoal{
		ID: nextID(), Name: "Emergencias", Target: 5000000, Current: 1200000, Date: first,
	})
	return s
}

// cloneForward copies prev into month: every entry gets a new id and is
// dated the first day of month.
func cloneForward(prev *core.Snapshot, month core.MonthKey, nextID func() int64) *core.Snapshot {
	s := prev.Clone()
	first := month.FirstDay()
	for _, k := range core.Kinds {
		switch {
		case k.IsMovement():
			list := *s.Movements(k)
			for i := range list {
				list[i].ID = nextID()
				list[i].Date = first
			}
		case k.IsDebt():
			list := *s.Debts(k)
			for i := range list {
				list[i].ID = nextID()
				list[i].Date = first
			}
		case k.IsGoal():
			for i := range s.Goals {
				s.Goals[i].ID = nextID()
				s.Goals[i].Date = first
			}
		}
	}
	return s
}

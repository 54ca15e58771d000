package ledger

import (
	"strings"

	"presupuesto/internal/core"
)

const defaultCategory = "General"

// MovementInput carries the raw form fields of an income, fixed expense or
// purchase.
type MovementInput struct {
	Name     string
	Amount   string
	Category string
	// Date is "YYYY-MM-DD"; empty means the first day of the month on
	// creation and keeps the entry's date on edit.
	Date string
}

// DebtInput carries the raw form fields of a card or loan.
type DebtInput struct {
	Name         string
	Principal    string
	Installments string
	Paid         string
	// Rate is the monthly percentage as typed, e.g. "1,84".
	Rate string
}

// GoalInput carries the raw form fields of a savings goal.
type GoalInput struct {
	Name    string
	Target  string
	Current string
	Date    string
}

// resolveDate parses raw for month, falling back to def when raw is empty.
func resolveDate(month core.MonthKey, raw string, def core.Date) (core.Date, error) {
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, err
	}
	if d.IsZero() {
		return def, nil
	}
	if !month.Contains(d) {
		return core.Date{}, ErrDateOutsideMonth
	}
	return d, nil
}

func (in MovementInput) build(month core.MonthKey, base core.Movement) (core.Movement, error) {
	date, err := resolveDate(month, in.Date, base.Date)
	if err != nil {
		return core.Movement{}, err
	}
	m := core.Movement{
		ID:       base.ID,
		Name:     strings.TrimSpace(in.Name),
		Amount:   core.ParseAmount(in.Amount),
		Category: strings.TrimSpace(in.Category),
		Date:     date,
	}
	if m.Category == "" {
		m.Category = defaultCategory
	}
	if err := m.Validate(); err != nil {
		return core.Movement{}, err
	}
	return m, nil
}

func (in DebtInput) build(base core.Debt) (core.Debt, error) {
	d := core.Debt{
		ID:           base.ID,
		Name:         strings.TrimSpace(in.Name),
		Principal:    core.ParseAmount(in.Principal),
		Installments: core.ParseCount(in.Installments),
		Paid:         core.ParseCount(in.Paid),
		Date:         base.Date,
	}
	// A rejected rate stays 0 and Validate reports it in field order.
	if r, err := core.ParseRate(in.Rate); err == nil {
		d.MonthlyRate = r
	}
	if err := d.Validate(); err != nil {
		return core.Debt{}, err
	}
	d.Recompute()
	return d, nil
}

func (in GoalInput) build(month core.MonthKey, base core.SavingsGoal) (core.SavingsGoal, error) {
	date, err := resolveDate(month, in.Date, base.Date)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g := core.SavingsGoal{
		ID:      base.ID,
		Name:    strings.TrimSpace(in.Name),
		Target:  core.ParseAmount(in.Target),
		Current: core.ParseAmount(in.Current),
		Date:    date,
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	return g, nil
}

package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// ScheduleRow is one period of a French amortization table.
type ScheduleRow struct {
	Period      int      `json:"periodo"`
	Month       MonthKey `json:"mes"`
	Installment Money    `json:"cuota"`
	Interest    Money    `json:"interes"`
	Principal   Money    `json:"abonoCapital"`
	Balance     Money    `json:"saldo"`
}

// Installment computes the fixed monthly payment of a loan:
//
//	P * r * (1+r)^n / ((1+r)^n - 1)
//
// rounded to whole pesos. A non-positive term yields 0 and a zero rate
// splits the principal evenly. Out-of-range inputs are accepted and never
// produce NaN or infinity.
func Installment(principal Money, rate float64, term int) Money {
	if term <= 0 {
		return 0
	}
	p := float64(principal)
	n := float64(term)
	if rate == 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return RoundMoney(p / n)
	}
	f := math.Pow(1+rate, n)
	den := f - 1
	if den == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return RoundMoney(p / n)
	}
	return RoundMoney(p * rate * f / den)
}

// TotalInterest is what the borrower pays above the principal. A negative
// value only appears with malformed inputs.
func TotalInterest(principal Money, rate float64, term int) Money {
	return Installment(principal, rate, term)*Money(max(term, 0)) - principal
}

// RemainingPrincipal estimates the outstanding balance pro rata by paid
// installments, principal - principal/term*paid, floored at zero.
func RemainingPrincipal(principal Money, term, paid int) Money {
	if term <= 0 {
		return principal
	}
	rest := float64(principal) - float64(principal)/float64(term)*float64(paid)
	if rest < 0 {
		return 0
	}
	return RoundMoney(rest)
}

// Schedule lays out every period of the loan starting at start. Interest is
// charged on the running balance and the last row absorbs rounding so the
// balance ends at zero.
func Schedule(principal Money, rate float64, term int, start MonthKey) []ScheduleRow {
	if term <= 0 || principal <= 0 {
		return nil
	}
	payment := decimal.NewFromInt(int64(Installment(principal, rate, term)))
	r := decimal.NewFromFloat(rate)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		r = decimal.Zero
	}
	balance := decimal.NewFromInt(int64(principal))

	rows := make([]ScheduleRow, 0, term)
	for period := 1; period <= term; period++ {
		interest := balance.Mul(r).Round(0)
		capital := payment.Sub(interest)
		if period == term || capital.GreaterThan(balance) {
			capital = balance
		}
		balance = balance.Sub(capital)
		rows = append(rows, ScheduleRow{
			Period:      period,
			Month:       start.Add(period - 1),
			Installment: Money(capital.Add(interest).IntPart()),
			Interest:    Money(interest.IntPart()),
			Principal:   Money(capital.IntPart()),
			Balance:     Money(balance.IntPart()),
		})
		if balance.IsZero() {
			break
		}
	}
	return rows
}

package ledger

import "presupuesto/internal/core"

// RepairReport counts what a repair pass changed.
type RepairReport struct {
	// Rates is the number of debts whose stored rate was a percentage.
	Rates int `json:"tasas"`
	// Installments is the number of cached installments that disagreed with
	// the debt terms and were recomputed.
	Installments int `json:"cuotas"`
}

func (r RepairReport) Changed() bool {
	return r.Rates > 0 || r.Installments > 0
}

// Repair normalizes stored debt rates above core.StoredRateThreshold and
// recomputes stale installments. Running it again changes nothing.
func Repair(l core.Ledger) RepairReport {
	var rep RepairReport
	for _, s := range l {
		for _, k := range []core.Kind{core.KindCards, core.KindLoans} {
			debts := *s.Debts(k)
			for i := range debts {
				d := &debts[i]
				if r, changed := core.NormalizeStoredRate(d.MonthlyRate); changed {
					d.MonthlyRate = r
					d.Recompute()
					rep.Rates++
					continue
				}
				if !d.Verify() {
					d.Recompute()
					rep.Installments++
				}
			}
		}
	}
	return rep
}

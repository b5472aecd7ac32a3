package loan

import (
	"emi-engine/internal/pkg/clock"
	"time"

	"github.com/shopspring/decimal"
)

type LedgerSummary struct {
	AsOf                     time.Time
	InterestCollected        Money
	InterestPendingTillToday Money
	EMICollected             Money
	LoanOutstanding          Money
	OverdueInstallments      int
}

// Summarize aggregates installments as of the given calendar date. Nothing it
// returns is persisted.
func Summarize(installments []Installment, asOf time.Time, p Policy) LedgerSummary {
	day := clock.Date(asOf)
	s := LedgerSummary{
		AsOf:                     day,
		InterestCollected:        decimal.Zero,
		InterestPendingTillToday: decimal.Zero,
		EMICollected:             decimal.Zero,
		LoanOutstanding:          decimal.Zero,
	}

	for _, inst := range installments {
		s.InterestCollected = s.InterestCollected.Add(inst.InterestPaid)
		s.EMICollected = s.EMICollected.Add(inst.AmountPaid)

		if !clock.Date(inst.DueDate).After(day) {
			s.InterestPendingTillToday = s.InterestPendingTillToday.Add(clampZero(inst.InterestRemaining()))
		}

		remaining := clampZero(inst.Remaining())
		if !p.withinTolerance(remaining) {
			s.LoanOutstanding = s.LoanOutstanding.Add(remaining)
		}

		if inst.IsOverdue(day) {
			s.OverdueInstallments++
		}
	}

	return s
}

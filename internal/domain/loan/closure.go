package loan

import "github.com/shopspring/decimal"

// Closure describes whether a loan's schedule is settled.
type Closure struct {
	Closed   bool
	Residual Money
	// NeedsFinalConfirmation is set when the loan is closed but a rounding
	// residue within tolerance is still unacknowledged.
	NeedsFinalConfirmation bool
}

// IsLoanClosed reports whether every installment is paid or within tolerance
// of its EMI. A loan without installments is not closed.
func IsLoanClosed(installments []Installment, p Policy) bool {
	if len(installments) == 0 {
		return false
	}
	for _, inst := range installments {
		if inst.Status == InstallmentPaid {
			continue
		}
		if !p.withinTolerance(inst.Remaining()) {
			return false
		}
	}
	return true
}

// ResidualRounding sums the unpaid remainder of every installment.
func ResidualRounding(installments []Installment) Money {
	total := decimal.Zero
	for _, inst := range installments {
		total = total.Add(clampZero(inst.Remaining()))
	}
	return total
}

func ClosureState(installments []Installment, p Policy) Closure {
	closed := IsLoanClosed(installments, p)
	residual := ResidualRounding(installments)
	return Closure{
		Closed:                 closed,
		Residual:               residual,
		NeedsFinalConfirmation: closed && residual.IsPositive() && p.withinTolerance(residual),
	}
}

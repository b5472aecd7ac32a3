package loan

import (
	"emi-engine/internal/pkg/apperrors"
	"emi-engine/internal/pkg/clock"

	"github.com/shopspring/decimal"
)

const (
	// ratePrecision bounds the digits kept while compounding the monthly rate.
	ratePrecision int32 = 24
	// RateScale is the number of decimal places a stored annual rate keeps.
	RateScale int32 = 4
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)

	// Exclusive upper bounds of the NUMERIC(18, 2) money columns and the
	// NUMERIC(9, 4) rate column.
	moneyLimit = decimal.New(1, 16)
	rateLimit  = decimal.New(1, 5)
)

// MonthlyRate converts an annual percentage into the per-month fraction.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(twelve).Div(hundred)
}

// EMI returns the reducing-balance installment for the given terms:
//
//	emi = P * r * (1+r)^n / ((1+r)^n - 1)
//
// and principal / n when r is zero. The result is rounded to MoneyScale.
func EMI(principal Money, monthlyRate decimal.Decimal, tenureMonths int) Money {
	n := decimal.NewFromInt(int64(tenureMonths))
	if monthlyRate.IsZero() {
		return roundMoney(principal.Div(n))
	}
	factor := compound(decimal.NewFromInt(1).Add(monthlyRate), tenureMonths)
	emi := principal.Mul(monthlyRate).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1)))
	return roundMoney(emi)
}

func compound(base decimal.Decimal, periods int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for i := 0; i < periods; i++ {
		result = result.Mul(base).Truncate(ratePrecision)
	}
	return result
}

// ValidateTerms rejects inputs that cannot produce a schedule.
func ValidateTerms(terms LoanTerms) error {
	if terms.TenureMonths < 1 {
		return apperrors.NewScheduleParameterError("tenureMonths", "must be at least 1")
	}
	if terms.Principal.IsNegative() {
		return apperrors.NewScheduleParameterError("principal", "must not be negative")
	}
	if !isMoneyScale(terms.Principal) {
		return apperrors.NewScheduleParameterError("principal", "must have at most two decimal places")
	}
	if terms.Principal.GreaterThanOrEqual(moneyLimit) {
		return apperrors.NewScheduleParameterError("principal", "must be less than "+moneyLimit.String())
	}
	if terms.AnnualRatePercent.IsNegative() {
		return apperrors.NewScheduleParameterError("annualRatePercent", "must not be negative")
	}
	if !terms.AnnualRatePercent.Equal(terms.AnnualRatePercent.Truncate(RateScale)) {
		return apperrors.NewScheduleParameterError("annualRatePercent", "must have at most four decimal places")
	}
	if terms.AnnualRatePercent.GreaterThanOrEqual(rateLimit) {
		return apperrors.NewScheduleParameterError("annualRatePercent", "must be less than "+rateLimit.String())
	}
	if terms.StartDate.IsZero() {
		return apperrors.NewScheduleParameterError("startDate", "is required")
	}
	return nil
}

// GenerateSchedule builds the amortization schedule for terms. Installment i
// is due i months after the start date. The final installment's principal is
// whatever balance is left so the principals sum to the financed amount
// exactly. The result depends only on its inputs.
func GenerateSchedule(terms LoanTerms) ([]Installment, error) {
	if err := ValidateTerms(terms); err != nil {
		return nil, err
	}

	r := MonthlyRate(terms.AnnualRatePercent)
	emi := EMI(terms.Principal, r, terms.TenureMonths)
	if emi.GreaterThanOrEqual(moneyLimit) {
		return nil, apperrors.NewScheduleParameterError("annualRatePercent", "produces an installment too large to store")
	}
	start := clock.Date(terms.StartDate)

	schedule := make([]Installment, 0, terms.TenureMonths)
	remaining := terms.Principal

	for seq := 1; seq <= terms.TenureMonths; seq++ {
		interest := roundMoney(remaining.Mul(r))

		var principal Money
		if seq == terms.TenureMonths {
			principal = remaining
		} else {
			principal = roundMoney(emi.Sub(interest))
			if principal.GreaterThan(remaining) {
				principal = remaining
			}
			if principal.IsNegative() {
				principal = decimal.Zero
			}
		}

		remaining = remaining.Sub(principal)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		schedule = append(schedule, Installment{
			Sequence:           seq,
			Final:              seq == terms.TenureMonths,
			DueDate:            start.AddDate(0, seq, 0),
			EMIAmount:          principal.Add(interest),
			PrincipalComponent: principal,
			InterestComponent:  interest,
			AmountPaid:         decimal.Zero,
			InterestPaid:       decimal.Zero,
			PrincipalPaid:      decimal.Zero,
			Status:             InstallmentPending,
		})
	}

	return schedule, nil
}

// NewLoan builds an unsaved loan with its schedule.
func NewLoan(tenantID string, terms LoanTerms) (*Loan, error) {
	if tenantID == "" {
		return nil, apperrors.NewValidationError("tenantID", "is required")
	}
	schedule, err := GenerateSchedule(terms)
	if err != nil {
		return nil, err
	}
	return &Loan{
		TenantID:          tenantID,
		Principal:         terms.Principal,
		AnnualRatePercent: terms.AnnualRatePercent,
		TenureMonths:      terms.TenureMonths,
		StartDate:         clock.Date(terms.StartDate),
		Outstanding:       terms.Principal,
		Status:            StatusActive,
		Installments:      schedule,
	}, nil
}

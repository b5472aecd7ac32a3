package loan

import (
	"emi-engine/internal/pkg/apperrors"
	"emi-engine/internal/pkg/clock"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point currency amount. Every stored amount is rounded to
// MoneyScale places.
type Money = decimal.Decimal

const MoneyScale int32 = 2

const DefaultRoundingTolerance = "10.00"

type LoanStatus string

const (
	StatusActive LoanStatus = "ACTIVE"
	StatusClosed LoanStatus = "CLOSED"
)

type InstallmentStatus string

const (
	InstallmentPending       InstallmentStatus = "PENDING"
	InstallmentPartiallyPaid InstallmentStatus = "PARTIALLY_PAID"
	InstallmentPaid          InstallmentStatus = "PAID"
)

type PaymentMode string

const (
	ModeCash         PaymentMode = "CASH"
	ModeUPI          PaymentMode = "UPI"
	ModeCard         PaymentMode = "CARD"
	ModeBankTransfer PaymentMode = "BANK_TRANSFER"
	ModeCheque       PaymentMode = "CHEQUE"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case ModeCash, ModeUPI, ModeCard, ModeBankTransfer, ModeCheque:
		return true
	}
	return false
}

// Loan is the financed portion of a vehicle sale.
type Loan struct {
	ID                int64
	TenantID          string
	Principal         Money
	AnnualRatePercent decimal.Decimal
	TenureMonths      int
	StartDate         time.Time
	Outstanding       Money
	Status            LoanStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Installments      []Installment
}

type Installment struct {
	ID                 int64
	LoanID             int64
	Sequence           int
	Final              bool
	DueDate            time.Time
	EMIAmount          Money
	PrincipalComponent Money
	InterestComponent  Money
	AmountPaid         Money
	InterestPaid       Money
	PrincipalPaid      Money
	Status             InstallmentStatus
	PaidDate           *time.Time
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Remaining is the unpaid part of the EMI. It is negative only if the
// installment was overpaid, which the allocator never allows.
func (i Installment) Remaining() Money {
	return i.EMIAmount.Sub(i.AmountPaid)
}

func (i Installment) InterestRemaining() Money {
	return i.InterestComponent.Sub(i.InterestPaid)
}

func (i Installment) PrincipalRemaining() Money {
	return i.PrincipalComponent.Sub(i.PrincipalPaid)
}

// IsOverdue reports whether nothing has been paid on an installment whose due
// date is before today. Overdue is derived and never stored.
func (i Installment) IsOverdue(today time.Time) bool {
	return i.Status == InstallmentPending && clock.Date(i.DueDate).Before(clock.Date(today))
}

// Payment is the append-only audit record of one applied payment event.
type Payment struct {
	ID                 int64
	InstallmentID      int64
	LoanID             int64
	TenantID           string
	IdempotencyKey     string
	Amount             Money
	PrincipalPortion   Money
	InterestPortion    Money
	RoundingAdjustment Money
	EffectiveDate      time.Time
	Mode               PaymentMode
	CreatedAt          time.Time
}

// LoanTerms are the inputs of a schedule.
type LoanTerms struct {
	Principal         Money
	AnnualRatePercent decimal.Decimal
	TenureMonths      int
	StartDate         time.Time
}

type LoanSummary struct {
	EMIAmount     Money
	TotalInterest Money
	TotalPayable  Money
}

// Summary totals the loan's current schedule.
func (l *Loan) Summary() LoanSummary {
	s := LoanSummary{EMIAmount: decimal.Zero, TotalInterest: decimal.Zero, TotalPayable: decimal.Zero}
	for idx, inst := range l.Installments {
		if idx == 0 {
			s.EMIAmount = inst.EMIAmount
		}
		s.TotalInterest = s.TotalInterest.Add(inst.InterestComponent)
		s.TotalPayable = s.TotalPayable.Add(inst.EMIAmount)
	}
	return s
}

// Policy holds the business constants shared by the allocator, the closure
// detector and the ledger.
type Policy struct {
	RoundingTolerance Money
}

func NewPolicy(tolerance string) (Policy, error) {
	if tolerance == "" {
		tolerance = DefaultRoundingTolerance
	}
	t, err := decimal.NewFromString(tolerance)
	if err != nil {
		return Policy{}, fmt.Errorf("%w: rounding tolerance %q: %v", apperrors.ErrInvalidArgument, tolerance, err)
	}
	if t.IsNegative() {
		return Policy{}, fmt.Errorf("%w: rounding tolerance must not be negative", apperrors.ErrInvalidArgument)
	}
	return Policy{RoundingTolerance: t}, nil
}

// withinTolerance reports whether a residual is small enough to count as zero.
func (p Policy) withinTolerance(residual Money) bool {
	return residual.LessThanOrEqual(p.RoundingTolerance)
}

func roundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

func isMoneyScale(m Money) bool {
	return m.Equal(roundMoney(m))
}

package loan

import (
	"emi-engine/internal/pkg/apperrors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Allocation is the split of one payment across an installment's components.
type Allocation struct {
	Amount           Money
	InterestPortion  Money
	PrincipalPortion Money
	// RoundingAdjustment is the principal written off by final-installment
	// protection. It is zero for every other payment.
	RoundingAdjustment Money
}

type Allocator struct {
	Policy Policy
}

func NewAllocator(p Policy) Allocator {
	return Allocator{Policy: p}
}

// ValidatePaymentAmount rejects amounts that are not positive or carry more
// than two decimal places.
func ValidatePaymentAmount(amount Money) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero, got %s", apperrors.ErrInvalidPaymentAmount, amount.String())
	}
	if !isMoneyScale(amount) {
		return fmt.Errorf("%w: amount %s has more than two decimal places", apperrors.ErrInvalidPaymentAmount, amount.String())
	}
	return nil
}

// Apply allocates amount to inst, interest first, and returns the updated
// copy together with the split. inst itself is left untouched.
func (a Allocator) Apply(inst Installment, amount Money, effectiveDate time.Time) (Installment, Allocation, error) {
	if err := ValidatePaymentAmount(amount); err != nil {
		return inst, Allocation{}, err
	}
	if inst.Status == InstallmentPaid {
		return inst, Allocation{}, fmt.Errorf("%w: installment %d", apperrors.ErrInstallmentAlreadyPaid, inst.ID)
	}
	if remaining := inst.Remaining(); amount.GreaterThan(remaining) {
		return inst, Allocation{}, fmt.Errorf("%w: paying %s against a balance of %s",
			apperrors.ErrOverpayment, amount.StringFixed(MoneyScale), remaining.StringFixed(MoneyScale))
	}

	interestNow := decimal.Min(clampZero(inst.InterestRemaining()), amount)
	principalNow := amount.Sub(interestNow)
	adjustment := decimal.Zero

	if inst.Final {
		principalLeft := inst.PrincipalRemaining().Sub(principalNow)
		if principalLeft.IsPositive() && a.Policy.withinTolerance(principalLeft) {
			principalNow = inst.PrincipalRemaining()
			adjustment = principalLeft
		}
	}

	updated := inst
	updated.InterestPaid = inst.InterestPaid.Add(interestNow)
	updated.PrincipalPaid = inst.PrincipalPaid.Add(principalNow)
	updated.AmountPaid = inst.AmountPaid.Add(amount)

	if a.Policy.withinTolerance(updated.Remaining()) {
		paidOn := effectiveDate
		updated.Status = InstallmentPaid
		updated.PaidDate = &paidOn
	} else if updated.AmountPaid.IsPositive() {
		updated.Status = InstallmentPartiallyPaid
	}

	return updated, Allocation{
		Amount:             amount,
		InterestPortion:    interestNow,
		PrincipalPortion:   principalNow,
		RoundingAdjustment: adjustment,
	}, nil
}

func clampZero(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}

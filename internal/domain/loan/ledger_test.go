package loan

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	p := Policy{RoundingTolerance: d("10")}
	asOf := time.Date(2024, time.March, 1, 18, 45, 0, 0, time.UTC)

	installments := []Installment{
		{
			DueDate: date(2024, time.February, 1), EMIAmount: d("1000"), InterestComponent: d("200"),
			AmountPaid: d("1000"), InterestPaid: d("200"), Status: InstallmentPaid,
		},
		{
			DueDate: date(2024, time.March, 1), EMIAmount: d("1000"), InterestComponent: d("180"),
			AmountPaid: d("993"), InterestPaid: d("180"), Status: InstallmentPaid,
		},
		{
			DueDate: date(2024, time.March, 1), EMIAmount: d("1000"), InterestComponent: d("150"),
			AmountPaid: d("100"), InterestPaid: d("100"), Status: InstallmentPartiallyPaid,
		},
		{
			DueDate: date(2024, time.February, 15), EMIAmount: d("1000"), InterestComponent: d("120"),
			AmountPaid: decimal.Zero, InterestPaid: decimal.Zero, Status: InstallmentPending,
		},
		{
			DueDate: date(2024, time.April, 1), EMIAmount: d("1000"), InterestComponent: d("90"),
			AmountPaid: decimal.Zero, InterestPaid: decimal.Zero, Status: InstallmentPending,
		},
	}

	s := Summarize(installments, asOf, p)

	assert.Equal(t, date(2024, time.March, 1), s.AsOf)
	assertMoney(t, "480", s.InterestCollected)
	assertMoney(t, "2093", s.EMICollected)
	// 50 unpaid interest due on the first of March plus 120 on the overdue
	// installment. April interest is not yet due.
	assertMoney(t, "170", s.InterestPendingTillToday)
	// The 7 unit residue on the second installment is clamped away.
	assertMoney(t, "2900", s.LoanOutstanding)
	assert.Equal(t, 1, s.OverdueInstallments)
}

func TestSummarize_ClampKeepsInterestCollected(t *testing.T) {
	p := Policy{RoundingTolerance: d("10")}
	inst := Installment{
		DueDate: date(2024, 1, 1), EMIAmount: d("500"), InterestComponent: d("60"),
		AmountPaid: d("493"), InterestPaid: d("60"), Status: InstallmentPaid,
	}

	s := Summarize([]Installment{inst}, date(2024, 1, 2), p)

	assert.True(t, s.LoanOutstanding.IsZero())
	assertMoney(t, "60", s.InterestCollected)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, date(2024, 1, 1), Policy{RoundingTolerance: d("10")})
	assert.True(t, s.InterestCollected.IsZero())
	assert.True(t, s.LoanOutstanding.IsZero())
	assert.Zero(t, s.OverdueInstallments)
}

func TestInstallmentIsOverdue(t *testing.T) {
	inst := Installment{DueDate: date(2024, 3, 1), Status: InstallmentPending}

	assert.False(t, inst.IsOverdue(time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)))
	assert.True(t, inst.IsOverdue(date(2024, 3, 2)))

	inst.Status = InstallmentPartiallyPaid
	assert.False(t, inst.IsOverdue(date(2024, 3, 2)))
}

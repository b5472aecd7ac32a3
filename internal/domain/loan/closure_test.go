package loan

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installment(emi, paid string, status InstallmentStatus) Installment {
	return Installment{EMIAmount: d(emi), AmountPaid: d(paid), Status: status}
}

func TestIsLoanClosed(t *testing.T) {
	p := Policy{RoundingTolerance: d("10")}

	tests := []struct {
		name         string
		installments []Installment
		want         bool
	}{
		{"no installments", nil, false},
		{"all paid", []Installment{installment("100", "100", InstallmentPaid), installment("100", "95", InstallmentPaid)}, true},
		{"residue within tolerance", []Installment{installment("100", "100", InstallmentPaid), installment("100", "93", InstallmentPartiallyPaid)}, true},
		{"residue above tolerance", []Installment{installment("100", "100", InstallmentPaid), installment("100", "89.99", InstallmentPartiallyPaid)}, false},
		{"untouched installment", []Installment{installment("100", "100", InstallmentPaid), installment("100", "0", InstallmentPending)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLoanClosed(tt.installments, p))
		})
	}
}

func TestResidualRounding(t *testing.T) {
	installments := []Installment{
		installment("100", "100", InstallmentPaid),
		installment("100", "97", InstallmentPaid),
		installment("100", "95.50", InstallmentPartiallyPaid),
	}
	assertMoney(t, "7.50", ResidualRounding(installments))
	assert.True(t, ResidualRounding(nil).IsZero())
}

func TestClosureState(t *testing.T) {
	p := Policy{RoundingTolerance: d("10")}

	t.Run("closed with residue needs confirmation", func(t *testing.T) {
		c := ClosureState([]Installment{installment("100", "100", InstallmentPaid), installment("100", "96", InstallmentPaid)}, p)
		assert.True(t, c.Closed)
		assertMoney(t, "4", c.Residual)
		assert.True(t, c.NeedsFinalConfirmation)
	})

	t.Run("settled exactly", func(t *testing.T) {
		c := ClosureState([]Installment{installment("100", "100", InstallmentPaid)}, p)
		assert.True(t, c.Closed)
		assert.True(t, c.Residual.IsZero())
		assert.False(t, c.NeedsFinalConfirmation)
	})

	t.Run("open loan", func(t *testing.T) {
		c := ClosureState([]Installment{installment("100", "50", InstallmentPartiallyPaid)}, p)
		assert.False(t, c.Closed)
		assertMoney(t, "50", c.Residual)
		assert.False(t, c.NeedsFinalConfirmation)
	})
}

func TestClosure_ConcreteScenarioAfterTwelvePayments(t *testing.T) {
	p := Policy{RoundingTolerance: d("10")}
	alloc := NewAllocator(p)

	schedule, err := GenerateSchedule(LoanTerms{Principal: d("120000"), AnnualRatePercent: d("12"), TenureMonths: 12, StartDate: date(2024, time.January, 1)})
	require.NoError(t, err)

	outstanding := d("120000")
	for i := range schedule {
		assert.False(t, IsLoanClosed(schedule, p))
		updated, a, err := alloc.Apply(schedule[i], schedule[i].EMIAmount, schedule[i].DueDate)
		require.NoError(t, err)
		schedule[i] = updated
		outstanding = outstanding.Sub(a.PrincipalPortion)
	}

	assert.True(t, IsLoanClosed(schedule, p))
	assert.True(t, outstanding.IsZero())
	summary := Summarize(schedule, date(2025, time.February, 1), p)
	assert.True(t, summary.LoanOutstanding.IsZero())
	assertMoney(t, "7942.26", summary.InterestCollected)
	assertMoney(t, "127942.26", summary.EMICollected)
	assert.True(t, summary.InterestPendingTillToday.Equal(decimal.Zero))
}

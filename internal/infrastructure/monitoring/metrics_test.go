package monitoring

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordPayment(t *testing.T) {
	Business.PaymentsTotal.Reset()

	RecordPayment("success")
	RecordPayment("success")
	RecordPayment("failure_amount")

	expected := `
		# HELP emi_engine_payments_total Total number of payment applications by outcome.
		# TYPE emi_engine_payments_total counter
		emi_engine_payments_total{status="failure_amount"} 1
		emi_engine_payments_total{status="success"} 2
	`
	if err := testutil.CollectAndCompare(Business.PaymentsTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics for emi_engine_payments_total: %v", err)
	}
}

func TestSetPortfolio(t *testing.T) {
	SetPortfolio(12345.67, 4)

	assert.InDelta(t, 12345.67, testutil.ToFloat64(Business.PortfolioOutstanding), 0.0001)
	assert.Equal(t, float64(4), testutil.ToFloat64(Business.PortfolioOverdueInstallments))
}

func TestRecordScheduleGenerated(t *testing.T) {
	Business.SchedulesGeneratedTotal.Reset()

	RecordScheduleGenerated("regenerate", "success")

	assert.Equal(t, float64(1), testutil.ToFloat64(Business.SchedulesGeneratedTotal.WithLabelValues("regenerate", "success")))
}

package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PaymentsTotal                *prometheus.CounterVec
	PaymentRetriesTotal          prometheus.Counter
	SchedulesGeneratedTotal      *prometheus.CounterVec
	LoansClosedTotal             prometheus.Counter
	PortfolioOutstanding         prometheus.Gauge
	PortfolioOverdueInstallments prometheus.Gauge
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "emi_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emi_engine_payments_total",
				Help: "Total number of payment applications by outcome.",
			},
			[]string{"status"},
		),
		PaymentRetriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "emi_engine_payment_retries_total",
				Help: "Payment applications retried after a concurrent modification.",
			},
		),
		SchedulesGeneratedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emi_engine_schedules_generated_total",
				Help: "Total number of amortization schedules written.",
			},
			[]string{"kind", "status"},
		),
		LoansClosedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "emi_engine_loans_closed_total",
				Help: "Total number of loans closed by a payment.",
			},
		),
		PortfolioOutstanding: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "emi_engine_portfolio_outstanding",
				Help: "Outstanding EMI balance across active loans at the last overdue report.",
			},
		),
		PortfolioOverdueInstallments: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "emi_engine_portfolio_overdue_installments",
				Help: "Overdue installments across active loans at the last overdue report.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordPaymentRetry() {
	Business.PaymentRetriesTotal.Inc()
}

func RecordScheduleGenerated(kind, status string) {
	Business.SchedulesGeneratedTotal.WithLabelValues(kind, status).Inc()
}

func RecordLoanClosed() {
	Business.LoansClosedTotal.Inc()
}

func SetPortfolio(outstanding float64, overdueInstallments int) {
	Business.PortfolioOutstanding.Set(outstanding)
	Business.PortfolioOverdueInstallments.Set(float64(overdueInstallments))
}

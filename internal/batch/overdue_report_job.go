package batch

import (
	"context"
	"emi-engine/internal/domain/loan"
	"emi-engine/internal/event"
	"emi-engine/internal/infrastructure/monitoring"
	"emi-engine/internal/pkg/clock"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

type activeLoanLister interface {
	GetActiveLoans(ctx context.Context) ([]loan.Loan, error)
}

// OverdueReportJob scans every active loan, announces the ones with overdue
// installments and refreshes the portfolio gauges.
type OverdueReportJob struct {
	loans       activeLoanLister
	publisher   event.EventPublisher
	policy      loan.Policy
	clock       clock.Clock
	concurrency int
	logger      *slog.Logger
}

func NewOverdueReportJob(
	loans activeLoanLister,
	publisher event.EventPublisher,
	policy loan.Policy,
	clk clock.Clock,
	concurrency int,
	logger *slog.Logger,
) *OverdueReportJob {
	if loans == nil || publisher == nil || logger == nil {
		panic("OverdueReportJob dependencies cannot be nil")
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &OverdueReportJob{
		loans:       loans,
		publisher:   publisher,
		policy:      policy,
		clock:       clk,
		concurrency: concurrency,
		logger:      logger.With("job", "OverdueReport"),
	}
}

func (j *OverdueReportJob) Run(ctx context.Context) error {
	startTime := time.Now()
	today := clock.Today(j.clock)
	j.logger.InfoContext(ctx, "Starting overdue report job.", slog.Time("as_of", today))

	activeLoans, err := j.loans.GetActiveLoans(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get active loans, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get active loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched active loans.", slog.Int("count", len(activeLoans)))

	var (
		mu                  sync.Mutex
		outstanding         = decimal.Zero
		overdueInstallments int64
		overdueLoans        int64
		publishErrors       int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for i := range activeLoans {
		current := &activeLoans[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			summary := loan.Summarize(current.Installments, today, j.policy)
			mu.Lock()
			outstanding = outstanding.Add(summary.LoanOutstanding)
			mu.Unlock()

			if summary.OverdueInstallments == 0 {
				return nil
			}
			atomic.AddInt64(&overdueInstallments, int64(summary.OverdueInstallments))
			atomic.AddInt64(&overdueLoans, 1)

			logCtx := j.logger.With(slog.Int64("loanID", current.ID), slog.String("tenant", current.TenantID))
			logCtx.DebugContext(gctx, "Loan has overdue installments.", slog.Int("overdue", summary.OverdueInstallments))

			evt := event.LoanOverdueEvent{
				TenantID:            current.TenantID,
				LoanID:              current.ID,
				OverdueInstallments: summary.OverdueInstallments,
				InterestPending:     summary.InterestPendingTillToday.StringFixed(2),
				Outstanding:         summary.LoanOutstanding.StringFixed(2),
				AsOf:                today.Format(time.DateOnly),
				Timestamp:           j.clock.Now(),
			}
			if pubErr := j.publisher.PublishLoanOverdue(gctx, evt); pubErr != nil {
				// Publish failures are counted, not fatal.
				logCtx.ErrorContext(gctx, "Failed to publish loan overdue event", slog.Any("error", pubErr))
				atomic.AddInt64(&publishErrors, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		j.logger.ErrorContext(ctx, "Overdue report job interrupted.", slog.Any("error", err))
		return fmt.Errorf("overdue report interrupted: %w", err)
	}

	outstandingFloat, _ := outstanding.Float64()
	monitoring.SetPortfolio(outstandingFloat, int(overdueInstallments))

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("total_active_loans", len(activeLoans)),
		slog.Int64("loans_overdue", overdueLoans),
		slog.Int64("installments_overdue", overdueInstallments),
		slog.String("portfolio_outstanding", outstanding.StringFixed(2)),
		slog.Int64("publish_errors", publishErrors),
	)
	if publishErrors > 0 {
		summaryLog.WarnContext(ctx, "Overdue report job finished with errors.")
		return fmt.Errorf("job completed with %d publish errors", publishErrors)
	}
	summaryLog.InfoContext(ctx, "Overdue report job finished successfully.")
	return nil
}

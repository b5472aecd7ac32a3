package loan

import (
	"context"
	"emi-engine/internal/event"
	"emi-engine/internal/infrastructure/monitoring"
	"emi-engine/internal/pkg/apperrors"
	"emi-engine/internal/pkg/clock"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxIdempotencyKeyLength = 128
	dateLayout              = "2006-01-02"
)

type LoanService interface {
	CreateLoan(ctx context.Context, tenantID string, terms LoanTerms) (*Loan, error)

	// GenerateSchedule replaces the loan's schedule with one built from terms.
	GenerateSchedule(ctx context.Context, tenantID string, loanID int64, terms LoanTerms) (*Loan, error)

	RecordPayment(ctx context.Context, tenantID string, cmd PaymentCommand) (*PaymentResult, error)

	GetLoan(ctx context.Context, tenantID string, loanID int64) (*Loan, error)

	GetLedgerSummary(ctx context.Context, tenantID string, asOf time.Time) (LedgerSummary, error)

	GetLoanLedger(ctx context.Context, tenantID string, loanID int64, asOf time.Time) (LedgerSummary, error)

	GetClosure(ctx context.Context, tenantID string, loanID int64) (Closure, error)

	ListPayments(ctx context.Context, tenantID string, loanID int64) ([]Payment, error)
}

// InFlightGuard rejects a second copy of a request while the first is still
// being processed. Release only drops the key while token still owns it.
type InFlightGuard interface {
	Acquire(ctx context.Context, key string) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}

type PaymentCommand struct {
	InstallmentID  int64
	Amount         Money
	EffectiveDate  time.Time
	Mode           PaymentMode
	IdempotencyKey string
}

func (c PaymentCommand) Validate() error {
	if c.InstallmentID <= 0 {
		return apperrors.NewValidationError("installmentID", "must be a positive integer")
	}
	if err := ValidatePaymentAmount(c.Amount); err != nil {
		return err
	}
	key := strings.TrimSpace(c.IdempotencyKey)
	if key == "" || len(key) > maxIdempotencyKeyLength {
		return apperrors.NewValidationError("idempotencyKey", fmt.Sprintf("must be between 1 and %d characters", maxIdempotencyKeyLength))
	}
	if !c.Mode.Valid() {
		return apperrors.NewValidationError("mode", fmt.Sprintf("unsupported payment mode %q", c.Mode))
	}
	if c.EffectiveDate.IsZero() {
		return apperrors.NewValidationError("effectiveDate", "is required")
	}
	return nil
}

type PaymentResult struct {
	Installment Installment
	Payment     Payment
	// Replayed is true when the idempotency key matched an earlier payment
	// and nothing was applied.
	Replayed   bool
	LoanClosed bool
}

type ServiceOptions struct {
	Policy     Policy
	MaxRetries int
	// MaxTenureMonths caps accepted tenures. Zero means no cap.
	MaxTenureMonths int
	Guard           InFlightGuard
	Clock           clock.Clock
}

type loanServiceImpl struct {
	repo       Repository
	publisher  event.EventPublisher
	policy     Policy
	allocator  Allocator
	maxRetries int
	maxTenure  int
	guard      InFlightGuard
	clock      clock.Clock
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewLoanService(r Repository, pub event.EventPublisher, opts ServiceOptions, logger *slog.Logger) LoanService {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.Clock == nil {
		opts.Clock = clock.SystemClock{}
	}
	return &loanServiceImpl{
		repo:       r,
		publisher:  pub,
		policy:     opts.Policy,
		allocator:  NewAllocator(opts.Policy),
		maxRetries: opts.MaxRetries,
		maxTenure:  opts.MaxTenureMonths,
		guard:      opts.Guard,
		clock:      opts.Clock,
		tracer:     otel.Tracer("emi-engine/loan"),
		logger:     logger.With("component", "LoanService"),
	}
}

func (s *loanServiceImpl) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "LoanService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, tenantID string, terms LoanTerms) (_ *Loan, err error) {
	ctx, span := s.startSpan(ctx, "CreateLoan", attribute.String("tenant.id", tenantID))
	defer func() { endSpan(span, err) }()

	s.logger.InfoContext(ctx, "Creating new loan", "tenantID", tenantID, "tenureMonths", terms.TenureMonths)

	var newLoan *Loan
	if err = s.checkTenure(terms); err == nil {
		newLoan, err = NewLoan(tenantID, terms)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Rejected loan terms", "error", err)
		monitoring.RecordScheduleGenerated("create", "invalid")
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	created, err := s.repo.CreateLoanInTx(ctx, tx, newLoan)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save loan and schedule", "error", err)
		monitoring.RecordScheduleGenerated("create", "failure")
		return nil, fmt.Errorf("%w: failed to save loan and schedule: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		monitoring.RecordScheduleGenerated("create", "failure")
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	monitoring.RecordScheduleGenerated("create", "success")
	s.logger.InfoContext(ctx, "Loan created successfully", "loanID", created.ID, "tenantID", tenantID)
	s.publishScheduleGenerated(ctx, created, false)
	return created, nil
}

func (s *loanServiceImpl) GenerateSchedule(ctx context.Context, tenantID string, loanID int64, terms LoanTerms) (_ *Loan, err error) {
	ctx, span := s.startSpan(ctx, "GenerateSchedule", attribute.String("tenant.id", tenantID), attribute.Int64("loan.id", loanID))
	defer func() { endSpan(span, err) }()

	s.logger.InfoContext(ctx, "Regenerating loan schedule", "loanID", loanID)

	var schedule []Installment
	if err = s.checkTenure(terms); err == nil {
		schedule, err = GenerateSchedule(terms)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Rejected schedule parameters", "loanID", loanID, "error", err)
		monitoring.RecordScheduleGenerated("regenerate", "invalid")
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			monitoring.RecordScheduleGenerated("regenerate", "failure")
			s.logger.WarnContext(ctx, "Rolling back schedule regeneration", "loanID", loanID, "error", err)
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	current, err := s.repo.GetLoanForUpdate(ctx, tx, tenantID, loanID)
	if err != nil {
		return nil, s.notFoundOrInternal(ctx, err, "loan", loanID)
	}

	paid, err := s.repo.CountPaymentsForLoanInTx(ctx, tx, loanID)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("could not count payments for loan %d", loanID))
	}
	if paid > 0 {
		return nil, fmt.Errorf("%w: loan %d already has %d recorded payments, its schedule cannot be replaced", apperrors.ErrConflict, loanID, paid)
	}

	current.Principal = terms.Principal
	current.AnnualRatePercent = terms.AnnualRatePercent
	current.TenureMonths = terms.TenureMonths
	current.StartDate = clock.Date(terms.StartDate)
	current.Outstanding = terms.Principal
	current.Status = StatusActive

	if err = s.repo.UpdateLoanTermsInTx(ctx, tx, current); err != nil {
		return nil, storeError(err, "could not update loan terms")
	}

	stored, err := s.repo.ReplaceScheduleInTx(ctx, tx, loanID, schedule)
	if err != nil {
		return nil, storeError(err, "could not replace schedule")
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, storeError(err, "could not commit transaction")
	}

	current.Installments = stored
	monitoring.RecordScheduleGenerated("regenerate", "success")
	s.logger.InfoContext(ctx, "Loan schedule regenerated", "loanID", loanID, "installments", len(stored))
	s.publishScheduleGenerated(ctx, current, true)
	return current, nil
}

func (s *loanServiceImpl) RecordPayment(ctx context.Context, tenantID string, cmd PaymentCommand) (_ *PaymentResult, err error) {
	ctx, span := s.startSpan(ctx, "RecordPayment",
		attribute.String("tenant.id", tenantID),
		attribute.Int64("installment.id", cmd.InstallmentID),
	)
	defer func() { endSpan(span, err) }()

	logCtx := s.logger.With("installmentID", cmd.InstallmentID, "idempotencyKey", cmd.IdempotencyKey)
	logCtx.InfoContext(ctx, "Recording payment", "amount", cmd.Amount.StringFixed(MoneyScale), "mode", cmd.Mode)

	defer func() {
		monitoring.RecordPayment(paymentOutcome(err))
	}()

	if err = cmd.Validate(); err != nil {
		logCtx.WarnContext(ctx, "Rejected payment command", "error", err)
		return nil, err
	}

	guardKey := fmt.Sprintf("%s:%d:%s", tenantID, cmd.InstallmentID, cmd.IdempotencyKey)
	if s.guard != nil {
		token, acquired, guardErr := s.guard.Acquire(ctx, guardKey)
		switch {
		case guardErr != nil:
			logCtx.WarnContext(ctx, "In-flight guard unavailable, relying on database constraint", "error", guardErr)
		case !acquired:
			return nil, fmt.Errorf("%w: payment for installment %d", apperrors.ErrRequestInFlight, cmd.InstallmentID)
		default:
			defer func() {
				if relErr := s.guard.Release(context.WithoutCancel(ctx), guardKey, token); relErr != nil {
					logCtx.WarnContext(ctx, "Failed to release in-flight guard", "error", relErr)
				}
			}()
		}
	}

	var result *PaymentResult
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		result, err = s.applyPayment(ctx, tenantID, cmd)
		if !errors.Is(err, apperrors.ErrConcurrentModification) {
			break
		}
		logCtx.WarnContext(ctx, "Installment modified concurrently", "attempt", attempt, "maxRetries", s.maxRetries)
		if attempt < s.maxRetries {
			monitoring.RecordPaymentRetry()
		}
	}
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		logCtx.InfoContext(ctx, "Payment replayed from idempotency key", "paymentID", result.Payment.ID)
		return result, nil
	}

	logCtx.InfoContext(ctx, "Payment recorded successfully",
		"paymentID", result.Payment.ID,
		"principalPortion", result.Payment.PrincipalPortion.StringFixed(MoneyScale),
		"interestPortion", result.Payment.InterestPortion.StringFixed(MoneyScale),
		"status", result.Installment.Status,
	)
	s.publishPaymentRecorded(ctx, result)
	if result.LoanClosed {
		monitoring.RecordLoanClosed()
		s.publishLoanClosed(ctx, tenantID, result.Installment.LoanID)
	}
	return result, nil
}

// applyPayment runs one attempt of the payment transaction. It locks the loan
// row before the installment row, the same order schedule regeneration uses.
func (s *loanServiceImpl) applyPayment(ctx context.Context, tenantID string, cmd PaymentCommand) (_ *PaymentResult, err error) {
	target, err := s.repo.GetInstallmentByID(ctx, tenantID, cmd.InstallmentID)
	if err != nil {
		return nil, s.notFoundOrInternal(ctx, err, "installment", cmd.InstallmentID)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic occurred during payment processing", "installmentID", cmd.InstallmentID, "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	if _, err = s.repo.GetLoanForUpdate(ctx, tx, tenantID, target.LoanID); err != nil {
		return nil, s.notFoundOrInternal(ctx, err, "loan", target.LoanID)
	}

	inst, err := s.repo.FindInstallmentForUpdate(ctx, tx, tenantID, cmd.InstallmentID)
	if err != nil {
		return nil, s.notFoundOrInternal(ctx, err, "installment", cmd.InstallmentID)
	}

	existing, err := s.repo.FindPaymentByIdempotencyKeyInTx(ctx, tx, cmd.InstallmentID, cmd.IdempotencyKey)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, storeError(err, "could not look up idempotency key")
	}
	if existing != nil {
		if !existing.Amount.Equal(cmd.Amount) {
			err = fmt.Errorf("%w: idempotency key %q was already used for a payment of %s",
				apperrors.ErrConflict, cmd.IdempotencyKey, existing.Amount.StringFixed(MoneyScale))
			return nil, err
		}
		if err = s.repo.CommitTx(ctx, tx); err != nil {
			return nil, storeError(err, "could not commit transaction")
		}
		return &PaymentResult{Installment: *inst, Payment: *existing, Replayed: true}, nil
	}

	updated, alloc, err := s.allocator.Apply(*inst, cmd.Amount, clock.Date(cmd.EffectiveDate))
	if err != nil {
		return nil, err
	}

	if err = s.repo.UpdateInstallmentInTx(ctx, tx, &updated); err != nil {
		return nil, storeError(err, "could not update installment")
	}

	payment, err := s.repo.InsertPaymentInTx(ctx, tx, &Payment{
		InstallmentID:      updated.ID,
		LoanID:             updated.LoanID,
		TenantID:           tenantID,
		IdempotencyKey:     cmd.IdempotencyKey,
		Amount:             alloc.Amount,
		PrincipalPortion:   alloc.PrincipalPortion,
		InterestPortion:    alloc.InterestPortion,
		RoundingAdjustment: alloc.RoundingAdjustment,
		EffectiveDate:      clock.Date(cmd.EffectiveDate),
		Mode:               cmd.Mode,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			// A concurrent request with the same key won the insert. Retry so
			// the next attempt replays it.
			return nil, fmt.Errorf("%w: idempotency key inserted concurrently", apperrors.ErrConcurrentModification)
		}
		return nil, storeError(err, "could not record payment")
	}

	if alloc.PrincipalPortion.IsPositive() {
		if err = s.repo.ApplyPrincipalPaymentInTx(ctx, tx, updated.LoanID, alloc.PrincipalPortion); err != nil {
			return nil, storeError(err, "could not update loan outstanding")
		}
	}

	closed := false
	if updated.Status == InstallmentPaid {
		installments, lerr := s.repo.GetInstallmentsByLoanIDInTx(ctx, tx, updated.LoanID)
		if lerr != nil {
			err = storeError(lerr, "could not load schedule")
			return nil, err
		}
		if IsLoanClosed(installments, s.policy) {
			if err = s.repo.UpdateLoanStatusInTx(ctx, tx, updated.LoanID, StatusClosed); err != nil {
				return nil, storeError(err, "could not close loan")
			}
			closed = true
		}
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, storeError(err, "could not commit transaction")
	}

	return &PaymentResult{Installment: updated, Payment: *payment, LoanClosed: closed}, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, tenantID string, loanID int64) (_ *Loan, err error) {
	ctx, span := s.startSpan(ctx, "GetLoan", attribute.Int64("loan.id", loanID))
	defer func() { endSpan(span, err) }()

	return s.loadLoan(ctx, tenantID, loanID)
}

func (s *loanServiceImpl) loadLoan(ctx context.Context, tenantID string, loanID int64) (*Loan, error) {
	s.logger.InfoContext(ctx, "Getting loan details", "loanID", loanID)
	l, err := s.repo.GetLoanByID(ctx, tenantID, loanID)
	if err != nil {
		return nil, s.notFoundOrInternal(ctx, err, "loan", loanID)
	}

	installments, err := s.repo.GetInstallmentsByLoanID(ctx, tenantID, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get loan schedule", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: failed to get schedule for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	l.Installments = installments
	return l, nil
}

func (s *loanServiceImpl) GetLedgerSummary(ctx context.Context, tenantID string, asOf time.Time) (_ LedgerSummary, err error) {
	ctx, span := s.startSpan(ctx, "GetLedgerSummary", attribute.String("tenant.id", tenantID))
	defer func() { endSpan(span, err) }()

	installments, err := s.repo.GetInstallmentsByTenant(ctx, tenantID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load installments for ledger", "tenantID", tenantID, "error", err)
		return LedgerSummary{}, fmt.Errorf("%w: failed to load installments: %v", apperrors.ErrInternalServer, err)
	}
	return Summarize(installments, s.asOfOrToday(asOf), s.policy), nil
}

func (s *loanServiceImpl) GetLoanLedger(ctx context.Context, tenantID string, loanID int64, asOf time.Time) (_ LedgerSummary, err error) {
	ctx, span := s.startSpan(ctx, "GetLoanLedger", attribute.String("tenant.id", tenantID), attribute.Int64("loan.id", loanID))
	defer func() { endSpan(span, err) }()

	l, err := s.loadLoan(ctx, tenantID, loanID)
	if err != nil {
		return LedgerSummary{}, err
	}
	return Summarize(l.Installments, s.asOfOrToday(asOf), s.policy), nil
}

func (s *loanServiceImpl) GetClosure(ctx context.Context, tenantID string, loanID int64) (_ Closure, err error) {
	ctx, span := s.startSpan(ctx, "GetClosure", attribute.String("tenant.id", tenantID), attribute.Int64("loan.id", loanID))
	defer func() { endSpan(span, err) }()

	l, err := s.loadLoan(ctx, tenantID, loanID)
	if err != nil {
		return Closure{}, err
	}
	return ClosureState(l.Installments, s.policy), nil
}

func (s *loanServiceImpl) ListPayments(ctx context.Context, tenantID string, loanID int64) (_ []Payment, err error) {
	ctx, span := s.startSpan(ctx, "ListPayments", attribute.String("tenant.id", tenantID), attribute.Int64("loan.id", loanID))
	defer func() { endSpan(span, err) }()

	if _, err = s.repo.GetLoanByID(ctx, tenantID, loanID); err != nil {
		return nil, s.notFoundOrInternal(ctx, err, "loan", loanID)
	}
	payments, err := s.repo.GetPaymentsByLoanID(ctx, tenantID, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list payments", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: failed to list payments for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return payments, nil
}

func (s *loanServiceImpl) checkTenure(terms LoanTerms) error {
	if s.maxTenure > 0 && terms.TenureMonths > s.maxTenure {
		return apperrors.NewScheduleParameterError("tenureMonths", fmt.Sprintf("must not exceed %d", s.maxTenure))
	}
	return nil
}

func (s *loanServiceImpl) asOfOrToday(asOf time.Time) time.Time {
	if asOf.IsZero() {
		return clock.Today(s.clock)
	}
	return clock.Date(asOf)
}

func (s *loanServiceImpl) notFoundOrInternal(ctx context.Context, err error, kind string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: %s with ID %d not found", apperrors.ErrNotFound, kind, id)
	}
	s.logger.ErrorContext(ctx, "Repository call failed", "kind", kind, "id", id, "error", err)
	return storeError(err, fmt.Sprintf("failed to load %s %d", kind, id))
}

// storeError wraps a repository failure as an internal error. Lock and
// constraint conflicts keep their classification.
func storeError(err error, msg string) error {
	if errors.Is(err, apperrors.ErrConcurrentModification) || errors.Is(err, apperrors.ErrConflict) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %v", apperrors.ErrInternalServer, msg, err)
}

func paymentOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrOverpayment):
		return "failure_overpayment"
	case errors.Is(err, apperrors.ErrInvalidPaymentAmount):
		return "failure_amount"
	case errors.Is(err, apperrors.ErrInstallmentAlreadyPaid):
		return "failure_already_paid"
	case errors.Is(err, apperrors.ErrRequestInFlight):
		return "failure_in_flight"
	case errors.Is(err, apperrors.ErrConcurrentModification):
		return "failure_concurrent"
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrConflict):
		return "failure_rejected"
	default:
		return "failure_internal"
	}
}

func (s *loanServiceImpl) publishPaymentRecorded(ctx context.Context, r *PaymentResult) {
	if s.publisher == nil {
		return
	}
	p := r.Payment
	err := s.publisher.PublishPaymentRecorded(ctx, event.PaymentRecordedEvent{
		PaymentID:          p.ID,
		TenantID:           p.TenantID,
		LoanID:             p.LoanID,
		InstallmentID:      p.InstallmentID,
		Amount:             p.Amount.StringFixed(MoneyScale),
		PrincipalPortion:   p.PrincipalPortion.StringFixed(MoneyScale),
		InterestPortion:    p.InterestPortion.StringFixed(MoneyScale),
		RoundingAdjustment: p.RoundingAdjustment.StringFixed(MoneyScale),
		InstallmentStatus:  string(r.Installment.Status),
		Mode:               string(p.Mode),
		EffectiveDate:      p.EffectiveDate.Format(dateLayout),
		Timestamp:          s.clock.Now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish payment recorded event", "paymentID", p.ID, "error", err)
	}
}

func (s *loanServiceImpl) publishLoanClosed(ctx context.Context, tenantID string, loanID int64) {
	if s.publisher == nil {
		return
	}
	residual := "0.00"
	if installments, err := s.repo.GetInstallmentsByLoanID(ctx, tenantID, loanID); err == nil {
		residual = ResidualRounding(installments).StringFixed(MoneyScale)
	}
	err := s.publisher.PublishLoanClosed(ctx, event.LoanClosedEvent{
		TenantID:         tenantID,
		LoanID:           loanID,
		ResidualRounding: residual,
		Timestamp:        s.clock.Now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan closed event", "loanID", loanID, "error", err)
	}
}

func (s *loanServiceImpl) publishScheduleGenerated(ctx context.Context, l *Loan, regenerated bool) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishScheduleGenerated(ctx, event.ScheduleGeneratedEvent{
		TenantID:          l.TenantID,
		LoanID:            l.ID,
		Principal:         l.Principal.StringFixed(MoneyScale),
		AnnualRatePercent: l.AnnualRatePercent.String(),
		TenureMonths:      l.TenureMonths,
		EMIAmount:         l.Summary().EMIAmount.StringFixed(MoneyScale),
		Regenerated:       regenerated,
		Timestamp:         s.clock.Now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish schedule generated event", "loanID", l.ID, "error", err)
	}
}

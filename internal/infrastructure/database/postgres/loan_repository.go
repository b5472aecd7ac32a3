package postgres

import (
	"context"
	"emi-engine/internal/domain/loan"
	"emi-engine/internal/infrastructure/monitoring"
	"emi-engine/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var _ loan.Repository = (*LoanRepository)(nil)

var errMsgFormat = "%w: %w"

const (
	loanColumns = `l.id, l.tenant_id, l.principal, l.annual_rate_percent, l.tenure_months, l.start_date,
        l.outstanding, l.status, l.created_at, l.updated_at`

	installmentColumns = `i.id, i.loan_id, i.sequence_number, i.is_final, i.due_date, i.emi_amount,
        i.principal_component, i.interest_component, i.amount_paid, i.interest_paid, i.principal_paid,
        i.status, i.paid_date, i.version, i.created_at, i.updated_at`

	paymentColumns = `p.id, p.installment_id, p.loan_id, p.tenant_id, p.idempotency_key, p.amount,
        p.principal_portion, p.interest_portion, p.rounding_adjustment, p.effective_date, p.mode, p.created_at`
)

var installmentCopyColumns = []string{
	"loan_id", "sequence_number", "is_final", "due_date", "emi_amount", "principal_component",
	"interest_component", "amount_paid", "interest_paid", "principal_paid", "status", "version",
}

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func observe(queryName string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		status = "error"
	}
	monitoring.RecordDBQuery(queryName, status, time.Since(start))
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) CreateLoanInTx(ctx context.Context, tx pgx.Tx, newLoan *loan.Loan) (_ *loan.Loan, err error) {
	defer func(start time.Time) { observe("CreateLoan", start, err) }(time.Now())

	loanSQL := `
        INSERT INTO loans (tenant_id, principal, annual_rate_percent, tenure_months, start_date, outstanding, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	created := *newLoan
	err = tx.QueryRow(ctx, loanSQL,
		newLoan.TenantID, newLoan.Principal, newLoan.AnnualRatePercent, newLoan.TenureMonths,
		newLoan.StartDate, newLoan.Outstanding, newLoan.Status,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)

	created.Installments, err = r.insertSchedule(ctx, tx, created.ID, newLoan.Installments)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// insertSchedule bulk-copies schedule and reads it back so the caller gets
// the generated ids.
func (r *LoanRepository) insertSchedule(ctx context.Context, tx pgx.Tx, loanID int64, schedule []loan.Installment) ([]loan.Installment, error) {
	if len(schedule) == 0 {
		return []loan.Installment{}, nil
	}

	rows := make([][]any, 0, len(schedule))
	for _, inst := range schedule {
		rows = append(rows, []any{
			loanID, inst.Sequence, inst.Final, inst.DueDate, inst.EMIAmount, inst.PrincipalComponent,
			inst.InterestComponent, inst.AmountPaid, inst.InterestPaid, inst.PrincipalPaid, inst.Status, int64(1),
		})
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"installments"}, installmentCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed copying schedule rows", "error", err, "loan_id", loanID)
		return nil, translateDBError(err, r.logger)
	}
	if copied != int64(len(schedule)) {
		return nil, fmt.Errorf("%w: inserted %d of %d installments", apperrors.ErrDatabase, copied, len(schedule))
	}
	r.logger.InfoContext(ctx, "Loan schedule created in DB", "loan_id", loanID, "num_entries", len(schedule))

	return r.GetInstallmentsByLoanIDInTx(ctx, tx, loanID)
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, tenantID string, loanID int64) (_ *loan.Loan, err error) {
	defer func(start time.Time) { observe("GetLoanByID", start, err) }(time.Now())

	query := `SELECT ` + loanColumns + ` FROM loans l WHERE l.id = $1 AND l.tenant_id = $2`

	l, err := scanLoan(r.db.QueryRow(ctx, query, loanID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
			return nil, apperrors.ErrNotFound
		}
		return nil, translateDBError(err, r.logger)
	}
	return l, nil
}

func (r *LoanRepository) GetLoanForUpdate(ctx context.Context, tx pgx.Tx, tenantID string, loanID int64) (_ *loan.Loan, err error) {
	defer func(start time.Time) { observe("GetLoanForUpdate", start, err) }(time.Now())

	query := `SELECT ` + loanColumns + ` FROM loans l WHERE l.id = $1 AND l.tenant_id = $2 FOR UPDATE`

	l, err := scanLoan(tx.QueryRow(ctx, query, loanID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, translateDBError(err, r.logger)
	}
	return l, nil
}

func (r *LoanRepository) UpdateLoanTermsInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) (err error) {
	defer func(start time.Time) { observe("UpdateLoanTerms", start, err) }(time.Now())

	query := `
        UPDATE loans
        SET principal = $1, annual_rate_percent = $2, tenure_months = $3, start_date = $4,
            outstanding = $5, status = $6, updated_at = NOW()
        WHERE id = $7`

	tag, err := tx.Exec(ctx, query, l.Principal, l.AnnualRatePercent, l.TenureMonths, l.StartDate, l.Outstanding, l.Status, l.ID)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status loan.LoanStatus) (err error) {
	defer func(start time.Time) { observe("UpdateLoanStatus", start, err) }(time.Now())

	query := `UPDATE loans SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, status, loanID)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Loan status updated", "loanID", loanID, "status", status)
	return nil
}

func (r *LoanRepository) ApplyPrincipalPaymentInTx(ctx context.Context, tx pgx.Tx, loanID int64, principal loan.Money) (err error) {
	defer func(start time.Time) { observe("ApplyPrincipalPayment", start, err) }(time.Now())

	query := `UPDATE loans SET outstanding = GREATEST(outstanding - $1, 0), updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, principal, loanID)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) ReplaceScheduleInTx(ctx context.Context, tx pgx.Tx, loanID int64, schedule []loan.Installment) (_ []loan.Installment, err error) {
	defer func(start time.Time) { observe("ReplaceSchedule", start, err) }(time.Now())

	tag, err := tx.Exec(ctx, `DELETE FROM installments WHERE loan_id = $1`, loanID)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	r.logger.InfoContext(ctx, "Deleted previous schedule", "loanID", loanID, "rows", tag.RowsAffected())

	return r.insertSchedule(ctx, tx, loanID, schedule)
}

func (r *LoanRepository) GetInstallmentsByLoanID(ctx context.Context, tenantID string, loanID int64) (_ []loan.Installment, err error) {
	defer func(start time.Time) { observe("GetInstallmentsByLoanID", start, err) }(time.Now())

	query := `
        SELECT ` + installmentColumns + `
        FROM installments i
        JOIN loans l ON l.id = i.loan_id
        WHERE i.loan_id = $1 AND l.tenant_id = $2
        ORDER BY i.sequence_number`

	rows, err := r.db.Query(ctx, query, loanID, tenantID)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return collectInstallments(rows)
}

func (r *LoanRepository) GetInstallmentsByLoanIDInTx(ctx context.Context, tx pgx.Tx, loanID int64) (_ []loan.Installment, err error) {
	defer func(start time.Time) { observe("GetInstallmentsByLoanIDInTx", start, err) }(time.Now())

	query := `
        SELECT ` + installmentColumns + `
        FROM installments i
        WHERE i.loan_id = $1
        ORDER BY i.sequence_number`

	rows, err := tx.Query(ctx, query, loanID)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return collectInstallments(rows)
}

func (r *LoanRepository) GetInstallmentsByTenant(ctx context.Context, tenantID string) (_ []loan.Installment, err error) {
	defer func(start time.Time) { observe("GetInstallmentsByTenant", start, err) }(time.Now())

	query := `
        SELECT ` + installmentColumns + `
        FROM installments i
        JOIN loans l ON l.id = i.loan_id
        WHERE l.tenant_id = $1
        ORDER BY i.loan_id, i.sequence_number`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return collectInstallments(rows)
}

func (r *LoanRepository) GetInstallmentByID(ctx context.Context, tenantID string, installmentID int64) (_ *loan.Installment, err error) {
	defer func(start time.Time) { observe("GetInstallmentByID", start, err) }(time.Now())

	query := `
        SELECT ` + installmentColumns + `
        FROM installments i
        JOIN loans l ON l.id = i.loan_id
        WHERE i.id = $1 AND l.tenant_id = $2`

	inst, err := scanInstallment(r.db.QueryRow(ctx, query, installmentID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, translateDBError(err, r.logger)
	}
	return inst, nil
}

func (r *LoanRepository) FindInstallmentForUpdate(ctx context.Context, tx pgx.Tx, tenantID string, installmentID int64) (_ *loan.Installment, err error) {
	defer func(start time.Time) { observe("FindInstallmentForUpdate", start, err) }(time.Now())

	query := `
        SELECT ` + installmentColumns + `
        FROM installments i
        JOIN loans l ON l.id = i.loan_id
        WHERE i.id = $1 AND l.tenant_id = $2
        FOR UPDATE OF i`

	inst, err := scanInstallment(tx.QueryRow(ctx, query, installmentID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Installment not found", "installmentID", installmentID)
			return nil, apperrors.ErrNotFound
		}
		return nil, translateDBError(err, r.logger)
	}
	return inst, nil
}

func (r *LoanRepository) UpdateInstallmentInTx(ctx context.Context, tx pgx.Tx, inst *loan.Installment) (err error) {
	defer func(start time.Time) { observe("UpdateInstallment", start, err) }(time.Now())

	query := `
        UPDATE installments
        SET amount_paid = $1, interest_paid = $2, principal_paid = $3, status = $4, paid_date = $5,
            version = version + 1, updated_at = NOW()
        WHERE id = $6 AND version = $7`

	tag, err := tx.Exec(ctx, query,
		inst.AmountPaid, inst.InterestPaid, inst.PrincipalPaid, inst.Status, inst.PaidDate,
		inst.ID, inst.Version,
	)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Installment version changed underneath update", "installmentID", inst.ID, "version", inst.Version)
		return fmt.Errorf("%w: installment %d at version %d", apperrors.ErrConcurrentModification, inst.ID, inst.Version)
	}
	inst.Version++
	return nil
}

func (r *LoanRepository) CountPaymentsForLoanInTx(ctx context.Context, tx pgx.Tx, loanID int64) (_ int, err error) {
	defer func(start time.Time) { observe("CountPaymentsForLoan", start, err) }(time.Now())

	var count int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE loan_id = $1`, loanID).Scan(&count)
	if err != nil {
		return 0, translateDBError(err, r.logger)
	}
	return count, nil
}

func (r *LoanRepository) FindPaymentByIdempotencyKeyInTx(ctx context.Context, tx pgx.Tx, installmentID int64, key string) (_ *loan.Payment, err error) {
	defer func(start time.Time) { observe("FindPaymentByIdempotencyKey", start, err) }(time.Now())

	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.installment_id = $1 AND p.idempotency_key = $2`

	p, err := scanPayment(tx.QueryRow(ctx, query, installmentID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, translateDBError(err, r.logger)
	}
	return p, nil
}

func (r *LoanRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *loan.Payment) (_ *loan.Payment, err error) {
	defer func(start time.Time) { observe("InsertPayment", start, err) }(time.Now())

	query := `
        INSERT INTO payments (installment_id, loan_id, tenant_id, idempotency_key, amount, principal_portion,
            interest_portion, rounding_adjustment, effective_date, mode, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        RETURNING id, created_at`

	stored := *payment
	err = tx.QueryRow(ctx, query,
		payment.InstallmentID, payment.LoanID, payment.TenantID, payment.IdempotencyKey, payment.Amount,
		payment.PrincipalPortion, payment.InterestPortion, payment.RoundingAdjustment, payment.EffectiveDate, payment.Mode,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return &stored, nil
}

func (r *LoanRepository) GetPaymentsByLoanID(ctx context.Context, tenantID string, loanID int64) (_ []loan.Payment, err error) {
	defer func(start time.Time) { observe("GetPaymentsByLoanID", start, err) }(time.Now())

	query := `
        SELECT ` + paymentColumns + `
        FROM payments p
        WHERE p.loan_id = $1 AND p.tenant_id = $2
        ORDER BY p.created_at, p.id`

	rows, err := r.db.Query(ctx, query, loanID, tenantID)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	defer rows.Close()

	payments := make([]loan.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, translateDBError(err, r.logger)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return payments, nil
}

func (r *LoanRepository) GetActiveLoans(ctx context.Context) (_ []loan.Loan, err error) {
	logCtx := r.logger.With(slog.String("operation", "GetActiveLoans"))
	defer func(start time.Time) { observe("GetActiveLoans", start, err) }(time.Now())

	rows, err := r.db.Query(ctx, `SELECT `+loanColumns+` FROM loans l WHERE l.status = $1 ORDER BY l.id`, loan.StatusActive)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query active loans", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query active loans: %w", apperrors.ErrDatabase, err)
	}

	loans := make([]loan.Loan, 0)
	index := make(map[int64]int)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			rows.Close()
			return nil, translateDBError(err, r.logger)
		}
		index[l.ID] = len(loans)
		loans = append(loans, *l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, r.logger)
	}
	if len(loans) == 0 {
		return loans, nil
	}

	instRows, err := r.db.Query(ctx, `
        SELECT `+installmentColumns+`
        FROM installments i
        JOIN loans l ON l.id = i.loan_id
        WHERE l.status = $1
        ORDER BY i.loan_id, i.sequence_number`, loan.StatusActive)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	installments, err := collectInstallments(instRows)
	if err != nil {
		return nil, err
	}
	for _, inst := range installments {
		if pos, ok := index[inst.LoanID]; ok {
			loans[pos].Installments = append(loans[pos].Installments, inst)
		}
	}

	logCtx.DebugContext(ctx, "Loaded active loans", slog.Int("count", len(loans)))
	return loans, nil
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.TenantID, &l.Principal, &l.AnnualRatePercent, &l.TenureMonths, &l.StartDate,
		&l.Outstanding, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanInstallment(row pgx.Row) (*loan.Installment, error) {
	var inst loan.Installment
	err := row.Scan(
		&inst.ID, &inst.LoanID, &inst.Sequence, &inst.Final, &inst.DueDate, &inst.EMIAmount,
		&inst.PrincipalComponent, &inst.InterestComponent, &inst.AmountPaid, &inst.InterestPaid, &inst.PrincipalPaid,
		&inst.Status, &inst.PaidDate, &inst.Version, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func scanPayment(row pgx.Row) (*loan.Payment, error) {
	var p loan.Payment
	err := row.Scan(
		&p.ID, &p.InstallmentID, &p.LoanID, &p.TenantID, &p.IdempotencyKey, &p.Amount,
		&p.PrincipalPortion, &p.InterestPortion, &p.RoundingAdjustment, &p.EffectiveDate, &p.Mode, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectInstallments(rows pgx.Rows) ([]loan.Installment, error) {
	defer rows.Close()

	installments := make([]loan.Installment, 0)
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan installment: %w", apperrors.ErrDatabase, err)
		}
		installments = append(installments, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed iterating installments: %w", apperrors.ErrDatabase, err)
	}
	return installments, nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		case "23503":
			contextLogger.Warn("Database foreign key violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrConflict, pgErr.ConstraintName)
		case "40001", "40P01":
			contextLogger.Warn("Serialization failure", "code", pgErr.Code)
			return fmt.Errorf("%w: %s", apperrors.ErrConcurrentModification, pgErr.Message)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}

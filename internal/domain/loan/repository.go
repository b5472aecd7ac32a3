package loan

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository is the transactional store for loans, installments and payments.
// Every read and write is scoped to a tenant.
type Repository interface {
	CreateLoanInTx(ctx context.Context, tx pgx.Tx, loan *Loan) (*Loan, error)

	GetLoanByID(ctx context.Context, tenantID string, loanID int64) (*Loan, error)

	GetLoanForUpdate(ctx context.Context, tx pgx.Tx, tenantID string, loanID int64) (*Loan, error)

	UpdateLoanTermsInTx(ctx context.Context, tx pgx.Tx, loan *Loan) error

	UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status LoanStatus) error

	// ApplyPrincipalPaymentInTx lowers the loan's outstanding principal,
	// never below zero.
	ApplyPrincipalPaymentInTx(ctx context.Context, tx pgx.Tx, loanID int64, principal Money) error

	// ReplaceScheduleInTx deletes every installment of the loan and inserts
	// schedule in its place.
	ReplaceScheduleInTx(ctx context.Context, tx pgx.Tx, loanID int64, schedule []Installment) ([]Installment, error)

	GetInstallmentsByLoanID(ctx context.Context, tenantID string, loanID int64) ([]Installment, error)

	GetInstallmentsByLoanIDInTx(ctx context.Context, tx pgx.Tx, loanID int64) ([]Installment, error)

	GetInstallmentsByTenant(ctx context.Context, tenantID string) ([]Installment, error)

	FindInstallmentForUpdate(ctx context.Context, tx pgx.Tx, tenantID string, installmentID int64) (*Installment, error)

	// UpdateInstallmentInTx writes inst if its version is unchanged and
	// bumps the version. It fails with ErrConcurrentModification otherwise.
	UpdateInstallmentInTx(ctx context.Context, tx pgx.Tx, inst *Installment) error

	CountPaymentsForLoanInTx(ctx context.Context, tx pgx.Tx, loanID int64) (int, error)

	FindPaymentByIdempotencyKeyInTx(ctx context.Context, tx pgx.Tx, installmentID int64, key string) (*Payment, error)

	InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *Payment) (*Payment, error)

	GetInstallmentByID(ctx context.Context, tenantID string, installmentID int64) (*Installment, error)

	GetPaymentsByLoanID(ctx context.Context, tenantID string, loanID int64) ([]Payment, error)

	// GetActiveLoans returns every ACTIVE loan across tenants together with its
	// installments, for background reporting.
	GetActiveLoans(ctx context.Context) ([]Loan, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

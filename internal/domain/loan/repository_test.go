package loan

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

type TxMock struct {
	pgx.Tx
}

func (m *MockRepository) CreateLoanInTx(ctx context.Context, tx pgx.Tx, loan *Loan) (*Loan, error) {
	args := m.Called(ctx, tx, loan)
	if rf, ok := args.Get(0).(func(context.Context, pgx.Tx, *Loan) *Loan); ok {
		return rf(ctx, tx, loan), args.Error(1)
	}
	if l, ok := args.Get(0).(*Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetLoanByID(ctx context.Context, tenantID string, loanID int64) (*Loan, error) {
	args := m.Called(ctx, tenantID, loanID)
	if l, ok := args.Get(0).(*Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetLoanForUpdate(ctx context.Context, tx pgx.Tx, tenantID string, loanID int64) (*Loan, error) {
	args := m.Called(ctx, tx, tenantID, loanID)
	if l, ok := args.Get(0).(*Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) UpdateLoanTermsInTx(ctx context.Context, tx pgx.Tx, loan *Loan) error {
	args := m.Called(ctx, tx, loan)
	return args.Error(0)
}

func (m *MockRepository) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status LoanStatus) error {
	args := m.Called(ctx, tx, loanID, status)
	return args.Error(0)
}

func (m *MockRepository) ApplyPrincipalPaymentInTx(ctx context.Context, tx pgx.Tx, loanID int64, principal Money) error {
	args := m.Called(ctx, tx, loanID, principal)
	return args.Error(0)
}

func (m *MockRepository) ReplaceScheduleInTx(ctx context.Context, tx pgx.Tx, loanID int64, schedule []Installment) ([]Installment, error) {
	args := m.Called(ctx, tx, loanID, schedule)
	if rf, ok := args.Get(0).(func(context.Context, pgx.Tx, int64, []Installment) []Installment); ok {
		return rf(ctx, tx, loanID, schedule), args.Error(1)
	}
	if s, ok := args.Get(0).([]Installment); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetInstallmentsByLoanID(ctx context.Context, tenantID string, loanID int64) ([]Installment, error) {
	args := m.Called(ctx, tenantID, loanID)
	if s, ok := args.Get(0).([]Installment); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetInstallmentsByLoanIDInTx(ctx context.Context, tx pgx.Tx, loanID int64) ([]Installment, error) {
	args := m.Called(ctx, tx, loanID)
	if s, ok := args.Get(0).([]Installment); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetInstallmentsByTenant(ctx context.Context, tenantID string) ([]Installment, error) {
	args := m.Called(ctx, tenantID)
	if s, ok := args.Get(0).([]Installment); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) FindInstallmentForUpdate(ctx context.Context, tx pgx.Tx, tenantID string, installmentID int64) (*Installment, error) {
	args := m.Called(ctx, tx, tenantID, installmentID)
	if i, ok := args.Get(0).(*Installment); ok {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) UpdateInstallmentInTx(ctx context.Context, tx pgx.Tx, inst *Installment) error {
	args := m.Called(ctx, tx, inst)
	return args.Error(0)
}

func (m *MockRepository) CountPaymentsForLoanInTx(ctx context.Context, tx pgx.Tx, loanID int64) (int, error) {
	args := m.Called(ctx, tx, loanID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) FindPaymentByIdempotencyKeyInTx(ctx context.Context, tx pgx.Tx, installmentID int64, key string) (*Payment, error) {
	args := m.Called(ctx, tx, installmentID, key)
	if p, ok := args.Get(0).(*Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, payment *Payment) (*Payment, error) {
	args := m.Called(ctx, tx, payment)
	if rf, ok := args.Get(0).(func(context.Context, pgx.Tx, *Payment) *Payment); ok {
		return rf(ctx, tx, payment), args.Error(1)
	}
	if p, ok := args.Get(0).(*Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetInstallmentByID(ctx context.Context, tenantID string, installmentID int64) (*Installment, error) {
	args := m.Called(ctx, tenantID, installmentID)
	if i, ok := args.Get(0).(*Installment); ok {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetPaymentsByLoanID(ctx context.Context, tenantID string, loanID int64) ([]Payment, error) {
	args := m.Called(ctx, tenantID, loanID)
	if p, ok := args.Get(0).([]Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetActiveLoans(ctx context.Context) ([]Loan, error) {
	args := m.Called(ctx)
	if l, ok := args.Get(0).([]Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

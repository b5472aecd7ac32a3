package dto

import (
	"emi-engine/internal/domain/loan"
	"emi-engine/internal/pkg/apperrors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, apperrors.NewValidationError(field, "is required")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError(field, "must be a decimal number")
	}
	return d, nil
}

// ParseDate parses a YYYY-MM-DD value. An empty value yields the zero time.
func ParseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field, "invalid date format (use YYYY-MM-DD)")
	}
	return t, nil
}

type CreateLoanRequest struct {
	Principal         string `json:"principal" example:"120000.00"`
	AnnualRatePercent string `json:"annualRatePercent" example:"12"`
	TenureMonths      int    `json:"tenureMonths" example:"12"`
	StartDate         string `json:"startDate" example:"2024-01-01"`
}

// ToTerms parses the request into loan terms. Range checks on the parsed
// values are left to the domain.
func (r *CreateLoanRequest) ToTerms() (loan.LoanTerms, error) {
	principal, err := parseDecimal("principal", r.Principal)
	if err != nil {
		return loan.LoanTerms{}, err
	}
	rate, err := parseDecimal("annualRatePercent", r.AnnualRatePercent)
	if err != nil {
		return loan.LoanTerms{}, err
	}
	if strings.TrimSpace(r.StartDate) == "" {
		return loan.LoanTerms{}, apperrors.NewValidationError("startDate", "is required")
	}
	start, err := ParseDate("startDate", r.StartDate)
	if err != nil {
		return loan.LoanTerms{}, err
	}
	return loan.LoanTerms{
		Principal:         principal,
		AnnualRatePercent: rate,
		TenureMonths:      r.TenureMonths,
		StartDate:         start,
	}, nil
}

// GenerateScheduleRequest carries the terms a loan's schedule is rebuilt from.
type GenerateScheduleRequest = CreateLoanRequest

type RecordPaymentRequest struct {
	Amount        string `json:"amount" example:"10661.85"`
	EffectiveDate string `json:"effectiveDate" example:"2024-02-01"`
	Mode          string `json:"mode" example:"UPI" enums:"CASH,UPI,CARD,BANK_TRANSFER,CHEQUE"`
}

func (r *RecordPaymentRequest) ToCommand(installmentID int64, idempotencyKey string, today time.Time) (loan.PaymentCommand, error) {
	amount, err := parseDecimal("amount", r.Amount)
	if err != nil {
		return loan.PaymentCommand{}, err
	}
	effective, err := ParseDate("effectiveDate", r.EffectiveDate)
	if err != nil {
		return loan.PaymentCommand{}, err
	}
	if effective.IsZero() {
		effective = today
	}
	cmd := loan.PaymentCommand{
		InstallmentID:  installmentID,
		Amount:         amount,
		EffectiveDate:  effective,
		Mode:           loan.PaymentMode(strings.ToUpper(strings.TrimSpace(r.Mode))),
		IdempotencyKey: idempotencyKey,
	}
	return cmd, cmd.Validate()
}

type LoanResponse struct {
	ID                string                `json:"id"`
	Principal         string                `json:"principal"`
	AnnualRatePercent string                `json:"annualRatePercent"`
	TenureMonths      int                   `json:"tenureMonths"`
	StartDate         string                `json:"startDate"`
	EMIAmount         string                `json:"emiAmount"`
	TotalInterest     string                `json:"totalInterest"`
	TotalPayable      string                `json:"totalPayable"`
	Outstanding       string                `json:"outstanding"`
	Status            string                `json:"status"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
	Schedule          []InstallmentResponse `json:"schedule,omitempty"`
}

type InstallmentResponse struct {
	ID                 string  `json:"id"`
	Sequence           int     `json:"sequence"`
	DueDate            string  `json:"dueDate"`
	EMIAmount          string  `json:"emiAmount"`
	PrincipalComponent string  `json:"principalComponent"`
	InterestComponent  string  `json:"interestComponent"`
	AmountPaid         string  `json:"amountPaid"`
	InterestPaid       string  `json:"interestPaid"`
	PrincipalPaid      string  `json:"principalPaid"`
	Remaining          string  `json:"remaining"`
	Status             string  `json:"status"`
	PaidDate           *string `json:"paidDate,omitempty"`
	Final              bool    `json:"final"`
}

type PaymentResponse struct {
	ID                 string    `json:"id"`
	InstallmentID      string    `json:"installmentId"`
	LoanID             string    `json:"loanId"`
	IdempotencyKey     string    `json:"idempotencyKey"`
	Amount             string    `json:"amount"`
	InterestPortion    string    `json:"interestPortion"`
	PrincipalPortion   string    `json:"principalPortion"`
	RoundingAdjustment string    `json:"roundingAdjustment"`
	EffectiveDate      string    `json:"effectiveDate"`
	Mode               string    `json:"mode"`
	CreatedAt          time.Time `json:"createdAt"`
}

type RecordPaymentResponse struct {
	Payment     PaymentResponse     `json:"payment"`
	Installment InstallmentResponse `json:"installment"`
	Replayed    bool                `json:"replayed"`
	LoanClosed  bool                `json:"loanClosed"`
}

type ClosureResponse struct {
	LoanID                 string `json:"loanId"`
	Closed                 bool   `json:"closed"`
	ResidualRounding       string `json:"residualRounding"`
	NeedsFinalConfirmation bool   `json:"needsFinalConfirmation"`
}

type LedgerSummaryResponse struct {
	LoanID                   string `json:"loanId,omitempty"`
	AsOf                     string `json:"asOf"`
	InterestCollected        string `json:"interestCollected"`
	InterestPendingTillToday string `json:"interestPendingTillToday"`
	EMICollected             string `json:"emiCollected"`
	LoanOutstanding          string `json:"loanOutstanding"`
	OverdueInstallments      int    `json:"overdueInstallments"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

func NewLoanResponse(domainLoan *loan.Loan, includeSchedule bool) LoanResponse {
	summary := domainLoan.Summary()

	resp := LoanResponse{
		ID:                strconv.FormatInt(domainLoan.ID, 10),
		Principal:         formatMoney(domainLoan.Principal),
		AnnualRatePercent: domainLoan.AnnualRatePercent.String(),
		TenureMonths:      domainLoan.TenureMonths,
		StartDate:         formatDate(domainLoan.StartDate),
		EMIAmount:         formatMoney(summary.EMIAmount),
		TotalInterest:     formatMoney(summary.TotalInterest),
		TotalPayable:      formatMoney(summary.TotalPayable),
		Outstanding:       formatMoney(domainLoan.Outstanding),
		Status:            string(domainLoan.Status),
		CreatedAt:         domainLoan.CreatedAt,
		UpdatedAt:         domainLoan.UpdatedAt,
	}

	if includeSchedule && domainLoan.Installments != nil {
		resp.Schedule = make([]InstallmentResponse, len(domainLoan.Installments))
		for i := range domainLoan.Installments {
			resp.Schedule[i] = NewInstallmentResponse(&domainLoan.Installments[i])
		}
	}

	return resp
}

func NewInstallmentResponse(inst *loan.Installment) InstallmentResponse {
	var paidDate *string
	if inst.PaidDate != nil {
		s := formatDate(*inst.PaidDate)
		paidDate = &s
	}

	return InstallmentResponse{
		ID:                 strconv.FormatInt(inst.ID, 10),
		Sequence:           inst.Sequence,
		DueDate:            formatDate(inst.DueDate),
		EMIAmount:          formatMoney(inst.EMIAmount),
		PrincipalComponent: formatMoney(inst.PrincipalComponent),
		InterestComponent:  formatMoney(inst.InterestComponent),
		AmountPaid:         formatMoney(inst.AmountPaid),
		InterestPaid:       formatMoney(inst.InterestPaid),
		PrincipalPaid:      formatMoney(inst.PrincipalPaid),
		Remaining:          formatMoney(inst.Remaining()),
		Status:             string(inst.Status),
		PaidDate:           paidDate,
		Final:              inst.Final,
	}
}

func NewPaymentResponse(p *loan.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                 strconv.FormatInt(p.ID, 10),
		InstallmentID:      strconv.FormatInt(p.InstallmentID, 10),
		LoanID:             strconv.FormatInt(p.LoanID, 10),
		IdempotencyKey:     p.IdempotencyKey,
		Amount:             formatMoney(p.Amount),
		InterestPortion:    formatMoney(p.InterestPortion),
		PrincipalPortion:   formatMoney(p.PrincipalPortion),
		RoundingAdjustment: formatMoney(p.RoundingAdjustment),
		EffectiveDate:      formatDate(p.EffectiveDate),
		Mode:               string(p.Mode),
		CreatedAt:          p.CreatedAt,
	}
}

func NewRecordPaymentResponse(r *loan.PaymentResult) RecordPaymentResponse {
	return RecordPaymentResponse{
		Payment:     NewPaymentResponse(&r.Payment),
		Installment: NewInstallmentResponse(&r.Installment),
		Replayed:    r.Replayed,
		LoanClosed:  r.LoanClosed,
	}
}

func NewClosureResponse(loanID int64, c loan.Closure) ClosureResponse {
	return ClosureResponse{
		LoanID:                 strconv.FormatInt(loanID, 10),
		Closed:                 c.Closed,
		ResidualRounding:       formatMoney(c.Residual),
		NeedsFinalConfirmation: c.NeedsFinalConfirmation,
	}
}

func NewLedgerSummaryResponse(loanID int64, s loan.LedgerSummary) LedgerSummaryResponse {
	resp := LedgerSummaryResponse{
		AsOf:                     formatDate(s.AsOf),
		InterestCollected:        formatMoney(s.InterestCollected),
		InterestPendingTillToday: formatMoney(s.InterestPendingTillToday),
		EMICollected:             formatMoney(s.EMICollected),
		LoanOutstanding:          formatMoney(s.LoanOutstanding),
		OverdueInstallments:      s.OverdueInstallments,
	}
	if loanID > 0 {
		resp.LoanID = strconv.FormatInt(loanID, 10)
	}
	return resp
}

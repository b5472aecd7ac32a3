package event

import "time"

const (
	RoutingKeyPaymentRecorded   = "payment.recorded"
	RoutingKeyScheduleGenerated = "schedule.generated"
	RoutingKeyLoanClosed        = "loan.closed"
	RoutingKeyLoanOverdue       = "loan.overdue"
)

// Amounts are carried as fixed two-decimal strings so consumers never parse
// them into floats by accident.

type PaymentRecordedEvent struct {
	PaymentID          int64     `json:"paymentId"`
	TenantID           string    `json:"tenantId"`
	LoanID             int64     `json:"loanId"`
	InstallmentID      int64     `json:"installmentId"`
	Amount             string    `json:"amount"`
	PrincipalPortion   string    `json:"principalPortion"`
	InterestPortion    string    `json:"interestPortion"`
	RoundingAdjustment string    `json:"roundingAdjustment"`
	InstallmentStatus  string    `json:"installmentStatus"`
	Mode               string    `json:"mode"`
	EffectiveDate      string    `json:"effectiveDate"`
	Timestamp          time.Time `json:"timestamp"`
}

type ScheduleGeneratedEvent struct {
	TenantID          string    `json:"tenantId"`
	LoanID            int64     `json:"loanId"`
	Principal         string    `json:"principal"`
	AnnualRatePercent string    `json:"annualRatePercent"`
	TenureMonths      int       `json:"tenureMonths"`
	EMIAmount         string    `json:"emiAmount"`
	Regenerated       bool      `json:"regenerated"`
	Timestamp         time.Time `json:"timestamp"`
}

type LoanClosedEvent struct {
	TenantID         string    `json:"tenantId"`
	LoanID           int64     `json:"loanId"`
	ResidualRounding string    `json:"residualRounding"`
	Timestamp        time.Time `json:"timestamp"`
}

type LoanOverdueEvent struct {
	TenantID            string    `json:"tenantId"`
	LoanID              int64     `json:"loanId"`
	OverdueInstallments int       `json:"overdueInstallments"`
	InterestPending     string    `json:"interestPending"`
	Outstanding         string    `json:"outstanding"`
	AsOf                string    `json:"asOf"`
	Timestamp           time.Time `json:"timestamp"`
}

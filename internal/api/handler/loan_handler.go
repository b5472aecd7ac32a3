package handler

import (
	"emi-engine/internal/api/handler/dto"
	"emi-engine/internal/api/middleware"
	"emi-engine/internal/domain/loan"
	"emi-engine/internal/pkg/apperrors"
	"emi-engine/internal/pkg/clock"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type LoanHandler struct {
	service loan.LoanService
	clock   clock.Clock
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, c clock.Clock, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	if c == nil {
		c = clock.SystemClock{}
	}
	return &LoanHandler{
		service: s,
		clock:   c,
		logger:  l.With("component", "LoanHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, code, message, field := http.StatusInternalServerError, "INTERNAL", "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", "Resource not found."
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"
	case errors.Is(err, apperrors.ErrOverpayment):
		status, code, message = http.StatusBadRequest, "OVERPAYMENT", err.Error()
	case errors.As(err, &validationError):
		status, code, message, field = http.StatusBadRequest, "VALIDATION_FAILED", validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInvalidScheduleParameters), errors.Is(err, apperrors.ErrInvalidPaymentAmount):
		status, code, message = http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	case errors.Is(err, apperrors.ErrInstallmentAlreadyPaid):
		status, code, message = http.StatusConflict, "INSTALLMENT_PAID", err.Error()
	case errors.Is(err, apperrors.ErrRequestInFlight):
		status, code, message = http.StatusConflict, "REQUEST_IN_FLIGHT", err.Error()
	case errors.Is(err, apperrors.ErrConcurrentModification):
		status, code, message = http.StatusConflict, "CONCURRENT_MODIFICATION", "The installment changed concurrently, retry the request."
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		status, code, message = http.StatusConflict, "CONFLICT", err.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Code:    code,
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getIDFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, param)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s format in URL path: %s", apperrors.ErrInvalidArgument, param, idStr)
	}
	return id, nil
}

func tenantFromRequest(r *http.Request) (string, error) {
	tenantID := middleware.TenantFromContext(r.Context())
	if tenantID == "" {
		return "", fmt.Errorf("%w: no tenant resolved for request", apperrors.ErrUnauthorized)
	}
	return tenantID, nil
}

func asOfFromQuery(r *http.Request) (time.Time, error) {
	return dto.ParseDate("asOf", r.URL.Query().Get("asOf"))
}

// logServiceError logs expected client-side failures at warn and everything
// else at error.
func logServiceError(h *slog.Logger, r *http.Request, msg string, err error) {
	level := slog.LevelError
	var validationError *apperrors.ValidationError
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) ||
		errors.Is(err, apperrors.ErrInvalidPaymentAmount) || errors.Is(err, apperrors.ErrInstallmentAlreadyPaid) ||
		errors.Is(err, apperrors.ErrRequestInFlight) || errors.Is(err, apperrors.ErrInvalidScheduleParameters) ||
		errors.As(err, &validationError) {
		level = slog.LevelWarn
	}
	h.Log(r.Context(), level, msg, slog.Any("error", err))
}

// CreateLoan handles POST /loans
// @Summary Create a loan
// @Description Creates a loan and its reducing-balance EMI schedule in one transaction. Amounts are decimal strings.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan terms"
// @Success 201 {object} dto.LoanResponse "Loan created with schedule"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan terms"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	terms, err := req.ToTerms()
	if err != nil {
		respondError(w, err)
		return
	}

	createdLoan, err := h.service.CreateLoan(r.Context(), tenantID, terms)
	if err != nil {
		logServiceError(h.logger, r, "Service failed to create loan", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan created", slog.Int64("loanID", createdLoan.ID))
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(createdLoan, true))
}

// GetLoan handles GET /loans/{loanID}
// @Summary Retrieve loan details
// @Description Retrieves a loan. Add `include=schedule` to embed its installments.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Param include query string false "Use 'schedule' to include installments"
// @Success 200 {object} dto.LoanResponse "Loan details"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := getIDFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	domainLoan, err := h.service.GetLoan(r.Context(), tenantID, loanID)
	if err != nil {
		logServiceError(h.logger, r, "Service failed to get loan", err)
		respondError(w, err)
		return
	}

	includeSchedule := r.URL.Query().Get("include") == "schedule"
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(domainLoan, includeSchedule))
}

// GenerateSchedule handles PUT /loans/{loanID}/schedule
// @Summary Regenerate a loan schedule
// @Description Replaces the loan's terms and schedule. Refused once any payment has been recorded against the loan.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Param request body dto.GenerateScheduleRequest true "New loan terms"
// @Success 200 {object} dto.LoanResponse "Loan with regenerated schedule"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan terms"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan already has payments"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/schedule [put]
// @Security BearerAuth
func (h *LoanHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := getIDFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.GenerateScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	terms, err := req.ToTerms()
	if err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.service.GenerateSchedule(r.Context(), tenantID, loanID, terms)
	if err != nil {
		logServiceError(h.logger, r, "Service failed to regenerate schedule", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(updated, true))
}

// GetClosure handles GET /loans/{loanID}/closure
// @Summary Loan closure status
// @Description Reports whether every installment is settled and the rounding residue left behind.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Success 200 {object} dto.ClosureResponse "Closure status"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/closure [get]
// @Security BearerAuth
func (h *LoanHandler) GetClosure(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := getIDFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	closure, err := h.service.GetClosure(r.Context(), tenantID, loanID)
	if err != nil {
		logServiceError(h.logger, r, "Service failed to compute closure", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewClosureResponse(loanID, closure))
}

// GetLoanLedger handles GET /loans/{loanID}/ledger
// @Summary Per-loan ledger summary
// @Tags Ledger
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Param asOf query string false "Reporting date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} dto.LedgerSummaryResponse "Ledger summary"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID or date"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/ledger [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoanLedger(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := getIDFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}
	asOf, err := asOfFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	summary, err := h.service.GetLoanLedger(r.Context(), tenantID, loanID, asOf)
	if err != nil {
		logServiceError(h.logger, r, "Service failed to summarize loan ledger", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLedgerSummaryResponse(loanID, summary))
}

// ListPayments handles GET /loans/{loanID}/payments
// @Summary List payments of a loan
// @Tags Payments
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Success 200 {array} dto.PaymentResponse "Payments in recording order"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/payments [get]
// @Security BearerAuth
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := getIDFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), tenantID, loanID)
	if err != nil {
		logServiceError(h.logger, r, "Service failed to list payments", err)
		respondError(w, err)
		return
	}

	resp := make([]dto.PaymentResponse, len(payments))
	for i := range payments {
		resp[i] = dto.NewPaymentResponse(&payments[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// RecordPayment handles POST /installments/{installmentID}/payments
// @Summary Record an installment payment
// @Description Applies a payment interest first, then principal. The Idempotency-Key header makes retries safe: a repeated key with the same amount returns the original payment with status 200.
// @Tags Payments
// @Accept json
// @Produce json
// @Param installmentID path int true "Installment ID" Minimum(1)
// @Param Idempotency-Key header string true "Client supplied key, unique per installment"
// @Param request body dto.RecordPaymentRequest true "Payment details"
// @Success 201 {object} dto.RecordPaymentResponse "Payment recorded"
// @Success 200 {object} dto.RecordPaymentResponse "Earlier payment replayed"
// @Failure 400 {object} dto.ErrorResponse "Invalid payment or overpayment"
// @Failure 404 {object} dto.ErrorResponse "Installment not found"
// @Failure 409 {object} dto.ErrorResponse "Installment already paid, key reused or request in flight"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /installments/{installmentID}/payments [post]
// @Security BearerAuth
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	installmentID, err := getIDFromURL(r, "installmentID")
	if err != nil {
		respondError(w, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" {
		respondError(w, apperrors.NewValidationError("Idempotency-Key", "header is required"))
		return
	}

	var req dto.RecordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(installmentID, key, clock.Today(h.clock))
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.service.RecordPayment(r.Context(), tenantID, cmd)
	if err != nil {
		logServiceError(h.logger, r, "Service failed to record payment", err)
		respondError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	respondJSON(w, status, dto.NewRecordPaymentResponse(result))
}

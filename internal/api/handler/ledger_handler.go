package handler

import (
	"emi-engine/internal/api/handler/dto"
	"emi-engine/internal/domain/loan"
	"log/slog"
	"net/http"
)

type LedgerHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLedgerHandler(s loan.LoanService, l *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: s,
		logger:  l.With("component", "LedgerHandler"),
	}
}

// GetSummary handles GET /ledger/summary
// @Summary Portfolio ledger summary
// @Description Aggregates collected interest, pending interest up to the reporting date, collected EMIs and outstanding balance over every installment of the tenant.
// @Tags Ledger
// @Produce json
// @Param asOf query string false "Reporting date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} dto.LedgerSummaryResponse "Ledger summary"
// @Failure 400 {object} dto.ErrorResponse "Invalid date"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /ledger/summary [get]
// @Security BearerAuth
func (h *LedgerHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	asOf, err := asOfFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	h.logger.DebugContext(r.Context(), "Summarizing ledger", "tenant", tenantID)
	summary, err := h.service.GetLedgerSummary(r.Context(), tenantID, asOf)
	if err != nil {
		logServiceError(h.logger, r, "Service failed to summarize ledger", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLedgerSummaryResponse(0, summary))
}

package handler

import (
	"net/http"

	"ledger/internal/service"
)

type AuditHandler struct {
	ledger *service.LedgerService
}

func NewAuditHandler(ledger *service.LedgerService) *AuditHandler {
	return &AuditHandler{ledger: ledger}
}

func (h *AuditHandler) ErrorLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.ErrorLogs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/errors"
	"ledger/internal/service"
)

type TransactionHandler struct {
	ledger *service.LedgerService
}

func NewTransactionHandler(ledger *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{
		ledger: ledger,
	}
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type TransferRequest struct {
	FromAccountID json.Number `json:"from_account_id"`
	ToAccountID   json.Number `json:"to_account_id"`
	Amount        string      `json:"amount"`
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.singleAccount(w, r, h.ledger.Deposit)
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.singleAccount(w, r, h.ledger.Withdraw)
}

func (h *TransactionHandler) singleAccount(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.TransactionRecord, error),
) {
	accountID, err := accountIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := op(r.Context(), accountID, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(record))
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	fromID, err := req.FromAccountID.Int64()
	if err != nil {
		writeError(w, errors.ErrInvalidAccountID.WithDetails("from_account_id"))
		return
	}
	toID, err := req.ToAccountID.Int64()
	if err != nil {
		writeError(w, errors.ErrInvalidAccountID.WithDetails("to_account_id"))
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := h.ledger.Transfer(r.Context(), fromID, toID, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(record))
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.AllTransactions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(records))
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error())
	}
	return amount, nil
}

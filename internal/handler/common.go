package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"ledger/internal/domain"
	"ledger/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type AccountResponse struct {
	AccountID int64     `json:"account_id"`
	Name      string    `json:"name"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

type TransactionResponse struct {
	TransactionID   int64     `json:"transaction_id"`
	AccountID       int64     `json:"account_id"`
	TargetAccountID *int64    `json:"target_account_id,omitempty"`
	Type            string    `json:"type"`
	Amount          string    `json:"amount"`
	Timestamp       time.Time `json:"timestamp"`
}

func toAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID: a.ID,
		Name:      a.Name,
		Balance:   a.Balance.StringFixed(2),
		CreatedAt: a.CreatedAt,
	}
}

func toTransactionResponse(r *domain.TransactionRecord) TransactionResponse {
	return TransactionResponse{
		TransactionID:   r.ID,
		AccountID:       r.AccountID,
		TargetAccountID: r.TargetAccountID,
		Type:            string(r.Type),
		Amount:          r.Amount.StringFixed(2),
		Timestamp:       r.Timestamp,
	}
}

func toTransactionResponses(records []*domain.TransactionRecord) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toTransactionResponse(r))
	}
	return out
}

func accountIDFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["account_id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ErrInvalidAccountID
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

// writeError renders err in the error envelope. Errors that are not an
// AppError are reported as internal errors without their text.
func writeError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewAppError(errors.InternalError, "an unexpected error occurred")
	}

	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

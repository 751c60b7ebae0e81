package domain

import (
	"context"
	"time"
)

// Procedure names recorded in the error journal.
const (
	ProcedureCreateAccount = "CREATE_ACCOUNT"
	ProcedureDeposit       = "DEPOSIT"
	ProcedureWithdraw      = "WITHDRAW"
	ProcedureTransfer      = "TRANSFER"
)

type ErrorLogEntry struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Message       string    `json:"message"`
	ProcedureName string    `json:"procedure_name"`
}

type ErrorLogRepository interface {
	AppendErrorLog(ctx context.Context, entry *ErrorLogEntry) error
	ListErrorLogs(ctx context.Context) ([]*ErrorLogEntry, error)
	MaxErrorLogID(ctx context.Context) (int64, error)
}

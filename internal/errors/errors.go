package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidAmount       ErrorCode = "invalid_amount"
	InvalidInput        ErrorCode = "invalid_input"
	SameAccountTransfer ErrorCode = "same_account_transfer"
	AccountNotFound     ErrorCode = "account_not_found"
	InsufficientBalance ErrorCode = "insufficient_balance"
	DuplicateAccount    ErrorCode = "duplicate_account"
	ConcurrencyConflict ErrorCode = "concurrency_conflict"
	CannotBeginTx       ErrorCode = "cannot_begin_transaction"
	InternalError       ErrorCode = "internal_error"
)

// Exit codes reported by the CLI. InsufficientBalance has its own code so
// scripts can branch on a rejected debit without parsing output.
const (
	ExitInternal            = 1
	ExitInvalidInput        = 2
	ExitInsufficientBalance = 3
	ExitNotFound            = 4
	ExitDuplicate           = 5
	ExitConflict            = 6
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target carries the same code, so detailed copies of a
// predefined error still match it with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy of e carrying details; predefined errors are
// never mutated.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Internal wraps an unexpected failure as an internal_error keeping the raw
// failure text in Details.
func Internal(message string, err error) *AppError {
	return NewAppError(InternalError, message).WithDetails(err.Error())
}

// As extracts the *AppError from err, converting anything else into an
// internal_error.
func As(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("an unexpected error occurred", err)
}

// CodeOf returns the code of err, InternalError for foreign errors.
func CodeOf(err error) ErrorCode {
	return As(err).Code
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidAmount, InvalidInput, SameAccountTransfer:
		return http.StatusBadRequest
	case AccountNotFound:
		return http.StatusNotFound
	case InsufficientBalance:
		return http.StatusUnprocessableEntity
	case DuplicateAccount, ConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (e *AppError) ExitCode() int {
	switch e.Code {
	case InvalidAmount, InvalidInput, SameAccountTransfer:
		return ExitInvalidInput
	case AccountNotFound:
		return ExitNotFound
	case InsufficientBalance:
		return ExitInsufficientBalance
	case DuplicateAccount:
		return ExitDuplicate
	case ConcurrencyConflict:
		return ExitConflict
	default:
		return ExitInternal
	}
}

// IsBusinessError reports whether err is a caller-facing rejection
// (validation, lookup or funds) rather than an unexpected failure.
func IsBusinessError(err error) bool {
	switch CodeOf(err) {
	case InvalidAmount, InvalidInput, SameAccountTransfer, AccountNotFound, InsufficientBalance, DuplicateAccount:
		return true
	default:
		return false
	}
}

// Predefined errors for common cases
var (
	ErrInvalidAmount          = NewAppError(InvalidAmount, "amount must be positive with at most two decimal places")
	ErrInvalidInput           = NewAppError(InvalidInput, "invalid input")
	ErrInvalidAccountID       = NewAppError(InvalidInput, "account ID must be a positive integer")
	ErrSameAccountTransfer    = NewAppError(SameAccountTransfer, "source and destination accounts must differ")
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrInsufficientBalance    = NewAppError(InsufficientBalance, "insufficient balance")
	ErrBalanceLimitExceeded   = NewAppError(InvalidAmount, "resulting balance exceeds maximum limit")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "account already exists")
	ErrConcurrencyConflict    = NewAppError(ConcurrencyConflict, "concurrent update conflict, retry later")
	ErrCannotBeginTransaction = NewAppError(CannotBeginTx, "store is already in a transaction")
)

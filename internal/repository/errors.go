package repository

import (
	"context"
	stderrors "errors"

	"github.com/lib/pq"

	"ledger/internal/errors"
)

// PostgreSQL error codes the ledger reacts to.
const (
	pqNumericOutOfRange    = "22003"
	pqUniqueViolation      = "23505"
	pqCheckViolation       = "23514"
	pqForeignKeyViolation  = "23503"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
	pqQueryCanceled        = "57014"
)

// translate maps driver failures onto the ledger's error codes. Anything it
// does not recognise becomes an internal_error carrying the raw text.
func translate(err error, message string) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqNumericOutOfRange:
			return errors.ErrBalanceLimitExceeded.WithDetails(pqErr.Message)
		case pqUniqueViolation:
			return errors.ErrDuplicateAccount.WithDetails(pqErr.Constraint)
		case pqForeignKeyViolation:
			return errors.ErrAccountNotFound.WithDetails(pqErr.Constraint)
		case pqCheckViolation:
			if pqErr.Constraint == "accounts_balance_non_negative" {
				return errors.ErrInsufficientBalance
			}
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable, pqQueryCanceled:
			return errors.ErrConcurrencyConflict.WithDetails(pqErr.Message)
		}
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.ErrConcurrencyConflict.WithDetails(err.Error())
	}
	return errors.Internal(message, err)
}

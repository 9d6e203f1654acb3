package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOwnerOnly           = errors.New("caller is not the owner")
	ErrWrongPeriod         = errors.New("wrong period")
	ErrTextTooLong         = errors.New("sentence text too long")
	ErrEmptyText           = errors.New("sentence text is empty")
	ErrBookFull            = errors.New("book is full")
	ErrOutOfBounds         = errors.New("sentence index out of bounds")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrBalanceOverflow     = errors.New("balance would overflow")
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrLedgerUnavailable   = errors.New("token ledger unavailable")
	ErrStateNotFound       = errors.New("novel state not found")
)

// PeriodError is returned when an operation is invoked outside its required period.
// It matches ErrWrongPeriod with errors.Is.
type PeriodError struct {
	Current Period
	Reason  string
}

func NewPeriodError(current Period, reason string) *PeriodError {
	return &PeriodError{Current: current, Reason: reason}
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("wrong period: %s (current %s)", e.Reason, e.Current)
}

func (e *PeriodError) Is(target error) bool {
	return target == ErrWrongPeriod
}

// ErrorKind returns a stable, low-cardinality label for err, suitable for metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrOwnerOnly):
		return "owner_only"
	case errors.Is(err, ErrWrongPeriod):
		return "wrong_period"
	case errors.Is(err, ErrTextTooLong):
		return "text_too_long"
	case errors.Is(err, ErrEmptyText):
		return "empty_text"
	case errors.Is(err, ErrBookFull):
		return "book_full"
	case errors.Is(err, ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrBalanceOverflow):
		return "balance_overflow"
	case errors.Is(err, ErrInvalidPeriod):
		return "invalid_period"
	case errors.Is(err, ErrLedgerUnavailable):
		return "ledger_unavailable"
	default:
		return "internal"
	}
}

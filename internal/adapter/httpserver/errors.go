package httpserver

import (
	"errors"

	"github.com/pscheid92/worldnovel/internal/domain"
	apperrors "github.com/pscheid92/worldnovel/internal/platform/errors"
)

// toAPIError maps a novel failure onto its HTTP representation. Every domain
// error carries its kind so clients can branch without parsing messages.
func toAPIError(err error) *apperrors.Error {
	var apiErr *apperrors.Error
	switch {
	case errors.Is(err, domain.ErrOwnerOnly):
		apiErr = apperrors.ForbiddenError(domain.ErrOwnerOnly.Error())
	case errors.Is(err, domain.ErrWrongPeriod):
		apiErr = apperrors.ConflictError(domain.ErrWrongPeriod.Error())
		var pe *domain.PeriodError
		if errors.As(err, &pe) {
			apiErr.WithField("period", pe.Current.String()).WithField("reason", pe.Reason)
		}
	case errors.Is(err, domain.ErrBookFull):
		apiErr = apperrors.ConflictError(domain.ErrBookFull.Error())
	case errors.Is(err, domain.ErrTextTooLong):
		apiErr = apperrors.ValidationError(domain.ErrTextTooLong.Error())
	case errors.Is(err, domain.ErrEmptyText):
		apiErr = apperrors.ValidationError(domain.ErrEmptyText.Error())
	case errors.Is(err, domain.ErrOutOfBounds):
		apiErr = apperrors.ValidationError(domain.ErrOutOfBounds.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		apiErr = apperrors.ValidationError(domain.ErrInvalidAmount.Error())
	case errors.Is(err, domain.ErrInvalidPeriod):
		apiErr = apperrors.ValidationError(domain.ErrInvalidPeriod.Error())
	case errors.Is(err, domain.ErrBalanceOverflow):
		apiErr = apperrors.ValidationError(domain.ErrBalanceOverflow.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		apiErr = apperrors.PaymentRequiredError(domain.ErrInsufficientBalance.Error())
	case errors.Is(err, domain.ErrLedgerUnavailable):
		return apperrors.ExternalError(domain.ErrLedgerUnavailable.Error(), err).WithField("kind", domain.ErrorKind(err))
	default:
		return apperrors.InternalError("internal server error", err)
	}

	apiErr.Cause = err
	return apiErr.WithField("kind", domain.ErrorKind(err))
}

package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/hotel-ledger/internal/platform/httpx"
)

// StatusFor maps ledger errors to HTTP status codes.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrIntegrity):
		return http.StatusInternalServerError, "Ledger Integrity Error"
	case errors.Is(err, ErrPeriodClosed):
		return http.StatusConflict, "Period Closed"
	case errors.Is(err, ErrAccountInUse):
		return http.StatusConflict, "Account In Use"
	case errors.Is(err, ErrAlreadyReversed), errors.Is(err, ErrSourceAlreadyLinked),
		errors.Is(err, ErrDuplicateCode), errors.Is(err, ErrDuplicateVoucher),
		errors.Is(err, ErrCustomerAlreadyLinked):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrJournalNotFound),
		errors.Is(err, ErrPeriodNotFound), errors.Is(err, ErrCustomerNotLinked),
		errors.Is(err, ErrMappingNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrReference):
		return http.StatusUnprocessableEntity, "Validation Failed"
	case errors.Is(err, httpx.ErrValidation):
		return http.StatusBadRequest, "Bad Request"
	case errors.Is(err, httpx.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// RespondError writes err as a problem document. Integrity and unknown
// errors are logged at error level since they need operator attention.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, title := StatusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("ledger request failed", slog.Any("error", err))
		}
		if !errors.Is(err, ErrIntegrity) {
			detail = ""
		}
	}
	httpx.Problem(w, status, title, detail)
}

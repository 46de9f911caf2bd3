// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/lotledger/internal/shared"
)

// ErrMalformedBody is returned by DecodeJSON on undecodable input.
var ErrMalformedBody = shared.NewError(shared.KindValidation, "malformed request body")

var statusByKind = map[shared.Kind]int{
	shared.KindInsufficientStock:        http.StatusConflict,
	shared.KindLotNotFound:              http.StatusNotFound,
	shared.KindWarehouseNotFound:        http.StatusNotFound,
	shared.KindCustomerNotFound:         http.StatusNotFound,
	shared.KindProductNotFound:          http.StatusNotFound,
	shared.KindTransferNotFound:         http.StatusNotFound,
	shared.KindInvoiceNotFound:          http.StatusNotFound,
	shared.KindInvalidTransferOwnership: http.StatusUnprocessableEntity,
	shared.KindAlreadyReversed:          http.StatusConflict,
	shared.KindAlreadyCancelled:         http.StatusConflict,
	shared.KindImmutableDocument:        http.StatusConflict,
	shared.KindValidation:               http.StatusBadRequest,
	shared.KindConflict:                 http.StatusConflict,
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByKind[shared.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondError maps domain errors to HTTP responses using RFC7807. Internal
// errors never leak their message.
func RespondError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]string, len(validationErrs))
		for _, fieldErr := range validationErrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Code:   string(shared.KindValidation),
			Detail: err.Error(),
			Fields: fields,
		})
		return
	}
	kind := shared.KindOf(err)
	status := StatusFor(err)
	detail := err.Error()
	if kind == shared.KindInternal {
		detail = ""
	}
	Problem(w, status, http.StatusText(status), string(kind), detail)
}

package shared

import "errors"

// Kind is the stable machine-readable category of a domain error.
type Kind string

const (
	KindInsufficientStock        Kind = "INSUFFICIENT_STOCK"
	KindLotNotFound              Kind = "LOT_NOT_FOUND"
	KindWarehouseNotFound        Kind = "WAREHOUSE_NOT_FOUND"
	KindCustomerNotFound         Kind = "CUSTOMER_NOT_FOUND"
	KindProductNotFound          Kind = "PRODUCT_NOT_FOUND"
	KindTransferNotFound         Kind = "TRANSFER_NOT_FOUND"
	KindInvoiceNotFound          Kind = "INVOICE_NOT_FOUND"
	KindInvalidTransferOwnership Kind = "INVALID_TRANSFER_OWNERSHIP"
	KindAlreadyReversed          Kind = "ALREADY_REVERSED"
	KindAlreadyCancelled         Kind = "ALREADY_CANCELLED"
	KindImmutableDocument        Kind = "IMMUTABLE_DOCUMENT"
	KindValidation               Kind = "VALIDATION"
	KindConflict                 Kind = "CONFLICT"
	KindInternal                 Kind = "INTERNAL"
)

// Error is a domain error carrying a Kind. Packages declare their sentinels
// with NewError and wrap them with fmt.Errorf("...: %w", err) for context.
type Error struct {
	Kind    Kind
	Message string
}

// NewError builds a sentinel domain error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf returns the kind of the first domain error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

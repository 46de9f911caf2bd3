package transfers

import (
	"time"

	"github.com/odyssey-erp/lotledger/internal/shared"
)

// Status is the lifecycle state of a transfer.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusReversed  Status = "REVERSED"
)

// Transfer moves a quantity of one lot between two warehouses.
type Transfer struct {
	ID              string
	FromWarehouseID string
	ToWarehouseID   string
	LotID           string
	ProductID       string
	Quantity        int64
	Status          Status
	BarcodeScanned  bool
	Notes           string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateInput carries a transfer request. LotID wins over Barcode, which
// wins over FEFO selection on ProductID.
type CreateInput struct {
	FromWarehouseID string
	ToWarehouseID   string
	ProductID       string
	LotID           string
	Quantity        int64
	Barcode         string
	Notes           string
	ActorID         string
}

// ReverseInput reverses a transfer.
type ReverseInput struct {
	TransferID string
	ActorID    string
}

// Errors.
var (
	ErrTransferNotFound   = shared.NewError(shared.KindTransferNotFound, "transfers: transfer not found")
	ErrAlreadyReversed    = shared.NewError(shared.KindAlreadyReversed, "transfers: transfer already reversed")
	ErrAlreadySettled     = shared.NewError(shared.KindConflict, "transfers: transfer already completed")
	ErrInvalidOwnership   = shared.NewError(shared.KindInvalidTransferOwnership, "transfers: transfer does not belong to customer")
	ErrSameWarehouse      = shared.NewError(shared.KindValidation, "transfers: source and destination warehouse must differ")
	ErrInvalidQuantity    = shared.NewError(shared.KindValidation, "transfers: quantity must be positive")
	ErrProductOrLotNeeded = shared.NewError(shared.KindValidation, "transfers: product, lot or barcode required")
)

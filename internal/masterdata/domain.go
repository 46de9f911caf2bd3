package masterdata

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

// Customer is a buyer that holds consigned stock in its own CUSTOMER warehouse.
type Customer struct {
	ID          string
	Name        string
	TaxNumber   string
	TaxOffice   string
	Address     string
	Email       string
	Phone       string
	WarehouseID string
	CreatedAt   time.Time
}

// CreateWarehouseInput creates a warehouse.
type CreateWarehouseInput struct {
	Name    string
	Kind    ledger.WarehouseKind
	ActorID string
}

// CreateCustomerInput creates a customer and its warehouse.
type CreateCustomerInput struct {
	Name      string
	TaxNumber string
	TaxOffice string
	Address   string
	Email     string
	Phone     string
	ActorID   string
}

// ProductInput upserts a product by reference code. Nil or empty fields keep
// the stored value on update.
type ProductInput struct {
	ReferenceCode     string
	Name              string
	Brand             string
	Category          string
	SalePrice         *decimal.Decimal
	PurchasePrice     *decimal.Decimal
	VatRate           *decimal.Decimal
	CriticalThreshold *int64
	Active            *bool
	ActorID           string
}

// LotInput upserts a lot by product and lot number.
type LotInput struct {
	ProductID  string
	LotNumber  string
	Barcode    string
	ExpiryDate *time.Time
	ActorID    string
}

// Errors.
var (
	ErrCustomerNotFound  = shared.NewError(shared.KindCustomerNotFound, "masterdata: customer not found")
	ErrWarehouseNotEmpty = shared.NewError(shared.KindConflict, "masterdata: warehouse still holds stock")
	ErrMainWarehouse     = shared.NewError(shared.KindConflict, "masterdata: the main warehouse cannot be deleted")
	ErrWarehouseInUse    = shared.NewError(shared.KindConflict, "masterdata: warehouse is referenced by transfers")
	ErrInvalidKind       = shared.NewError(shared.KindValidation, "masterdata: unknown warehouse kind")
	ErrNameRequired      = shared.NewError(shared.KindValidation, "masterdata: name is required")
	ErrReferenceRequired = shared.NewError(shared.KindValidation, "masterdata: reference code is required")
	ErrLotNumberRequired = shared.NewError(shared.KindValidation, "masterdata: lot number is required")
	ErrNegativeAmount    = shared.NewError(shared.KindValidation, "masterdata: prices and rates must not be negative")
	ErrDuplicate         = shared.NewError(shared.KindConflict, "masterdata: duplicate record")
)

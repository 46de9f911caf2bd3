package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/lotledger/internal/shared"
)

// WarehouseKind classifies a warehouse.
type WarehouseKind string

const (
	// WarehouseMain holds stock not yet placed with anyone.
	WarehouseMain WarehouseKind = "MAIN"
	// WarehouseCustomer is the consignment location of one customer.
	WarehouseCustomer WarehouseKind = "CUSTOMER"
	// WarehouseEmployee holds stock carried by field staff.
	WarehouseEmployee WarehouseKind = "EMPLOYEE"
)

// Valid reports whether k is a known kind.
func (k WarehouseKind) Valid() bool {
	switch k {
	case WarehouseMain, WarehouseCustomer, WarehouseEmployee:
		return true
	}
	return false
}

// Warehouse is a stock holding place.
type Warehouse struct {
	ID        string
	Name      string
	Kind      WarehouseKind
	CreatedAt time.Time
}

// Product is a catalogue item owning lots.
type Product struct {
	ID                string
	ReferenceCode     string
	Name              string
	Brand             string
	Category          string
	SalePrice         decimal.Decimal
	PurchasePrice     decimal.Decimal
	VatRate           decimal.Decimal
	CriticalThreshold int64
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Lot is a batch of one product. Quantity is the denormalised total of its
// stock locations.
type Lot struct {
	ID         string
	ProductID  string
	LotNumber  string
	Barcode    string
	ExpiryDate *time.Time
	Quantity   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StockLocation is the quantity of one lot held at one warehouse.
type StockLocation struct {
	ID          string
	WarehouseID string
	LotID       string
	Quantity    int64
	UpdatedAt   time.Time
}

// Step is a single signed adjustment of a location.
type Step struct {
	WarehouseID string
	LotID       string
	Delta       int64
}

// SetLotQuantityInput sets the master quantity of a lot through MAIN.
type SetLotQuantityInput struct {
	LotID    string
	Quantity int64
	ActorID  string
}

// WarehouseStockInput edits a single location directly.
type WarehouseStockInput struct {
	WarehouseID string
	LotID       string
	Quantity    int64
	ActorID     string
}

// Errors.
var (
	ErrInsufficientStock = shared.NewError(shared.KindInsufficientStock, "ledger: insufficient stock")
	ErrLotNotFound       = shared.NewError(shared.KindLotNotFound, "ledger: lot not found")
	ErrWarehouseNotFound = shared.NewError(shared.KindWarehouseNotFound, "ledger: warehouse not found")
	ErrProductNotFound   = shared.NewError(shared.KindProductNotFound, "ledger: product not found")
	ErrInvalidQuantity   = shared.NewError(shared.KindValidation, "ledger: quantity must be positive")
	ErrNoMainWarehouse   = shared.NewError(shared.KindWarehouseNotFound, "ledger: no MAIN warehouse")
	ErrNotMainWarehouse  = shared.NewError(shared.KindValidation, "ledger: warehouse is not of kind MAIN")
)

// ErrLocationNotFound is returned by TxRepository.LockLocation for a missing row.
var ErrLocationNotFound = shared.NewError(shared.KindInternal, "ledger: stock location not found")

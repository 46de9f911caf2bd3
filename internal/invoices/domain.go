package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/lotledger/internal/shared"
)

// DocumentType classifies an invoice document.
type DocumentType string

const (
	// DocumentProforma is a quote; it never touches stock.
	DocumentProforma DocumentType = "PROFORMA"
	// DocumentDispatch is a dispatch note (irsaliye).
	DocumentDispatch DocumentType = "IRSALIYE"
	// DocumentFinal is a legally final invoice (fatura).
	DocumentFinal DocumentType = "FATURA"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentProforma, DocumentDispatch, DocumentFinal:
		return true
	}
	return false
}

// AffectsStock reports whether issuing the document consumes stock.
func (t DocumentType) AffectsStock() bool {
	return t == DocumentDispatch || t == DocumentFinal
}

// Item is a priced line snapshot. It is stored by value so later product
// edits never change an issued document.
type Item struct {
	ProductID     string          `json:"product_id"`
	LotID         string          `json:"lot_id,omitempty"`
	ReferenceCode string          `json:"reference_code"`
	ProductName   string          `json:"product_name"`
	LotNumber     string          `json:"lot_number,omitempty"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	VatRate       decimal.Decimal `json:"vat_rate"`
	Net           decimal.Decimal `json:"net"`
	Vat           decimal.Decimal `json:"vat"`
	Total         decimal.Decimal `json:"total"`
}

// StockAdjustment debits one location when the invoice is issued.
type StockAdjustment struct {
	WarehouseID string `json:"warehouse_id"`
	LotID       string `json:"lot_id"`
	Quantity    int64  `json:"quantity"`
}

// Invoice is a billing document.
type Invoice struct {
	ID               string
	Number           string
	CustomerID       string
	DocumentType     DocumentType
	Items            []Item
	StockAdjustments []StockAdjustment
	TransferIDs      []string
	NetTotal         decimal.Decimal
	VatTotal         decimal.Decimal
	GrandTotal       decimal.Decimal
	Notes            string
	IsCancelled      bool
	CancelledAt      *time.Time
	CancelledByID    string
	CancelReason     string
	ProviderNumber   string
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ItemInput requests a line. Nil prices fall back to the product's.
type ItemInput struct {
	ProductID string
	LotID     string
	Quantity  int64
	UnitPrice *decimal.Decimal
	VatRate   *decimal.Decimal
}

// CreateInput issues a document. StockAdjustments and TransferIDs are
// mutually exclusive and ignored for PROFORMA.
type CreateInput struct {
	CustomerID       string
	DocumentType     DocumentType
	Items            []ItemInput
	StockAdjustments []StockAdjustment
	TransferIDs      []string
	Notes            string
	ActorID          string
}

// UpdateInput replaces the lines and notes of an editable document.
type UpdateInput struct {
	InvoiceID string
	Items     []ItemInput
	Notes     string
	ActorID   string
}

// CancelInput cancels a document.
type CancelInput struct {
	InvoiceID string
	Reason    string
	ActorID   string
}

// Errors.
var (
	ErrInvoiceNotFound     = shared.NewError(shared.KindInvoiceNotFound, "invoices: invoice not found")
	ErrImmutableDocument   = shared.NewError(shared.KindImmutableDocument, "invoices: document can no longer be edited")
	ErrAlreadyCancelled    = shared.NewError(shared.KindAlreadyCancelled, "invoices: invoice already cancelled")
	ErrInvalidDocumentType = shared.NewError(shared.KindValidation, "invoices: unknown document type")
	ErrCustomerRequired    = shared.NewError(shared.KindValidation, "invoices: customer is required")
	ErrConflictingStock    = shared.NewError(shared.KindValidation, "invoices: stock adjustments and transfer settlement are mutually exclusive")
	ErrInvalidQuantity     = shared.NewError(shared.KindValidation, "invoices: quantity must be positive")
	ErrNegativeAmount      = shared.NewError(shared.KindValidation, "invoices: prices and rates must not be negative")
	ErrLotProductMismatch  = shared.NewError(shared.KindValidation, "invoices: lot does not belong to product")
)

package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

type itemRequest struct {
	ProductID string           `json:"product_id" validate:"required,uuid"`
	LotID     string           `json:"lot_id" validate:"omitempty,uuid"`
	Quantity  int64            `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	VatRate   *decimal.Decimal `json:"vat_rate"`
}

type adjustmentRequest struct {
	WarehouseID string `json:"warehouse_id" validate:"required,uuid"`
	LotID       string `json:"lot_id" validate:"required,uuid"`
	Quantity    int64  `json:"quantity" validate:"required,gt=0"`
}

type createRequest struct {
	CustomerID       string              `json:"customer_id" validate:"required,uuid"`
	DocumentType     DocumentType        `json:"document_type" validate:"required,oneof=PROFORMA IRSALIYE FATURA"`
	Items            []itemRequest       `json:"items" validate:"dive"`
	StockAdjustments []adjustmentRequest `json:"stock_adjustments" validate:"dive"`
	TransferIDs      []string            `json:"transfer_ids" validate:"dive,uuid"`
	Notes            string              `json:"notes" validate:"omitempty,max=2000"`
}

type updateRequest struct {
	Items []itemRequest `json:"items" validate:"dive"`
	Notes string        `json:"notes" validate:"omitempty,max=2000"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

func toItemInputs(reqs []itemRequest) []ItemInput {
	out := make([]ItemInput, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, ItemInput(r))
	}
	return out
}

func toAdjustments(reqs []adjustmentRequest) []StockAdjustment {
	out := make([]StockAdjustment, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, StockAdjustment(r))
	}
	return out
}

// Response is the JSON view of an invoice.
type Response struct {
	ID               string            `json:"id"`
	Number           string            `json:"number"`
	CustomerID       string            `json:"customer_id"`
	DocumentType     DocumentType      `json:"document_type"`
	Items            []Item            `json:"items"`
	StockAdjustments []StockAdjustment `json:"stock_adjustments,omitempty"`
	TransferIDs      []string          `json:"transfer_ids,omitempty"`
	NetTotal         decimal.Decimal   `json:"net_total"`
	VatTotal         decimal.Decimal   `json:"vat_total"`
	GrandTotal       decimal.Decimal   `json:"grand_total"`
	Notes            string            `json:"notes,omitempty"`
	IsCancelled      bool              `json:"is_cancelled"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason     string            `json:"cancel_reason,omitempty"`
	ProviderNumber   string            `json:"provider_number,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// NewResponse maps an Invoice.
func NewResponse(inv Invoice) Response {
	items := inv.Items
	if items == nil {
		items = []Item{}
	}
	return Response{
		ID:               inv.ID,
		Number:           inv.Number,
		CustomerID:       inv.CustomerID,
		DocumentType:     inv.DocumentType,
		Items:            items,
		StockAdjustments: inv.StockAdjustments,
		TransferIDs:      inv.TransferIDs,
		NetTotal:         inv.NetTotal,
		VatTotal:         inv.VatTotal,
		GrandTotal:       inv.GrandTotal,
		Notes:            inv.Notes,
		IsCancelled:      inv.IsCancelled,
		CancelledAt:      inv.CancelledAt,
		CancelReason:     inv.CancelReason,
		ProviderNumber:   inv.ProviderNumber,
		CreatedAt:        inv.CreatedAt,
	}
}

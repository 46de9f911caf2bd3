// Package auditlog appends ledger-affecting actions to the append-only log.
package auditlog

import "time"

// Action enumerates logged movement kinds.
type Action string

const (
	ActionTransferIn        Action = "TRANSFER_IN"
	ActionTransferOut       Action = "TRANSFER_OUT"
	ActionTransferReverse   Action = "TRANSFER_REVERSE"
	ActionInvoiceCreate     Action = "INVOICE_CREATE"
	ActionInvoiceUpdate     Action = "INVOICE_UPDATE"
	ActionInvoiceCancel     Action = "INVOICE_CANCEL"
	ActionStockAdjust       Action = "STOCK_ADJUST"
	ActionLotQuantitySet    Action = "LOT_QUANTITY_SET"
	ActionStockImport       Action = "STOCK_IMPORT"
	ActionReconcileRecalc   Action = "RECONCILE_RECALCULATE"
	ActionReconcileSyncMain Action = "RECONCILE_SYNC_MAIN"
	ActionWarehouseCreate   Action = "WAREHOUSE_CREATE"
	ActionWarehouseDelete   Action = "WAREHOUSE_DELETE"
	ActionCustomerCreate    Action = "CUSTOMER_CREATE"
	ActionProductUpsert     Action = "PRODUCT_UPSERT"
	ActionLotUpsert         Action = "LOT_UPSERT"
)

// Entry is one log row. Empty reference ids are stored as NULL.
type Entry struct {
	ActionType  Action
	Description string
	UserID      string
	ProductID   string
	LotID       string
	WarehouseID string
	CustomerID  string
	TransferID  string
	InvoiceID   string
	CreatedAt   time.Time
}

// references lists the nullable foreign-key columns with accessors into Entry.
var references = []struct {
	column string
	field  func(*Entry) *string
}{
	{"user_id", func(e *Entry) *string { return &e.UserID }},
	{"product_id", func(e *Entry) *string { return &e.ProductID }},
	{"lot_id", func(e *Entry) *string { return &e.LotID }},
	{"warehouse_id", func(e *Entry) *string { return &e.WarehouseID }},
	{"customer_id", func(e *Entry) *string { return &e.CustomerID }},
	{"transfer_id", func(e *Entry) *string { return &e.TransferID }},
	{"invoice_id", func(e *Entry) *string { return &e.InvoiceID }},
}

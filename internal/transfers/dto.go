package transfers

import "time"

type createRequest struct {
	FromWarehouseID string `json:"from_warehouse_id" validate:"required,uuid"`
	ToWarehouseID   string `json:"to_warehouse_id" validate:"required,uuid,nefield=FromWarehouseID"`
	ProductID       string `json:"product_id" validate:"omitempty,uuid"`
	LotID           string `json:"lot_id" validate:"omitempty,uuid"`
	Quantity        int64  `json:"quantity" validate:"required,gt=0"`
	Barcode         string `json:"barcode" validate:"omitempty,max=128"`
	Notes           string `json:"notes" validate:"omitempty,max=1000"`
}

// Response is the JSON view of a transfer.
type Response struct {
	ID              string    `json:"id"`
	FromWarehouseID string    `json:"from_warehouse_id"`
	ToWarehouseID   string    `json:"to_warehouse_id"`
	LotID           string    `json:"lot_id"`
	ProductID       string    `json:"product_id"`
	Quantity        int64     `json:"quantity"`
	Status          Status    `json:"status"`
	BarcodeScanned  bool      `json:"barcode_scanned"`
	Notes           string    `json:"notes,omitempty"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewResponse maps a Transfer.
func NewResponse(t Transfer) Response {
	return Response{
		ID:              t.ID,
		FromWarehouseID: t.FromWarehouseID,
		ToWarehouseID:   t.ToWarehouseID,
		LotID:           t.LotID,
		ProductID:       t.ProductID,
		Quantity:        t.Quantity,
		Status:          t.Status,
		BarcodeScanned:  t.BarcodeScanned,
		Notes:           t.Notes,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
	}
}

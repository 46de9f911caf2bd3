package ledger

import "time"

type lotQuantityRequest struct {
	Quantity *int64 `json:"quantity" validate:"required,gte=0"`
}

type warehouseStockRequest struct {
	LotID    string `json:"lot_id" validate:"required,uuid"`
	Quantity int64  `json:"quantity" validate:"gte=0"`
}

// LotResponse is the JSON view of a lot.
type LotResponse struct {
	ID         string     `json:"id"`
	ProductID  string     `json:"product_id"`
	LotNumber  string     `json:"lot_number"`
	Barcode    string     `json:"barcode,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Quantity   int64      `json:"quantity"`
}

// LocationResponse is the JSON view of a stock location.
type LocationResponse struct {
	ID          string `json:"id"`
	WarehouseID string `json:"warehouse_id"`
	LotID       string `json:"lot_id"`
	Quantity    int64  `json:"quantity"`
}

// NewLotResponse maps a Lot.
func NewLotResponse(lot Lot) LotResponse {
	return LotResponse{
		ID:         lot.ID,
		ProductID:  lot.ProductID,
		LotNumber:  lot.LotNumber,
		Barcode:    lot.Barcode,
		ExpiryDate: lot.ExpiryDate,
		Quantity:   lot.Quantity,
	}
}

// NewLocationResponse maps a StockLocation.
func NewLocationResponse(loc StockLocation) LocationResponse {
	return LocationResponse{ID: loc.ID, WarehouseID: loc.WarehouseID, LotID: loc.LotID, Quantity: loc.Quantity}
}

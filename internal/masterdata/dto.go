package masterdata

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/lotledger/internal/ledger"
)

type warehouseRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Kind string `json:"kind" validate:"required,oneof=MAIN EMPLOYEE"`
}

type customerRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	TaxNumber string `json:"tax_number" validate:"omitempty,max=32"`
	TaxOffice string `json:"tax_office" validate:"omitempty,max=100"`
	Address   string `json:"address" validate:"omitempty,max=500"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
}

type productRequest struct {
	ReferenceCode     string           `json:"reference_code" validate:"required,max=64"`
	Name              string           `json:"name" validate:"omitempty,max=200"`
	Brand             string           `json:"brand" validate:"omitempty,max=100"`
	Category          string           `json:"category" validate:"omitempty,max=100"`
	SalePrice         *decimal.Decimal `json:"sale_price"`
	PurchasePrice     *decimal.Decimal `json:"purchase_price"`
	VatRate           *decimal.Decimal `json:"vat_rate"`
	CriticalThreshold *int64           `json:"critical_threshold" validate:"omitempty,gte=0"`
	Active            *bool            `json:"active"`
}

type lotRequest struct {
	LotNumber  string `json:"lot_number" validate:"required,max=64"`
	Barcode    string `json:"barcode" validate:"omitempty,max=128"`
	ExpiryDate string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

// WarehouseResponse is the JSON view of a warehouse.
type WarehouseResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Kind      ledger.WarehouseKind `json:"kind"`
	CreatedAt time.Time            `json:"created_at"`
}

// CustomerResponse is the JSON view of a customer.
type CustomerResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TaxNumber   string `json:"tax_number,omitempty"`
	TaxOffice   string `json:"tax_office,omitempty"`
	Address     string `json:"address,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	WarehouseID string `json:"warehouse_id,omitempty"`
}

// ProductResponse is the JSON view of a product.
type ProductResponse struct {
	ID                string          `json:"id"`
	ReferenceCode     string          `json:"reference_code"`
	Name              string          `json:"name"`
	Brand             string          `json:"brand,omitempty"`
	Category          string          `json:"category,omitempty"`
	SalePrice         decimal.Decimal `json:"sale_price"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	VatRate           decimal.Decimal `json:"vat_rate"`
	CriticalThreshold int64           `json:"critical_threshold"`
	Active            bool            `json:"active"`
}

func newWarehouseResponse(w ledger.Warehouse) WarehouseResponse {
	return WarehouseResponse{ID: w.ID, Name: w.Name, Kind: w.Kind, CreatedAt: w.CreatedAt}
}

func newCustomerResponse(c Customer) CustomerResponse {
	return CustomerResponse{
		ID:          c.ID,
		Name:        c.Name,
		TaxNumber:   c.TaxNumber,
		TaxOffice:   c.TaxOffice,
		Address:     c.Address,
		Email:       c.Email,
		Phone:       c.Phone,
		WarehouseID: c.WarehouseID,
	}
}

func newProductResponse(p ledger.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID,
		ReferenceCode:     p.ReferenceCode,
		Name:              p.Name,
		Brand:             p.Brand,
		Category:          p.Category,
		SalePrice:         p.SalePrice,
		PurchasePrice:     p.PurchasePrice,
		VatRate:           p.VatRate,
		CriticalThreshold: p.CriticalThreshold,
		Active:            p.Active,
	}
}

package masterdata_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/lotledger/internal/auditlog"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/masterdata"
	"github.com/odyssey-erp/lotledger/internal/masterdata/masterdatatest"
)

type memoryAudit struct {
	entries []auditlog.Entry
}

func (m *memoryAudit) Append(_ context.Context, entry auditlog.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func newService(t *testing.T) (*masterdata.Service, *masterdatatest.Store, ledger.Warehouse, *memoryAudit) {
	t.Helper()
	store := masterdatatest.New()
	main := store.AddWarehouse("Main", ledger.WarehouseMain)
	audit := &memoryAudit{}
	return masterdata.NewService(store, main.ID, audit, nil), store, main, audit
}

func TestCreateCustomerCreatesWarehouse(t *testing.T) {
	svc, store, _, audit := newService(t)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, masterdata.CreateCustomerInput{Name: " Acme Clinic ", TaxNumber: "1234567890"})
	require.NoError(t, err)
	require.Equal(t, "Acme Clinic", customer.Name)
	require.NotEmpty(t, customer.WarehouseID)

	warehouse, err := store.GetWarehouse(ctx, customer.WarehouseID)
	require.NoError(t, err)
	require.Equal(t, ledger.WarehouseCustomer, warehouse.Kind)

	loaded, err := svc.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Equal(t, customer.WarehouseID, loaded.WarehouseID)

	require.Len(t, audit.entries, 1)
	require.Equal(t, auditlog.ActionCustomerCreate, audit.entries[0].ActionType)

	_, err = svc.CreateCustomer(ctx, masterdata.CreateCustomerInput{Name: "  "})
	require.ErrorIs(t, err, masterdata.ErrNameRequired)
}

func TestCreateWarehouseRejectsCustomerKind(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateWarehouse(ctx, masterdata.CreateWarehouseInput{Name: "X", Kind: ledger.WarehouseCustomer})
	require.ErrorIs(t, err, masterdata.ErrInvalidKind)

	w, err := svc.CreateWarehouse(ctx, masterdata.CreateWarehouseInput{Name: "Van 1", Kind: ledger.WarehouseEmployee})
	require.NoError(t, err)
	require.Equal(t, ledger.WarehouseEmployee, w.Kind)
}

func TestDeleteWarehouse(t *testing.T) {
	svc, store, main, _ := newService(t)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, masterdata.CreateCustomerInput{Name: "Acme"})
	require.NoError(t, err)
	product := store.AddProduct(ledger.Product{ReferenceCode: "REF"})
	lot := store.AddLot(ledger.Lot{ProductID: product.ID, LotNumber: "L1"})
	store.SetLocation(customer.WarehouseID, lot.ID, 2)

	require.ErrorIs(t, svc.DeleteWarehouse(ctx, main.ID, ""), masterdata.ErrMainWarehouse)
	require.ErrorIs(t, svc.DeleteWarehouse(ctx, customer.WarehouseID, ""), masterdata.ErrWarehouseNotEmpty)

	store.SetLocation(customer.WarehouseID, lot.ID, 0)
	require.NoError(t, svc.DeleteWarehouse(ctx, customer.WarehouseID, "u1"))
	require.False(t, store.HasLocation(customer.WarehouseID, lot.ID))

	loaded, err := svc.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.WarehouseID)

	require.ErrorIs(t, svc.DeleteWarehouse(ctx, customer.WarehouseID, ""), ledger.ErrWarehouseNotFound)
}

func TestUpsertProductByReference(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	price := decimal.RequireFromString("12.50")
	vat := decimal.NewFromInt(20)

	created, err := svc.UpsertProduct(ctx, masterdata.ProductInput{ReferenceCode: " ref-9 ", SalePrice: &price, VatRate: &vat})
	require.NoError(t, err)
	require.Equal(t, "REF-9", created.ReferenceCode)
	require.Equal(t, "REF-9", created.Name)
	require.True(t, created.Active)

	updated, err := svc.UpsertProduct(ctx, masterdata.ProductInput{ReferenceCode: "REF-9", Name: "Bone Graft"})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "Bone Graft", updated.Name)
	require.True(t, updated.SalePrice.Equal(price))

	negative := decimal.NewFromInt(-1)
	_, err = svc.UpsertProduct(ctx, masterdata.ProductInput{ReferenceCode: "REF-9", SalePrice: &negative})
	require.ErrorIs(t, err, masterdata.ErrNegativeAmount)

	_, err = svc.UpsertProduct(ctx, masterdata.ProductInput{})
	require.ErrorIs(t, err, masterdata.ErrReferenceRequired)
}

func TestUpsertLotKeepsQuantity(t *testing.T) {
	svc, store, _, _ := newService(t)
	ctx := context.Background()
	product := store.AddProduct(ledger.Product{ReferenceCode: "REF"})
	expiry := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	lot, err := svc.UpsertLot(ctx, masterdata.LotInput{ProductID: product.ID, LotNumber: "ab-1", ExpiryDate: &expiry})
	require.NoError(t, err)
	require.Equal(t, "AB-1", lot.LotNumber)
	require.Equal(t, int64(0), lot.Quantity)

	require.NoError(t, store.UpdateLotQuantity(ctx, lot.ID, 9))

	again, err := svc.UpsertLot(ctx, masterdata.LotInput{ProductID: product.ID, LotNumber: "AB-1", Barcode: "123"})
	require.NoError(t, err)
	require.Equal(t, lot.ID, again.ID)
	require.Equal(t, "123", again.Barcode)
	require.Equal(t, int64(9), again.Quantity)
	require.NotNil(t, again.ExpiryDate)

	_, err = svc.UpsertLot(ctx, masterdata.LotInput{ProductID: "missing", LotNumber: "X"})
	require.ErrorIs(t, err, ledger.ErrProductNotFound)
}

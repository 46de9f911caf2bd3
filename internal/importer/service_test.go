package importer_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/lotledger/internal/auditlog"
	"github.com/odyssey-erp/lotledger/internal/importer"
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

type fixture struct {
	store *masterdatatest.Store
	svc   *importer.Service
	audit *memoryAudit
	main  ledger.Warehouse
	field ledger.Warehouse
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := masterdatatest.New()
	main := store.AddWarehouse("Main", ledger.WarehouseMain)
	field := store.AddWarehouse("Field", ledger.WarehouseEmployee)
	audit := &memoryAudit{}
	engine := ledger.NewEngine(main.ID, nil, nil)
	md := masterdata.NewService(store, main.ID, audit, nil)
	return fixture{
		store: store,
		svc:   importer.NewService(store, engine, md, audit, nil),
		audit: audit,
		main:  main,
		field: field,
	}
}

func TestImportSetsLocationAndLotTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	price := decimal.RequireFromString("99.90")

	report, err := f.svc.Import(ctx, importer.Input{
		WarehouseID: f.field.ID,
		ActorID:     "u1",
		Rows: []importer.Row{
			{Line: 2, ReferenceCode: "ref-1", LotNumber: "lot-7", Quantity: 10, SalePrice: &price, Barcode: "869 1"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
	require.Zero(t, report.Failed)

	row := report.Rows[0]
	require.NotEmpty(t, row.LotID)
	require.Equal(t, int64(10), f.store.Quantity(f.field.ID, row.LotID))
	require.Equal(t, int64(10), f.store.LotQuantity(row.LotID))
	require.Zero(t, f.store.Quantity(f.main.ID, row.LotID), "import applies no main compensation")

	products := f.store.Products()
	require.Len(t, products, 1)
	require.Equal(t, "REF-1", products[0].ReferenceCode)
	require.True(t, products[0].SalePrice.Equal(price))
	lots := f.store.Lots()
	require.Len(t, lots, 1)
	require.Equal(t, "LOT-7", lots[0].LotNumber)

	require.Len(t, f.audit.entries, 1)
	require.Equal(t, auditlog.ActionStockImport, f.audit.entries[0].ActionType)
	require.Equal(t, f.field.ID, f.audit.entries[0].WarehouseID)
}

func TestReimportOverwritesQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rows := []importer.Row{{Line: 2, ReferenceCode: "REF-1", LotNumber: "L1", Quantity: 10}}

	first, err := f.svc.Import(ctx, importer.Input{WarehouseID: f.field.ID, Rows: rows})
	require.NoError(t, err)
	lotID := first.Rows[0].LotID
	f.store.SetLocation(f.main.ID, lotID, 5)

	rows[0].Quantity = 4
	second, err := f.svc.Import(ctx, importer.Input{WarehouseID: f.field.ID, Rows: rows})
	require.NoError(t, err)
	require.Equal(t, lotID, second.Rows[0].LotID)
	require.Equal(t, int64(4), f.store.Quantity(f.field.ID, lotID))
	require.Equal(t, int64(9), f.store.LotQuantity(lotID))
	require.Len(t, f.store.Lots(), 1)
}

func TestImportReportsFailingRowsAndContinues(t *testing.T) {
	f := newFixture(t)
	negative := decimal.NewFromInt(-1)

	report, err := f.svc.Import(context.Background(), importer.Input{
		WarehouseID: f.field.ID,
		Rows: []importer.Row{
			{Line: 2, ReferenceCode: "REF-1", LotNumber: "L1", Quantity: 3, VatRate: &negative},
			{Line: 3, ReferenceCode: "REF-2", LotNumber: "L2", Quantity: 7},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
	require.Equal(t, 1, report.Failed)
	require.NotEmpty(t, report.Rows[0].Error)
	require.Empty(t, report.Rows[1].Error)
	require.Len(t, f.store.Products(), 1, "failed row leaves nothing behind")
	require.Equal(t, int64(7), f.store.Quantity(f.field.ID, report.Rows[1].LotID))
}

func TestImportUnknownWarehouse(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Import(context.Background(), importer.Input{
		WarehouseID: f.store.NextID(),
		Rows:        []importer.Row{{Line: 2, ReferenceCode: "REF-1", LotNumber: "L1", Quantity: 1}},
	})
	require.ErrorIs(t, err, ledger.ErrWarehouseNotFound)
	require.Empty(t, f.store.Products())
}

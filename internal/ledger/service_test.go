package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/lotledger/internal/auditlog"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/ledger/ledgertest"
)

type memoryAudit struct {
	mu      sync.Mutex
	entries []auditlog.Entry
}

func (m *memoryAudit) Append(_ context.Context, entry auditlog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func newService(f fixture) (*ledger.Service, *memoryAudit) {
	audit := &memoryAudit{}
	return ledger.NewService(f.store, f.engine, audit, nil), audit
}

func TestSetLotQuantityMovesThroughMain(t *testing.T) {
	f := newFixture(t)
	svc, audit := newService(f)
	ctx := context.Background()
	f.store.SetLocation(f.main.ID, f.lot.ID, 40)
	f.store.SetLocation(f.customer.ID, f.lot.ID, 5)

	lot, err := svc.SetLotQuantity(ctx, ledger.SetLotQuantityInput{LotID: f.lot.ID, Quantity: 25, ActorID: "u1"})
	require.NoError(t, err)
	require.Equal(t, int64(25), f.store.Quantity(f.main.ID, f.lot.ID))
	require.Equal(t, int64(5), f.store.Quantity(f.customer.ID, f.lot.ID))
	require.Equal(t, int64(30), lot.Quantity)
	require.Equal(t, int64(30), f.store.LotQuantity(f.lot.ID))

	require.Len(t, audit.entries, 1)
	require.Equal(t, auditlog.ActionLotQuantitySet, audit.entries[0].ActionType)
	require.Equal(t, "u1", audit.entries[0].UserID)

	_, err = svc.SetLotQuantity(ctx, ledger.SetLotQuantityInput{LotID: f.lot.ID, Quantity: -1})
	require.ErrorIs(t, err, ledger.ErrInvalidQuantity)

	_, err = svc.SetLotQuantity(ctx, ledger.SetLotQuantityInput{LotID: "missing", Quantity: 1})
	require.ErrorIs(t, err, ledger.ErrLotNotFound)
}

func TestWarehouseStockCompensatesMain(t *testing.T) {
	f := newFixture(t)
	svc, audit := newService(f)
	ctx := context.Background()
	f.store.SetLocation(f.main.ID, f.lot.ID, 50)

	loc, err := svc.SetWarehouseStock(ctx, ledger.WarehouseStockInput{WarehouseID: f.customer.ID, LotID: f.lot.ID, Quantity: 20})
	require.NoError(t, err)
	require.Equal(t, int64(20), loc.Quantity)
	require.Equal(t, int64(30), f.store.Quantity(f.main.ID, f.lot.ID))

	_, err = svc.AddWarehouseStock(ctx, ledger.WarehouseStockInput{WarehouseID: f.customer.ID, LotID: f.lot.ID, Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, int64(25), f.store.Quantity(f.customer.ID, f.lot.ID))
	require.Equal(t, int64(25), f.store.Quantity(f.main.ID, f.lot.ID))

	_, err = svc.SetWarehouseStock(ctx, ledger.WarehouseStockInput{WarehouseID: f.customer.ID, LotID: f.lot.ID, Quantity: 10})
	require.NoError(t, err)
	require.Equal(t, int64(10), f.store.Quantity(f.customer.ID, f.lot.ID))
	require.Equal(t, int64(40), f.store.Quantity(f.main.ID, f.lot.ID))

	require.Len(t, audit.entries, 3)
}

func TestWarehouseStockFailsWhenMainIsShort(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	ctx := context.Background()
	f.store.SetLocation(f.main.ID, f.lot.ID, 3)

	_, err := svc.AddWarehouseStock(ctx, ledger.WarehouseStockInput{WarehouseID: f.customer.ID, LotID: f.lot.ID, Quantity: 5})
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)
	require.Equal(t, int64(3), f.store.Quantity(f.main.ID, f.lot.ID))
	require.False(t, f.store.HasLocation(f.customer.ID, f.lot.ID))
}

func TestRemoveWarehouseStockDropsEmptyRow(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	ctx := context.Background()
	f.store.SetLocation(f.main.ID, f.lot.ID, 10)
	f.store.SetLocation(f.customer.ID, f.lot.ID, 4)

	_, err := svc.RemoveWarehouseStock(ctx, ledger.WarehouseStockInput{WarehouseID: f.customer.ID, LotID: f.lot.ID, Quantity: 5})
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)
	require.Equal(t, int64(4), f.store.Quantity(f.customer.ID, f.lot.ID))
	require.Equal(t, int64(10), f.store.Quantity(f.main.ID, f.lot.ID))

	loc, err := svc.RemoveWarehouseStock(ctx, ledger.WarehouseStockInput{WarehouseID: f.customer.ID, LotID: f.lot.ID, Quantity: 4})
	require.NoError(t, err)
	require.Equal(t, int64(0), loc.Quantity)
	require.False(t, f.store.HasLocation(f.customer.ID, f.lot.ID))
	require.Equal(t, int64(14), f.store.Quantity(f.main.ID, f.lot.ID))
}

func TestRemoveFromMainKeepsEmptyRow(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	ctx := context.Background()
	f.store.SetLocation(f.main.ID, f.lot.ID, 6)

	loc, err := svc.RemoveWarehouseStock(ctx, ledger.WarehouseStockInput{WarehouseID: f.main.ID, LotID: f.lot.ID, Quantity: 6})
	require.NoError(t, err)
	require.Zero(t, loc.Quantity)
	require.True(t, f.store.HasLocation(f.main.ID, f.lot.ID))
	require.Zero(t, f.store.LotQuantity(f.lot.ID))
}

func TestMainWarehouseEditUpdatesLotTotal(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	ctx := context.Background()

	_, err := svc.AddWarehouseStock(ctx, ledger.WarehouseStockInput{WarehouseID: f.main.ID, LotID: f.lot.ID, Quantity: 12})
	require.NoError(t, err)
	require.Equal(t, int64(12), f.store.Quantity(f.main.ID, f.lot.ID))
	require.Equal(t, int64(12), f.store.LotQuantity(f.lot.ID))
}

func TestResolveMainWarehouse(t *testing.T) {
	ctx := context.Background()
	store := ledgertest.New()

	_, err := ledger.ResolveMainWarehouse(ctx, store, "")
	require.ErrorIs(t, err, ledger.ErrNoMainWarehouse)

	oldest := store.AddWarehouse("Main", ledger.WarehouseMain)
	newer := store.AddWarehouse("Main 2", ledger.WarehouseMain)
	customer := store.AddWarehouse("Customer", ledger.WarehouseCustomer)

	w, err := ledger.ResolveMainWarehouse(ctx, store, "")
	require.NoError(t, err)
	require.Equal(t, oldest.ID, w.ID)

	w, err = ledger.ResolveMainWarehouse(ctx, store, newer.ID)
	require.NoError(t, err)
	require.Equal(t, newer.ID, w.ID)

	_, err = ledger.ResolveMainWarehouse(ctx, store, customer.ID)
	require.ErrorIs(t, err, ledger.ErrNotMainWarehouse)
}

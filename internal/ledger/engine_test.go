package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/ledger/ledgertest"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

type fixture struct {
	store    *ledgertest.Store
	engine   *ledger.Engine
	main     ledger.Warehouse
	customer ledger.Warehouse
	product  ledger.Product
	lot      ledger.Lot
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := ledgertest.New()
	main := store.AddWarehouse("Main", ledger.WarehouseMain)
	customer := store.AddWarehouse("Customer A", ledger.WarehouseCustomer)
	product := store.AddProduct(ledger.Product{ReferenceCode: "REF-1", Name: "Implant"})
	lot := store.AddLot(ledger.Lot{ProductID: product.ID, LotNumber: "L1"})
	return fixture{
		store:    store,
		engine:   ledger.NewEngine(main.ID, nil, nil),
		main:     main,
		customer: customer,
		product:  product,
		lot:      lot,
	}
}

func (f fixture) adjust(ctx context.Context, warehouseID string, delta int64) (ledger.StockLocation, error) {
	var loc ledger.StockLocation
	err := f.store.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		var err error
		loc, err = f.engine.Adjust(ctx, tx, warehouseID, f.lot.ID, delta)
		return err
	})
	return loc, err
}

func TestAdjustNeverGoesNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	deltas := []int64{10, -4, -7, 3, -9, -1, 5, -100}
	expected := int64(0)
	for _, delta := range deltas {
		_, err := f.adjust(ctx, f.main.ID, delta)
		if expected+delta < 0 {
			require.ErrorIs(t, err, ledger.ErrInsufficientStock)
			require.Equal(t, shared.KindInsufficientStock, shared.KindOf(err))
		} else {
			require.NoError(t, err)
			expected += delta
		}
		require.Equal(t, expected, f.store.Quantity(f.main.ID, f.lot.ID))
		require.GreaterOrEqual(t, f.store.Quantity(f.main.ID, f.lot.ID), int64(0))
	}
}

func TestEnsureLocationCreatesAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.False(t, f.store.HasLocation(f.customer.ID, f.lot.ID))
	loc, err := f.adjust(ctx, f.customer.ID, 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), loc.Quantity)
	require.True(t, f.store.HasLocation(f.customer.ID, f.lot.ID))

	again, err := f.adjust(ctx, f.customer.ID, 0)
	require.NoError(t, err)
	require.Equal(t, loc.ID, again.ID)
}

func TestEnsureLocationUnknownReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		_, err := f.engine.EnsureLocation(ctx, tx, "missing", f.lot.ID)
		return err
	})
	require.ErrorIs(t, err, ledger.ErrWarehouseNotFound)

	err = f.store.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		_, err := f.engine.EnsureLocation(ctx, tx, f.main.ID, "missing")
		return err
	})
	require.ErrorIs(t, err, ledger.ErrLotNotFound)
}

func TestApplyStepsRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.SetLocation(f.main.ID, f.lot.ID, 10)

	err := f.store.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		_, err := f.engine.ApplySteps(ctx, tx, []ledger.Step{
			{WarehouseID: f.main.ID, LotID: f.lot.ID, Delta: -6},
			{WarehouseID: f.customer.ID, LotID: f.lot.ID, Delta: 6},
			{WarehouseID: f.main.ID, LotID: f.lot.ID, Delta: -6},
		})
		return err
	})

	var stepErr *ledger.StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, 2, stepErr.Index)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)
	require.Equal(t, int64(10), f.store.Quantity(f.main.ID, f.lot.ID))
	require.Equal(t, int64(0), f.store.Quantity(f.customer.ID, f.lot.ID))
	require.False(t, f.store.HasLocation(f.customer.ID, f.lot.ID))
}

func TestSyncLotQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.SetLocation(f.main.ID, f.lot.ID, 7)
	f.store.SetLocation(f.customer.ID, f.lot.ID, 3)

	var lot ledger.Lot
	err := f.store.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		var err error
		lot, err = f.engine.SyncLotQuantity(ctx, tx, f.lot.ID)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(10), lot.Quantity)
	require.Equal(t, int64(10), f.store.LotQuantity(f.lot.ID))
}

package reconcile_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/lotledger/internal/auditlog"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/ledger/ledgertest"
	"github.com/odyssey-erp/lotledger/internal/platform/cache"
	"github.com/odyssey-erp/lotledger/internal/reconcile"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

type memoryAudit struct {
	entries []auditlog.Entry
}

func (m *memoryAudit) Append(_ context.Context, entry auditlog.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

type fixture struct {
	store *ledgertest.Store
	svc   *reconcile.Service
	audit *memoryAudit
	main  ledger.Warehouse
	field ledger.Warehouse
	lots  []ledger.Lot
}

// newFixture seeds lots whose master quantity is lot index * 10 while the
// locations hold a different amount.
func newFixture(t *testing.T, locker reconcile.Locker, lots int) fixture {
	t.Helper()
	store := ledgertest.New()
	main := store.AddWarehouse("Main", ledger.WarehouseMain)
	field := store.AddWarehouse("Field", ledger.WarehouseEmployee)
	product := store.AddProduct(ledger.Product{ReferenceCode: "REF-1"})
	f := fixture{store: store, audit: &memoryAudit{}, main: main, field: field}
	for i := 0; i < lots; i++ {
		lot := store.AddLot(ledger.Lot{ProductID: product.ID, LotNumber: fmt.Sprintf("L%d", i), Quantity: int64(i * 10)})
		store.SetLocation(field.ID, lot.ID, 5)
		f.lots = append(f.lots, lot)
	}
	engine := ledger.NewEngine(main.ID, nil, nil)
	f.svc = reconcile.NewService(store, engine, locker, f.audit, nil, reconcile.Config{BatchSize: 3, Workers: 2})
	return f
}

func TestRecalculateIsIdempotent(t *testing.T) {
	f := newFixture(t, nil, 7)
	ctx := context.Background()

	report, err := f.svc.RecalculateLotQuantities(ctx, "ops")
	require.NoError(t, err)
	require.Equal(t, 7, report.Scanned)
	require.Equal(t, 7, report.Changed)
	for _, lot := range f.lots {
		require.Equal(t, int64(5), f.store.LotQuantity(lot.ID))
	}

	again, err := f.svc.RecalculateLotQuantities(ctx, "ops")
	require.NoError(t, err)
	require.Equal(t, 7, again.Scanned)
	require.Zero(t, again.Changed)

	require.Len(t, f.audit.entries, 2)
	require.Equal(t, auditlog.ActionReconcileRecalc, f.audit.entries[0].ActionType)
	require.Equal(t, "ops", f.audit.entries[0].UserID)
}

func TestSyncMainBackfillsUntrackedQuantity(t *testing.T) {
	f := newFixture(t, nil, 4)
	ctx := context.Background()

	report, err := f.svc.SyncMainWarehouseStock(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 4, report.Scanned)
	require.Equal(t, 3, report.Changed)

	// Lot totals 0 and 10 and 20 and 30 against 5 held in the field.
	require.False(t, f.store.HasLocation(f.main.ID, f.lots[0].ID))
	require.Zero(t, f.store.Quantity(f.main.ID, f.lots[0].ID))
	require.Equal(t, int64(5), f.store.Quantity(f.main.ID, f.lots[1].ID))
	require.Equal(t, int64(15), f.store.Quantity(f.main.ID, f.lots[2].ID))
	require.Equal(t, int64(25), f.store.Quantity(f.main.ID, f.lots[3].ID))
	require.Equal(t, int64(5), f.store.Quantity(f.field.ID, f.lots[3].ID))

	again, err := f.svc.SyncMainWarehouseStock(ctx, "")
	require.NoError(t, err)
	require.Zero(t, again.Changed)
}

func TestRunDispatchesByName(t *testing.T) {
	f := newFixture(t, nil, 1)

	report, err := f.svc.Run(context.Background(), reconcile.PassRecalculate, "")
	require.NoError(t, err)
	require.Equal(t, reconcile.PassRecalculate, report.Pass)

	_, err = f.svc.Run(context.Background(), "vacuum", "")
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestPassRefusesWhileLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := cache.NewLocker(client, time.Minute)
	f := newFixture(t, locker, 2)
	ctx := context.Background()

	err := locker.WithLock(ctx, shared.ReconcileLockKey(reconcile.PassRecalculate), func(ctx context.Context) error {
		_, err := f.svc.RecalculateLotQuantities(ctx, "")
		return err
	})
	require.ErrorIs(t, err, cache.ErrLocked)
	require.Equal(t, int64(0), f.store.LotQuantity(f.lots[0].ID))
	require.Equal(t, int64(10), f.store.LotQuantity(f.lots[1].ID))
	require.Empty(t, f.audit.entries)

	report, err := f.svc.RecalculateLotQuantities(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, report.Changed)
}

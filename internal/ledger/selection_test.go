package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/ledger/ledgertest"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAutoSelectLotFEFO(t *testing.T) {
	store := ledgertest.New()
	product := store.AddProduct(ledger.Product{ReferenceCode: "REF"})
	early := store.AddLot(ledger.Lot{ProductID: product.ID, LotNumber: "A", ExpiryDate: date(2025, 1, 1)})
	later := store.AddLot(ledger.Lot{ProductID: product.ID, LotNumber: "B", ExpiryDate: date(2025, 6, 1)})
	undated := store.AddLot(ledger.Lot{ProductID: product.ID, LotNumber: "C"})
	selector := ledger.NewSelector(store)
	ctx := context.Background()

	lot, err := selector.AutoSelectLot(ctx, product.ID, "")
	require.NoError(t, err)
	require.Equal(t, early.ID, lot.ID)

	store.RemoveLot(early.ID)
	lot, err = selector.AutoSelectLot(ctx, product.ID, "")
	require.NoError(t, err)
	require.Equal(t, later.ID, lot.ID)

	store.RemoveLot(later.ID)
	lot, err = selector.AutoSelectLot(ctx, product.ID, "")
	require.NoError(t, err)
	require.Equal(t, undated.ID, lot.ID)

	store.RemoveLot(undated.ID)
	_, err = selector.AutoSelectLot(ctx, product.ID, "")
	require.ErrorIs(t, err, ledger.ErrLotNotFound)
}

func TestAutoSelectLotTieBreaksOnCreation(t *testing.T) {
	store := ledgertest.New()
	product := store.AddProduct(ledger.Product{ReferenceCode: "REF"})
	first := store.AddLot(ledger.Lot{ProductID: product.ID, LotNumber: "A", ExpiryDate: date(2025, 3, 1)})
	store.AddLot(ledger.Lot{ProductID: product.ID, LotNumber: "B", ExpiryDate: date(2025, 3, 1)})

	lot, err := ledger.NewSelector(store).AutoSelectLot(context.Background(), product.ID, "")
	require.NoError(t, err)
	require.Equal(t, first.ID, lot.ID)
}

func TestAutoSelectLotBarcode(t *testing.T) {
	store := ledgertest.New()
	p1 := store.AddProduct(ledger.Product{ReferenceCode: "P1"})
	p2 := store.AddProduct(ledger.Product{ReferenceCode: "P2"})
	fefo := store.AddLot(ledger.Lot{ProductID: p1.ID, LotNumber: "A", ExpiryDate: date(2025, 1, 1)})
	scanned := store.AddLot(ledger.Lot{ProductID: p1.ID, LotNumber: "B", Barcode: "869000111", ExpiryDate: date(2026, 1, 1)})
	other := store.AddLot(ledger.Lot{ProductID: p2.ID, LotNumber: "X", Barcode: "869000222"})
	selector := ledger.NewSelector(store)
	ctx := context.Background()

	lot, err := selector.AutoSelectLot(ctx, p1.ID, " 869000111 ")
	require.NoError(t, err)
	require.Equal(t, scanned.ID, lot.ID, "barcode wins over expiry order")

	lot, err = selector.AutoSelectLot(ctx, p1.ID, "869000222")
	require.NoError(t, err)
	require.Equal(t, fefo.ID, lot.ID, "another product's barcode is ignored when a product is given")

	lot, err = selector.AutoSelectLot(ctx, "", "869000222")
	require.NoError(t, err)
	require.Equal(t, other.ID, lot.ID)

	_, err = selector.AutoSelectLot(ctx, "", "unknown")
	require.ErrorIs(t, err, ledger.ErrLotNotFound)
}

// Package masterdatatest extends the in-memory ledger store with master data.
package masterdatatest

import (
	"context"
	"sync"

	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/ledger/ledgertest"
	"github.com/odyssey-erp/lotledger/internal/masterdata"
)

// Store implements masterdata.RepositoryPort and masterdata.TxRepository.
type Store struct {
	*ledgertest.Store

	mu        sync.Mutex
	customers map[string]masterdata.Customer
}

// New returns an empty store.
func New() *Store {
	return &Store{Store: ledgertest.New(), customers: make(map[string]masterdata.Customer)}
}

// Atomically snapshots ledger and customer state around fn.
func (s *Store) Atomically(fn func() error) error {
	return s.Store.Atomically(func() error {
		s.mu.Lock()
		snap := ledgertest.CloneMap(s.customers)
		s.mu.Unlock()
		if err := fn(); err != nil {
			s.mu.Lock()
			s.customers = snap
			s.mu.Unlock()
			return err
		}
		return nil
	})
}

// WithTx implements masterdata.RepositoryPort.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, masterdata.TxRepository) error) error {
	return s.Atomically(func() error { return fn(ctx, s) })
}

func (s *Store) GetCustomer(_ context.Context, id string) (masterdata.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return masterdata.Customer{}, masterdata.ErrCustomerNotFound
	}
	return c, nil
}

func (s *Store) InsertCustomer(_ context.Context, c masterdata.Customer) (masterdata.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) ClearCustomerWarehouse(_ context.Context, warehouseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.customers {
		if c.WarehouseID == warehouseID {
			c.WarehouseID = ""
			s.customers[id] = c
		}
	}
	return nil
}

func (s *Store) InsertWarehouse(_ context.Context, w ledger.Warehouse) (ledger.Warehouse, error) {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.Tick()
	}
	s.PutWarehouse(w)
	return w, nil
}

func (s *Store) DeleteWarehouse(ctx context.Context, id string) error {
	if _, err := s.GetWarehouse(ctx, id); err != nil {
		return err
	}
	s.RemoveWarehouse(id)
	return nil
}

func (s *Store) ListWarehouseLocations(_ context.Context, warehouseID string) ([]ledger.StockLocation, error) {
	return s.LocationsOf(warehouseID), nil
}

func (s *Store) FindProductByReference(_ context.Context, referenceCode string) (ledger.Product, error) {
	for _, p := range s.Products() {
		if p.ReferenceCode == referenceCode {
			return p, nil
		}
	}
	return ledger.Product{}, ledger.ErrProductNotFound
}

func (s *Store) SaveProduct(_ context.Context, p ledger.Product) (ledger.Product, error) {
	s.PutProduct(p)
	return p, nil
}

func (s *Store) FindLot(_ context.Context, productID, lotNumber string) (ledger.Lot, error) {
	for _, lot := range s.Lots() {
		if lot.ProductID == productID && lot.LotNumber == lotNumber {
			return lot, nil
		}
	}
	return ledger.Lot{}, ledger.ErrLotNotFound
}

// SaveLot keeps the stored master quantity, like the SQL upsert.
func (s *Store) SaveLot(ctx context.Context, lot ledger.Lot) (ledger.Lot, error) {
	if existing, err := s.GetLot(ctx, lot.ID); err == nil {
		lot.Quantity = existing.Quantity
	} else {
		lot.Quantity = 0
	}
	s.PutLot(lot)
	return lot, nil
}

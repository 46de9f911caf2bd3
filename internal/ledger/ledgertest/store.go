// Package ledgertest provides an in-memory ledger store for tests. Transactions
// snapshot the whole store and restore it when the callback fails.
package ledgertest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/lotledger/internal/ledger"
)

// Store implements ledger.RepositoryPort and ledger.TxRepository.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	warehouses map[string]ledger.Warehouse
	products   map[string]ledger.Product
	lots       map[string]ledger.Lot
	locations  map[string]ledger.StockLocation
	seq        int
	clock      time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		warehouses: make(map[string]ledger.Warehouse),
		products:   make(map[string]ledger.Product),
		lots:       make(map[string]ledger.Lot),
		locations:  make(map[string]ledger.StockLocation),
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func locationKey(warehouseID, lotID string) string {
	return warehouseID + "|" + lotID
}

// NextID returns a unique UUID-formatted id. Ids ascend in creation order.
func (s *Store) NextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIDLocked()
}

func (s *Store) nextIDLocked() string {
	s.seq++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", s.seq)
}

// Tick advances and returns the store clock so creation order is strict.
func (s *Store) Tick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLocked()
}

func (s *Store) tickLocked() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// Atomically runs fn serialised against other transactions and restores the
// store when fn fails. Extensions snapshot their own state inside fn.
func (s *Store) Atomically(fn func() error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := fn(); err != nil {
		s.mu.Lock()
		s.restoreLocked(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

type snapshot struct {
	warehouses map[string]ledger.Warehouse
	products   map[string]ledger.Product
	lots       map[string]ledger.Lot
	locations  map[string]ledger.StockLocation
}

func (s *Store) snapshotLocked() snapshot {
	return snapshot{
		warehouses: cloneMap(s.warehouses),
		products:   cloneMap(s.products),
		lots:       cloneMap(s.lots),
		locations:  cloneMap(s.locations),
	}
}

func (s *Store) restoreLocked(snap snapshot) {
	s.warehouses = snap.warehouses
	s.products = snap.products
	s.lots = snap.lots
	s.locations = snap.locations
}

// CloneMap copies a map; extensions use it for their own snapshots.
func CloneMap[K comparable, V any](in map[K]V) map[K]V {
	return cloneMap(in)
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// WithTx implements ledger.RepositoryPort.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	return s.Atomically(func() error { return fn(ctx, s) })
}

// AddWarehouse seeds a warehouse and returns it.
func (s *Store) AddWarehouse(name string, kind ledger.WarehouseKind) ledger.Warehouse {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := ledger.Warehouse{ID: s.nextIDLocked(), Name: name, Kind: kind, CreatedAt: s.tickLocked()}
	s.warehouses[w.ID] = w
	return w
}

// PutWarehouse stores w as given.
func (s *Store) PutWarehouse(w ledger.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[w.ID] = w
}

// RemoveWarehouse deletes a warehouse row.
func (s *Store) RemoveWarehouse(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.warehouses, id)
}

// AddProduct seeds a product and returns it.
func (s *Store) AddProduct(p ledger.Product) ledger.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.tickLocked()
	}
	s.products[p.ID] = p
	return p
}

// PutProduct stores p as given.
func (s *Store) PutProduct(p ledger.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// Products returns all products ordered by id.
func (s *Store) Products() []ledger.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddLot seeds a lot and returns it.
func (s *Store) AddLot(lot ledger.Lot) ledger.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lot.ID == "" {
		lot.ID = s.nextIDLocked()
	}
	if lot.CreatedAt.IsZero() {
		lot.CreatedAt = s.tickLocked()
	}
	s.lots[lot.ID] = lot
	return lot
}

// PutLot stores lot as given.
func (s *Store) PutLot(lot ledger.Lot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[lot.ID] = lot
}

// RemoveLot deletes a lot and its locations.
func (s *Store) RemoveLot(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lots, id)
	for k, loc := range s.locations {
		if loc.LotID == id {
			delete(s.locations, k)
		}
	}
}

// Lots returns all lots ordered by id.
func (s *Store) Lots() []ledger.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Lot, 0, len(s.lots))
	for _, lot := range s.lots {
		out = append(out, lot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetLocation writes a location quantity directly, bypassing the engine.
func (s *Store) SetLocation(warehouseID, lotID string, quantity int64) ledger.StockLocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := locationKey(warehouseID, lotID)
	loc, ok := s.locations[key]
	if !ok {
		loc = ledger.StockLocation{ID: s.nextIDLocked(), WarehouseID: warehouseID, LotID: lotID}
	}
	loc.Quantity = quantity
	s.locations[key] = loc
	return loc
}

// Quantity returns a location quantity, zero when the row is absent.
func (s *Store) Quantity(warehouseID, lotID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locations[locationKey(warehouseID, lotID)].Quantity
}

// HasLocation reports whether the (warehouse, lot) row exists.
func (s *Store) HasLocation(warehouseID, lotID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.locations[locationKey(warehouseID, lotID)]
	return ok
}

// LocationsOf returns the locations held by a warehouse.
func (s *Store) LocationsOf(warehouseID string) []ledger.StockLocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.StockLocation
	for _, loc := range s.locations {
		if loc.WarehouseID == warehouseID {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LotID < out[j].LotID })
	return out
}

// LotQuantity returns the master quantity of a lot.
func (s *Store) LotQuantity(lotID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lots[lotID].Quantity
}

// FindLotsByBarcode implements ledger.LotFinder.
func (s *Store) FindLotsByBarcode(_ context.Context, barcode, productID string) ([]ledger.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Lot
	for _, lot := range s.lots {
		if lot.Barcode == barcode && (productID == "" || lot.ProductID == productID) {
			out = append(out, lot)
		}
	}
	sortByCreation(out)
	return out, nil
}

// ListLotsByProduct implements ledger.LotFinder.
func (s *Store) ListLotsByProduct(_ context.Context, productID string) ([]ledger.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Lot
	for _, lot := range s.lots {
		if lot.ProductID == productID {
			out = append(out, lot)
		}
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(lots []ledger.Lot) {
	sort.Slice(lots, func(i, j int) bool {
		if !lots[i].CreatedAt.Equal(lots[j].CreatedAt) {
			return lots[i].CreatedAt.Before(lots[j].CreatedAt)
		}
		return lots[i].ID < lots[j].ID
	})
}

// ListLotIDs implements keyset paging over lot ids.
func (s *Store) ListLotIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.lots))
	for id := range s.lots {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// ListMainWarehouses implements ledger.MainWarehouseFinder.
func (s *Store) ListMainWarehouses(_ context.Context) ([]ledger.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Warehouse
	for _, w := range s.warehouses {
		if w.Kind == ledger.WarehouseMain {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetWarehouse(_ context.Context, id string) (ledger.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.warehouses[id]
	if !ok {
		return ledger.Warehouse{}, ledger.ErrWarehouseNotFound
	}
	return w, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (ledger.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return ledger.Product{}, ledger.ErrProductNotFound
	}
	return p, nil
}

func (s *Store) GetLot(_ context.Context, id string) (ledger.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[id]
	if !ok {
		return ledger.Lot{}, ledger.ErrLotNotFound
	}
	return lot, nil
}

func (s *Store) LockLot(ctx context.Context, id string) (ledger.Lot, error) {
	return s.GetLot(ctx, id)
}

func (s *Store) UpdateLotQuantity(_ context.Context, lotID string, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return ledger.ErrLotNotFound
	}
	lot.Quantity = quantity
	s.lots[lotID] = lot
	return nil
}

func (s *Store) LockLocation(_ context.Context, warehouseID, lotID string) (ledger.StockLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.locations[locationKey(warehouseID, lotID)]
	if !ok {
		return ledger.StockLocation{}, ledger.ErrLocationNotFound
	}
	return loc, nil
}

func (s *Store) InsertLocation(_ context.Context, warehouseID, lotID string) (ledger.StockLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := locationKey(warehouseID, lotID)
	if loc, ok := s.locations[key]; ok {
		return loc, nil
	}
	loc := ledger.StockLocation{ID: s.nextIDLocked(), WarehouseID: warehouseID, LotID: lotID}
	s.locations[key] = loc
	return loc, nil
}

// UpdateLocationQuantity rejects negative values the way the CHECK
// constraint does.
func (s *Store) UpdateLocationQuantity(_ context.Context, id string, quantity int64) (ledger.StockLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quantity < 0 {
		return ledger.StockLocation{}, ledger.ErrInsufficientStock
	}
	for key, loc := range s.locations {
		if loc.ID == id {
			loc.Quantity = quantity
			s.locations[key] = loc
			return loc, nil
		}
	}
	return ledger.StockLocation{}, ledger.ErrLocationNotFound
}

func (s *Store) DeleteLocation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, loc := range s.locations {
		if loc.ID == id {
			delete(s.locations, key)
		}
	}
	return nil
}

func (s *Store) SumLotLocations(_ context.Context, lotID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, loc := range s.locations {
		if loc.LotID == lotID {
			sum += loc.Quantity
		}
	}
	return sum, nil
}

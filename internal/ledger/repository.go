package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/lotledger/internal/platform/db"
)

// TxRepository exposes the transactional stock operations used by the engine.
type TxRepository interface {
	GetWarehouse(ctx context.Context, id string) (Warehouse, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	GetLot(ctx context.Context, id string) (Lot, error)
	LockLot(ctx context.Context, id string) (Lot, error)
	UpdateLotQuantity(ctx context.Context, lotID string, quantity int64) error
	LockLocation(ctx context.Context, warehouseID, lotID string) (StockLocation, error)
	InsertLocation(ctx context.Context, warehouseID, lotID string) (StockLocation, error)
	UpdateLocationQuantity(ctx context.Context, id string, quantity int64) (StockLocation, error)
	DeleteLocation(ctx context.Context, id string) error
	SumLotLocations(ctx context.Context, lotID string) (int64, error)
}

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

const lotColumns = `id::text, product_id::text, lot_number, COALESCE(barcode, ''), expiry_date, quantity, created_at, updated_at`

func scanLot(row pgx.Row) (Lot, error) {
	var lot Lot
	err := row.Scan(&lot.ID, &lot.ProductID, &lot.LotNumber, &lot.Barcode, &lot.ExpiryDate, &lot.Quantity, &lot.CreatedAt, &lot.UpdatedAt)
	return lot, err
}

func collectLots(rows pgx.Rows) ([]Lot, error) {
	defer rows.Close()
	var lots []Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// FindLotsByBarcode returns lots with an exact barcode match, oldest first.
func (r *Repository) FindLotsByBarcode(ctx context.Context, barcode, productID string) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+` FROM lots
		WHERE barcode = $1 AND ($2 = '' OR product_id::text = $2)
		ORDER BY created_at, id`, barcode, productID)
	if err != nil {
		return nil, err
	}
	return collectLots(rows)
}

// ListLotsByProduct returns every lot of a product.
func (r *Repository) ListLotsByProduct(ctx context.Context, productID string) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+` FROM lots WHERE product_id = $1 ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, err
	}
	return collectLots(rows)
}

// ListLotIDs pages lot ids in ascending order after afterID.
func (r *Repository) ListLotIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	if afterID == "" {
		afterID = uuid.Nil.String()
	}
	rows, err := r.pool.Query(ctx, `SELECT id::text FROM lots WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListMainWarehouses returns MAIN warehouses, oldest first.
func (r *Repository) ListMainWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, name, kind, created_at FROM warehouses
		WHERE kind = 'MAIN' ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Kind, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// TxStore implements TxRepository over a pgx transaction. Other packages
// embed it to extend the transactional surface.
type TxStore struct {
	tx pgx.Tx
}

// NewTxStore wraps tx.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{tx: tx}
}

// Tx returns the underlying transaction.
func (s *TxStore) Tx() pgx.Tx {
	return s.tx
}

func notFound(err error, sentinel error) error {
	if db.IsNotFound(err) {
		return sentinel
	}
	return err
}

func (s *TxStore) GetWarehouse(ctx context.Context, id string) (Warehouse, error) {
	var w Warehouse
	err := s.tx.QueryRow(ctx, `SELECT id::text, name, kind, created_at FROM warehouses WHERE id = $1`, id).
		Scan(&w.ID, &w.Name, &w.Kind, &w.CreatedAt)
	if err != nil {
		return Warehouse{}, notFound(err, ErrWarehouseNotFound)
	}
	return w, nil
}

func (s *TxStore) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := s.tx.QueryRow(ctx, `SELECT id::text, reference_code, name, COALESCE(brand, ''), COALESCE(category, ''),
		sale_price, purchase_price, vat_rate, critical_threshold, active, created_at, updated_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.ReferenceCode, &p.Name, &p.Brand, &p.Category,
			&p.SalePrice, &p.PurchasePrice, &p.VatRate, &p.CriticalThreshold, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, notFound(err, ErrProductNotFound)
	}
	return p, nil
}

func (s *TxStore) GetLot(ctx context.Context, id string) (Lot, error) {
	lot, err := scanLot(s.tx.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1`, id))
	if err != nil {
		return Lot{}, notFound(err, ErrLotNotFound)
	}
	return lot, nil
}

func (s *TxStore) LockLot(ctx context.Context, id string) (Lot, error) {
	lot, err := scanLot(s.tx.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Lot{}, notFound(err, ErrLotNotFound)
	}
	return lot, nil
}

func (s *TxStore) UpdateLotQuantity(ctx context.Context, lotID string, quantity int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE lots SET quantity = $2, updated_at = now() WHERE id = $1`, lotID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

const locationColumns = `id::text, warehouse_id::text, lot_id::text, quantity, updated_at`

func scanLocation(row pgx.Row) (StockLocation, error) {
	var loc StockLocation
	err := row.Scan(&loc.ID, &loc.WarehouseID, &loc.LotID, &loc.Quantity, &loc.UpdatedAt)
	return loc, err
}

func (s *TxStore) LockLocation(ctx context.Context, warehouseID, lotID string) (StockLocation, error) {
	loc, err := scanLocation(s.tx.QueryRow(ctx, `SELECT `+locationColumns+` FROM stock_locations
		WHERE warehouse_id = $1 AND lot_id = $2 FOR UPDATE`, warehouseID, lotID))
	if err != nil {
		return StockLocation{}, notFound(err, ErrLocationNotFound)
	}
	return loc, nil
}

// InsertLocation creates the row at zero. A concurrent insert of the same
// pair is absorbed by the unique constraint and the row is re-read under lock.
func (s *TxStore) InsertLocation(ctx context.Context, warehouseID, lotID string) (StockLocation, error) {
	_, err := s.tx.Exec(ctx, `INSERT INTO stock_locations (warehouse_id, lot_id, quantity)
		VALUES ($1, $2, 0) ON CONFLICT (warehouse_id, lot_id) DO NOTHING`, warehouseID, lotID)
	if err != nil {
		return StockLocation{}, fmt.Errorf("ledger: insert location: %w", err)
	}
	return s.LockLocation(ctx, warehouseID, lotID)
}

func (s *TxStore) UpdateLocationQuantity(ctx context.Context, id string, quantity int64) (StockLocation, error) {
	loc, err := scanLocation(s.tx.QueryRow(ctx, `UPDATE stock_locations SET quantity = $2, updated_at = now()
		WHERE id = $1 RETURNING `+locationColumns, id, quantity))
	if db.IsCode(err, db.CodeCheckViolation) {
		return StockLocation{}, ErrInsufficientStock
	}
	if err != nil {
		return StockLocation{}, notFound(err, ErrLocationNotFound)
	}
	return loc, nil
}

func (s *TxStore) DeleteLocation(ctx context.Context, id string) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM stock_locations WHERE id = $1`, id)
	return err
}

func (s *TxStore) SumLotLocations(ctx context.Context, lotID string) (int64, error) {
	var sum int64
	err := s.tx.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0)::bigint FROM stock_locations WHERE lot_id = $1`, lotID).Scan(&sum)
	return sum, err
}

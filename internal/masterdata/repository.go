package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/platform/db"
)

// TxRepository extends the ledger transaction with master data writes.
type TxRepository interface {
	ledger.TxRepository
	InsertWarehouse(ctx context.Context, w ledger.Warehouse) (ledger.Warehouse, error)
	DeleteWarehouse(ctx context.Context, id string) error
	ListWarehouseLocations(ctx context.Context, warehouseID string) ([]ledger.StockLocation, error)
	ClearCustomerWarehouse(ctx context.Context, warehouseID string) error
	InsertCustomer(ctx context.Context, c Customer) (Customer, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	FindProductByReference(ctx context.Context, referenceCode string) (ledger.Product, error)
	SaveProduct(ctx context.Context, p ledger.Product) (ledger.Product, error)
	FindLot(ctx context.Context, productID, lotNumber string) (ledger.Lot, error)
	SaveLot(ctx context.Context, lot ledger.Lot) (ledger.Lot, error)
}

// Repository persists master data in PostgreSQL.
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

// GetCustomer loads a customer outside a transaction.
func (r *Repository) GetCustomer(ctx context.Context, id string) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

const customerColumns = `id::text, name, COALESCE(tax_number, ''), COALESCE(tax_office, ''), COALESCE(address, ''),
	COALESCE(email, ''), COALESCE(phone, ''), COALESCE(warehouse_id::text, ''), created_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.TaxNumber, &c.TaxOffice, &c.Address, &c.Email, &c.Phone, &c.WarehouseID, &c.CreatedAt)
	if db.IsNotFound(err) {
		return Customer{}, ErrCustomerNotFound
	}
	return c, err
}

// TxStore implements TxRepository over a pgx transaction.
type TxStore struct {
	*ledger.TxStore
}

// NewTxStore wraps tx.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{TxStore: ledger.NewTxStore(tx)}
}

func duplicate(err error) error {
	if db.IsCode(err, db.CodeUniqueViolation) {
		return fmt.Errorf("%w: %s", ErrDuplicate, db.ConstraintName(err))
	}
	return err
}

func (s *TxStore) InsertWarehouse(ctx context.Context, w ledger.Warehouse) (ledger.Warehouse, error) {
	_, err := s.Tx().Exec(ctx, `INSERT INTO warehouses (id, name, kind, created_at) VALUES ($1, $2, $3, $4)`,
		w.ID, w.Name, string(w.Kind), w.CreatedAt)
	if err != nil {
		return ledger.Warehouse{}, duplicate(err)
	}
	return w, nil
}

func (s *TxStore) DeleteWarehouse(ctx context.Context, id string) error {
	tag, err := s.Tx().Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if db.IsCode(err, db.CodeForeignKeyViolation) {
		return fmt.Errorf("%w: %s", ErrWarehouseInUse, db.ConstraintName(err))
	}
	if db.IsNotFound(err) {
		return ledger.ErrWarehouseNotFound
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrWarehouseNotFound
	}
	return nil
}

func (s *TxStore) ListWarehouseLocations(ctx context.Context, warehouseID string) ([]ledger.StockLocation, error) {
	rows, err := s.Tx().Query(ctx, `SELECT id::text, warehouse_id::text, lot_id::text, quantity, updated_at
		FROM stock_locations WHERE warehouse_id = $1 ORDER BY lot_id FOR UPDATE`, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.StockLocation
	for rows.Next() {
		var loc ledger.StockLocation
		if err := rows.Scan(&loc.ID, &loc.WarehouseID, &loc.LotID, &loc.Quantity, &loc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *TxStore) ClearCustomerWarehouse(ctx context.Context, warehouseID string) error {
	_, err := s.Tx().Exec(ctx, `UPDATE customers SET warehouse_id = NULL WHERE warehouse_id = $1`, warehouseID)
	return err
}

func (s *TxStore) InsertCustomer(ctx context.Context, c Customer) (Customer, error) {
	_, err := s.Tx().Exec(ctx, `INSERT INTO customers
		(id, name, tax_number, tax_office, address, email, phone, warehouse_id, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9)`,
		c.ID, c.Name, c.TaxNumber, c.TaxOffice, c.Address, c.Email, c.Phone, c.WarehouseID, c.CreatedAt)
	if err != nil {
		return Customer{}, duplicate(err)
	}
	return c, nil
}

func (s *TxStore) GetCustomer(ctx context.Context, id string) (Customer, error) {
	return scanCustomer(s.Tx().QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (s *TxStore) FindProductByReference(ctx context.Context, referenceCode string) (ledger.Product, error) {
	var id string
	err := s.Tx().QueryRow(ctx, `SELECT id::text FROM products WHERE reference_code = $1 FOR UPDATE`, referenceCode).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Product{}, ledger.ErrProductNotFound
	}
	if err != nil {
		return ledger.Product{}, err
	}
	return s.GetProduct(ctx, id)
}

func (s *TxStore) SaveProduct(ctx context.Context, p ledger.Product) (ledger.Product, error) {
	_, err := s.Tx().Exec(ctx, `INSERT INTO products
		(id, reference_code, name, brand, category, sale_price, purchase_price, vat_rate, critical_threshold, active, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, brand = EXCLUDED.brand, category = EXCLUDED.category,
			sale_price = EXCLUDED.sale_price, purchase_price = EXCLUDED.purchase_price, vat_rate = EXCLUDED.vat_rate,
			critical_threshold = EXCLUDED.critical_threshold, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`,
		p.ID, p.ReferenceCode, p.Name, p.Brand, p.Category, p.SalePrice, p.PurchasePrice, p.VatRate,
		p.CriticalThreshold, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return ledger.Product{}, duplicate(err)
	}
	return p, nil
}

func (s *TxStore) FindLot(ctx context.Context, productID, lotNumber string) (ledger.Lot, error) {
	var id string
	err := s.Tx().QueryRow(ctx, `SELECT id::text FROM lots WHERE product_id = $1 AND lot_number = $2 FOR UPDATE`,
		productID, lotNumber).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Lot{}, ledger.ErrLotNotFound
	}
	if err != nil {
		return ledger.Lot{}, err
	}
	return s.GetLot(ctx, id)
}

// SaveLot inserts or updates the descriptive fields of a lot. Quantity is
// owned by the ledger and left untouched on update.
func (s *TxStore) SaveLot(ctx context.Context, lot ledger.Lot) (ledger.Lot, error) {
	_, err := s.Tx().Exec(ctx, `INSERT INTO lots (id, product_id, lot_number, barcode, expiry_date, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, 0, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			barcode = EXCLUDED.barcode, expiry_date = EXCLUDED.expiry_date, updated_at = EXCLUDED.updated_at`,
		lot.ID, lot.ProductID, lot.LotNumber, lot.Barcode, lot.ExpiryDate, lot.CreatedAt, lot.UpdatedAt)
	if err != nil {
		return ledger.Lot{}, duplicate(err)
	}
	return s.GetLot(ctx, lot.ID)
}

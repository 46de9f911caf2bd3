package transfers

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/platform/db"
)

// TxRepository extends the ledger transaction with transfer rows.
type TxRepository interface {
	ledger.TxRepository
	InsertTransfer(ctx context.Context, t Transfer) (Transfer, error)
	LockTransfer(ctx context.Context, id string) (Transfer, error)
	UpdateTransferStatus(ctx context.Context, id string, status Status) error
}

// Repository persists transfers in PostgreSQL.
type Repository struct {
	*ledger.Repository
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Repository: ledger.NewRepository(pool), pool: pool}
}

// WithTx executes fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

const transferColumns = `id::text, from_warehouse_id::text, to_warehouse_id::text, lot_id::text, product_id::text,
	quantity, status, barcode_scanned, COALESCE(notes, ''), COALESCE(created_by, ''), created_at, updated_at`

func scanTransfer(row pgx.Row) (Transfer, error) {
	var t Transfer
	err := row.Scan(&t.ID, &t.FromWarehouseID, &t.ToWarehouseID, &t.LotID, &t.ProductID,
		&t.Quantity, &t.Status, &t.BarcodeScanned, &t.Notes, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if db.IsNotFound(err) {
		return Transfer{}, ErrTransferNotFound
	}
	return t, err
}

// GetTransfer loads a transfer.
func (r *Repository) GetTransfer(ctx context.Context, id string) (Transfer, error) {
	return scanTransfer(r.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id))
}

// ListPending lists pending transfers into a warehouse, oldest first.
func (r *Repository) ListPending(ctx context.Context, toWarehouseID string) ([]Transfer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transferColumns+` FROM transfers
		WHERE to_warehouse_id = $1 AND status = 'PENDING' ORDER BY created_at, id`, toWarehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TxStore implements TxRepository over a pgx transaction.
type TxStore struct {
	*ledger.TxStore
}

// NewTxStore wraps tx.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{TxStore: ledger.NewTxStore(tx)}
}

func (s *TxStore) InsertTransfer(ctx context.Context, t Transfer) (Transfer, error) {
	return scanTransfer(s.Tx().QueryRow(ctx, `INSERT INTO transfers
		(id, from_warehouse_id, to_warehouse_id, lot_id, product_id, quantity, status, barcode_scanned, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11, $12)
		RETURNING `+transferColumns,
		t.ID, t.FromWarehouseID, t.ToWarehouseID, t.LotID, t.ProductID, t.Quantity, string(t.Status),
		t.BarcodeScanned, t.Notes, t.CreatedBy, t.CreatedAt, t.UpdatedAt))
}

func (s *TxStore) LockTransfer(ctx context.Context, id string) (Transfer, error) {
	return scanTransfer(s.Tx().QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE`, id))
}

func (s *TxStore) UpdateTransferStatus(ctx context.Context, id string, status Status) error {
	tag, err := s.Tx().Exec(ctx, `UPDATE transfers SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransferNotFound
	}
	return nil
}

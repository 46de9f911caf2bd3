package invoices

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/lotledger/internal/masterdata"
	"github.com/odyssey-erp/lotledger/internal/platform/db"
	"github.com/odyssey-erp/lotledger/internal/transfers"
)

// TxRepository extends the transfer transaction with invoice rows and
// customer lookups.
type TxRepository interface {
	transfers.TxRepository
	GetCustomer(ctx context.Context, id string) (masterdata.Customer, error)
	InsertInvoice(ctx context.Context, invoice Invoice) (Invoice, error)
	LockInvoice(ctx context.Context, id string) (Invoice, error)
	UpdateInvoice(ctx context.Context, invoice Invoice) error
}

// Repository persists invoices in PostgreSQL.
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

const invoiceColumns = `id::text, number, customer_id::text, document_type, items, stock_adjustments,
	COALESCE(transfer_ids, '{}'), net_total, vat_total, grand_total, COALESCE(notes, ''),
	is_cancelled, cancelled_at, COALESCE(cancelled_by, ''), COALESCE(cancel_reason, ''),
	COALESCE(provider_number, ''), COALESCE(created_by, ''), created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv         Invoice
		items       []byte
		adjustments []byte
	)
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.DocumentType, &items, &adjustments,
		&inv.TransferIDs, &inv.NetTotal, &inv.VatTotal, &inv.GrandTotal, &inv.Notes,
		&inv.IsCancelled, &inv.CancelledAt, &inv.CancelledByID, &inv.CancelReason,
		&inv.ProviderNumber, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if db.IsNotFound(err) {
		return Invoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return Invoice{}, fmt.Errorf("decode items of invoice %s: %w", inv.ID, err)
	}
	if len(adjustments) > 0 {
		if err := json.Unmarshal(adjustments, &inv.StockAdjustments); err != nil {
			return Invoice{}, fmt.Errorf("decode stock adjustments of invoice %s: %w", inv.ID, err)
		}
	}
	return inv, nil
}

// GetInvoice loads an invoice.
func (r *Repository) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
}

// SetProviderNumber stores the number assigned by the e-invoice provider.
func (r *Repository) SetProviderNumber(ctx context.Context, id, number string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET provider_number = $2, updated_at = now() WHERE id = $1`, id, number)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// TxStore implements TxRepository over a pgx transaction.
type TxStore struct {
	*transfers.TxStore
	customers *masterdata.TxStore
}

// NewTxStore wraps tx.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{TxStore: transfers.NewTxStore(tx), customers: masterdata.NewTxStore(tx)}
}

func (s *TxStore) GetCustomer(ctx context.Context, id string) (masterdata.Customer, error) {
	return s.customers.GetCustomer(ctx, id)
}

func encodeDocument(inv Invoice) (items, adjustments []byte, err error) {
	if inv.Items == nil {
		inv.Items = []Item{}
	}
	if items, err = json.Marshal(inv.Items); err != nil {
		return nil, nil, err
	}
	if inv.StockAdjustments == nil {
		inv.StockAdjustments = []StockAdjustment{}
	}
	if adjustments, err = json.Marshal(inv.StockAdjustments); err != nil {
		return nil, nil, err
	}
	return items, adjustments, nil
}

func (s *TxStore) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	items, adjustments, err := encodeDocument(inv)
	if err != nil {
		return Invoice{}, err
	}
	return scanInvoice(s.Tx().QueryRow(ctx, `INSERT INTO invoices
		(id, number, customer_id, document_type, items, stock_adjustments, transfer_ids,
		 net_total, vat_total, grand_total, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), NULLIF($12, ''), $13, $14)
		RETURNING `+invoiceColumns,
		inv.ID, inv.Number, inv.CustomerID, string(inv.DocumentType), items, adjustments, inv.TransferIDs,
		inv.NetTotal, inv.VatTotal, inv.GrandTotal, inv.Notes, inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt))
}

func (s *TxStore) LockInvoice(ctx context.Context, id string) (Invoice, error) {
	return scanInvoice(s.Tx().QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
}

func (s *TxStore) UpdateInvoice(ctx context.Context, inv Invoice) error {
	items, _, err := encodeDocument(inv)
	if err != nil {
		return err
	}
	tag, err := s.Tx().Exec(ctx, `UPDATE invoices SET
		items = $2, net_total = $3, vat_total = $4, grand_total = $5, notes = NULLIF($6, ''),
		is_cancelled = $7, cancelled_at = $8, cancelled_by = NULLIF($9, ''), cancel_reason = NULLIF($10, ''),
		updated_at = $11
		WHERE id = $1`,
		inv.ID, items, inv.NetTotal, inv.VatTotal, inv.GrandTotal, inv.Notes,
		inv.IsCancelled, inv.CancelledAt, inv.CancelledByID, inv.CancelReason, inv.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

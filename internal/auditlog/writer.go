package auditlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/lotledger/internal/platform/db"
)

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Writer persists audit entries.
type Writer struct {
	db     Execer
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter constructs a Writer.
func NewWriter(conn Execer, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{db: conn, logger: logger, now: time.Now}
}

const insertEntry = `INSERT INTO audit_logs
	(action_type, description, user_id, product_id, lot_id, warehouse_id, customer_id, transfer_id, invoice_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Append inserts the entry. A foreign-key violation is retried once with the
// offending reference cleared so the entry itself is never lost.
func (w *Writer) Append(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = w.now().UTC()
	}
	err := w.insert(ctx, entry)
	if err == nil || !db.IsCode(err, db.CodeForeignKeyViolation) {
		return err
	}
	column, ok := stripReference(&entry, db.ConstraintName(err))
	if !ok {
		return err
	}
	w.logger.Warn("audit reference dropped",
		slog.String("action", string(entry.ActionType)),
		slog.String("column", column),
	)
	if err := w.insert(ctx, entry); err != nil {
		return fmt.Errorf("auditlog: retry without %s: %w", column, err)
	}
	return nil
}

func (w *Writer) insert(ctx context.Context, e Entry) error {
	_, err := w.db.Exec(ctx, insertEntry,
		string(e.ActionType), e.Description,
		nullable(e.UserID), nullable(e.ProductID), nullable(e.LotID), nullable(e.WarehouseID),
		nullable(e.CustomerID), nullable(e.TransferID), nullable(e.InvoiceID),
		e.CreatedAt,
	)
	return err
}

// stripReference clears the reference named by a constraint such as
// audit_logs_invoice_id_fkey.
func stripReference(entry *Entry, constraint string) (string, bool) {
	for _, ref := range references {
		field := ref.field(entry)
		if *field != "" && strings.Contains(constraint, ref.column) {
			*field = ""
			return ref.column, true
		}
	}
	return "", false
}

func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

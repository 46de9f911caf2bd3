package auditlog

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	calls [][]any
	errs  []error
}

func (r *recordingExecer) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	r.calls = append(r.calls, args)
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func fkError(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint}
}

func TestAppendStoresNullForEmptyReferences(t *testing.T) {
	exec := &recordingExecer{}
	w := NewWriter(exec, nil)

	err := w.Append(context.Background(), Entry{ActionType: ActionStockAdjust, Description: "adjust", LotID: "lot-1"})
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)

	args := exec.calls[0]
	require.Equal(t, "STOCK_ADJUST", args[0])
	require.Nil(t, args[2])
	require.Equal(t, "lot-1", args[4])
	require.Nil(t, args[8])
}

func TestAppendRetriesWithoutOffendingReference(t *testing.T) {
	exec := &recordingExecer{errs: []error{fkError("audit_logs_invoice_id_fkey")}}
	w := NewWriter(exec, nil)

	err := w.Append(context.Background(), Entry{
		ActionType: ActionInvoiceCreate,
		CustomerID: "cust-1",
		InvoiceID:  "inv-1",
	})
	require.NoError(t, err)
	require.Len(t, exec.calls, 2)
	require.Equal(t, "inv-1", exec.calls[0][8])
	require.Nil(t, exec.calls[1][8])
	require.Equal(t, "cust-1", exec.calls[1][6])
}

func TestAppendRetriesOnlyOnce(t *testing.T) {
	exec := &recordingExecer{errs: []error{
		fkError("audit_logs_invoice_id_fkey"),
		fkError("audit_logs_transfer_id_fkey"),
	}}
	w := NewWriter(exec, nil)

	err := w.Append(context.Background(), Entry{ActionType: ActionInvoiceCreate, InvoiceID: "inv-1", TransferID: "tr-1"})
	require.Error(t, err)
	require.Len(t, exec.calls, 2)
}

func TestAppendReturnsOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	exec := &recordingExecer{errs: []error{boom}}
	w := NewWriter(exec, nil)

	err := w.Append(context.Background(), Entry{ActionType: ActionStockAdjust})
	require.ErrorIs(t, err, boom)
	require.Len(t, exec.calls, 1)
}

func TestAppendUnknownConstraintIsNotRetried(t *testing.T) {
	exec := &recordingExecer{errs: []error{fkError("audit_logs_something_fkey")}}
	w := NewWriter(exec, nil)

	err := w.Append(context.Background(), Entry{ActionType: ActionStockAdjust, LotID: "lot-1"})
	require.Error(t, err)
	require.Len(t, exec.calls, 1)
}

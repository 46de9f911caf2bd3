package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfUnwrapsChain(t *testing.T) {
	sentinel := NewError(KindInsufficientStock, "ledger: insufficient stock")
	wrapped := fmt.Errorf("transfer: debit source: %w", sentinel)

	require.Equal(t, KindInsufficientStock, KindOf(wrapped))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestNormalizeLotNumber(t *testing.T) {
	require.Equal(t, "LOT-İ42", NormalizeLotNumber("  lot-i42 "))
	require.Equal(t, "ABC123", NormalizeLotNumber("ａｂｃ１２３"))
}

func TestNormalizeBarcode(t *testing.T) {
	require.Equal(t, "8690000000012", NormalizeBarcode(" ８６９００００００００１２ "))
}

func TestBatchSize(t *testing.T) {
	require.Equal(t, DefaultBatchSize, BatchSize(0))
	require.Equal(t, 10, BatchSize(10))
	require.Equal(t, 5000, BatchSize(100000))
}

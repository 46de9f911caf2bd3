package ledger

import (
	"context"
	"sort"

	"github.com/odyssey-erp/lotledger/internal/shared"
)

// LotFinder is the read side used by lot selection.
type LotFinder interface {
	// FindLotsByBarcode returns exact matches ordered by creation. An empty
	// productID searches every product.
	FindLotsByBarcode(ctx context.Context, barcode, productID string) ([]Lot, error)
	ListLotsByProduct(ctx context.Context, productID string) ([]Lot, error)
}

// Selector picks the lot that satisfies a movement when none is given.
type Selector struct {
	lots LotFinder
}

// NewSelector constructs a Selector.
func NewSelector(lots LotFinder) *Selector {
	return &Selector{lots: lots}
}

// AutoSelectLot resolves a lot by barcode, falling back to FEFO order among
// the product's lots. A barcode scan is limited to productID when one is given.
func (s *Selector) AutoSelectLot(ctx context.Context, productID, barcode string) (Lot, error) {
	if code := shared.NormalizeBarcode(barcode); code != "" {
		matches, err := s.lots.FindLotsByBarcode(ctx, code, productID)
		if err != nil {
			return Lot{}, err
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	if productID == "" {
		return Lot{}, ErrLotNotFound
	}
	lots, err := s.lots.ListLotsByProduct(ctx, productID)
	if err != nil {
		return Lot{}, err
	}
	if len(lots) == 0 {
		return Lot{}, ErrLotNotFound
	}
	SortFEFO(lots)
	return lots[0], nil
}

// SortFEFO orders lots by expiry ascending with undated lots last, then by
// creation time and id.
func SortFEFO(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

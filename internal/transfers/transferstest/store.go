// Package transferstest extends the in-memory ledger store with transfers.
package transferstest

import (
	"context"
	"sort"
	"sync"

	"github.com/odyssey-erp/lotledger/internal/ledger/ledgertest"
	"github.com/odyssey-erp/lotledger/internal/transfers"
)

// Store implements transfers.RepositoryPort and transfers.TxRepository.
type Store struct {
	*ledgertest.Store

	mu        sync.Mutex
	transfers map[string]transfers.Transfer
}

// New returns an empty store.
func New() *Store {
	return &Store{Store: ledgertest.New(), transfers: make(map[string]transfers.Transfer)}
}

// Atomically snapshots ledger and transfer state around fn.
func (s *Store) Atomically(fn func() error) error {
	return s.Store.Atomically(func() error {
		s.mu.Lock()
		snap := ledgertest.CloneMap(s.transfers)
		s.mu.Unlock()
		if err := fn(); err != nil {
			s.mu.Lock()
			s.transfers = snap
			s.mu.Unlock()
			return err
		}
		return nil
	})
}

// WithTx implements transfers.RepositoryPort.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, transfers.TxRepository) error) error {
	return s.Atomically(func() error { return fn(ctx, s) })
}

// Transfers returns all stored transfers ordered by creation.
func (s *Store) Transfers() []transfers.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transfers.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// PutTransfer stores t as given.
func (s *Store) PutTransfer(t transfers.Transfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[t.ID] = t
}

func (s *Store) GetTransfer(_ context.Context, id string) (transfers.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return transfers.Transfer{}, transfers.ErrTransferNotFound
	}
	return t, nil
}

func (s *Store) ListPending(_ context.Context, toWarehouseID string) ([]transfers.Transfer, error) {
	var out []transfers.Transfer
	for _, t := range s.Transfers() {
		if t.ToWarehouseID == toWarehouseID && t.Status == transfers.StatusPending {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) InsertTransfer(_ context.Context, t transfers.Transfer) (transfers.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.CreatedAt = s.Store.Tick()
	s.transfers[t.ID] = t
	return t, nil
}

func (s *Store) LockTransfer(ctx context.Context, id string) (transfers.Transfer, error) {
	return s.GetTransfer(ctx, id)
}

func (s *Store) UpdateTransferStatus(_ context.Context, id string, status transfers.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return transfers.ErrTransferNotFound
	}
	t.Status = status
	s.transfers[id] = t
	return nil
}

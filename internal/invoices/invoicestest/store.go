// Package invoicestest extends the in-memory transfer store with customers
// and invoices.
package invoicestest

import (
	"context"
	"sync"

	"github.com/odyssey-erp/lotledger/internal/invoices"
	"github.com/odyssey-erp/lotledger/internal/ledger/ledgertest"
	"github.com/odyssey-erp/lotledger/internal/masterdata"
	"github.com/odyssey-erp/lotledger/internal/transfers/transferstest"
)

// Store implements invoices.RepositoryPort and invoices.TxRepository.
type Store struct {
	*transferstest.Store

	mu        sync.Mutex
	customers map[string]masterdata.Customer
	invoices  map[string]invoices.Invoice
}

// New returns an empty store.
func New() *Store {
	return &Store{
		Store:     transferstest.New(),
		customers: make(map[string]masterdata.Customer),
		invoices:  make(map[string]invoices.Invoice),
	}
}

// Atomically snapshots ledger, transfer and invoice state around fn.
func (s *Store) Atomically(fn func() error) error {
	return s.Store.Atomically(func() error {
		s.mu.Lock()
		snap := ledgertest.CloneMap(s.invoices)
		s.mu.Unlock()
		if err := fn(); err != nil {
			s.mu.Lock()
			s.invoices = snap
			s.mu.Unlock()
			return err
		}
		return nil
	})
}

// WithTx implements invoices.RepositoryPort.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, invoices.TxRepository) error) error {
	return s.Atomically(func() error { return fn(ctx, s) })
}

// PutCustomer stores c.
func (s *Store) PutCustomer(c masterdata.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

// Invoices returns the number of stored invoices.
func (s *Store) Invoices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

func (s *Store) GetCustomer(_ context.Context, id string) (masterdata.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return masterdata.Customer{}, masterdata.ErrCustomerNotFound
	}
	return c, nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (invoices.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return invoices.Invoice{}, invoices.ErrInvoiceNotFound
	}
	return inv, nil
}

func (s *Store) SetProviderNumber(_ context.Context, id, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return invoices.ErrInvoiceNotFound
	}
	inv.ProviderNumber = number
	s.invoices[id] = inv
	return nil
}

func (s *Store) InsertInvoice(_ context.Context, inv invoices.Invoice) (invoices.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = inv
	return inv, nil
}

func (s *Store) LockInvoice(ctx context.Context, id string) (invoices.Invoice, error) {
	return s.GetInvoice(ctx, id)
}

func (s *Store) UpdateInvoice(_ context.Context, inv invoices.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; !ok {
		return invoices.ErrInvoiceNotFound
	}
	s.invoices[inv.ID] = inv
	return nil
}

package masterdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/lotledger/internal/auditlog"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetCustomer(ctx context.Context, id string) (Customer, error)
}

// AuditPort appends audit entries.
type AuditPort interface {
	Append(ctx context.Context, entry auditlog.Entry) error
}

// Service manages warehouses, customers, products and lots.
type Service struct {
	repo            RepositoryPort
	mainWarehouseID string
	audit           AuditPort
	logger          *slog.Logger
	now             func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, mainWarehouseID string, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, mainWarehouseID: mainWarehouseID, audit: audit, logger: logger, now: time.Now}
}

// CreateWarehouse creates a MAIN or EMPLOYEE warehouse. CUSTOMER warehouses
// only come into existence through CreateCustomer.
func (s *Service) CreateWarehouse(ctx context.Context, input CreateWarehouseInput) (ledger.Warehouse, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ledger.Warehouse{}, ErrNameRequired
	}
	if !input.Kind.Valid() || input.Kind == ledger.WarehouseCustomer {
		return ledger.Warehouse{}, ErrInvalidKind
	}
	var warehouse ledger.Warehouse
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		warehouse, err = tx.InsertWarehouse(ctx, ledger.Warehouse{
			ID:        uuid.NewString(),
			Name:      name,
			Kind:      input.Kind,
			CreatedAt: s.now().UTC(),
		})
		return err
	})
	if err != nil {
		return ledger.Warehouse{}, err
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionWarehouseCreate,
		Description: fmt.Sprintf("warehouse %q (%s) created", warehouse.Name, warehouse.Kind),
		UserID:      input.ActorID,
		WarehouseID: warehouse.ID,
	})
	return warehouse, nil
}

// DeleteWarehouse removes a warehouse that holds no stock. Customer
// references are cleared and empty location rows dropped first.
func (s *Service) DeleteWarehouse(ctx context.Context, id, actorID string) error {
	if id == s.mainWarehouseID {
		return ErrMainWarehouse
	}
	var warehouse ledger.Warehouse
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		warehouse, err = tx.GetWarehouse(ctx, id)
		if err != nil {
			return err
		}
		locations, err := tx.ListWarehouseLocations(ctx, id)
		if err != nil {
			return err
		}
		for _, loc := range locations {
			if loc.Quantity > 0 {
				return fmt.Errorf("%w: lot %s holds %d", ErrWarehouseNotEmpty, loc.LotID, loc.Quantity)
			}
		}
		for _, loc := range locations {
			if err := tx.DeleteLocation(ctx, loc.ID); err != nil {
				return err
			}
		}
		if err := tx.ClearCustomerWarehouse(ctx, id); err != nil {
			return err
		}
		return tx.DeleteWarehouse(ctx, id)
	})
	if err != nil {
		return err
	}
	// The warehouse row is gone, so the description carries its identity.
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionWarehouseDelete,
		Description: fmt.Sprintf("warehouse %q (%s, %s) deleted", warehouse.Name, warehouse.Kind, warehouse.ID),
		UserID:      actorID,
	})
	return nil
}

// CreateCustomer creates the customer together with its CUSTOMER warehouse.
func (s *Service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Customer{}, ErrNameRequired
	}
	now := s.now().UTC()
	var customer Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		warehouse, err := tx.InsertWarehouse(ctx, ledger.Warehouse{
			ID:        uuid.NewString(),
			Name:      name,
			Kind:      ledger.WarehouseCustomer,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		customer, err = tx.InsertCustomer(ctx, Customer{
			ID:          uuid.NewString(),
			Name:        name,
			TaxNumber:   strings.TrimSpace(input.TaxNumber),
			TaxOffice:   strings.TrimSpace(input.TaxOffice),
			Address:     strings.TrimSpace(input.Address),
			Email:       strings.TrimSpace(input.Email),
			Phone:       strings.TrimSpace(input.Phone),
			WarehouseID: warehouse.ID,
			CreatedAt:   now,
		})
		return err
	})
	if err != nil {
		return Customer{}, err
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionCustomerCreate,
		Description: fmt.Sprintf("customer %q created", customer.Name),
		UserID:      input.ActorID,
		CustomerID:  customer.ID,
		WarehouseID: customer.WarehouseID,
	})
	return customer, nil
}

// GetCustomer loads a customer.
func (s *Service) GetCustomer(ctx context.Context, id string) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// UpsertProduct creates or updates a product by reference code.
func (s *Service) UpsertProduct(ctx context.Context, input ProductInput) (ledger.Product, error) {
	var product ledger.Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		product, err = s.UpsertProductTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return ledger.Product{}, err
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionProductUpsert,
		Description: fmt.Sprintf("product %s saved", product.ReferenceCode),
		UserID:      input.ActorID,
		ProductID:   product.ID,
	})
	return product, nil
}

// UpsertProductTx is UpsertProduct inside the caller's transaction, without
// auditing.
func (s *Service) UpsertProductTx(ctx context.Context, tx TxRepository, input ProductInput) (ledger.Product, error) {
	ref := shared.NormalizeReferenceCode(input.ReferenceCode)
	if ref == "" {
		return ledger.Product{}, ErrReferenceRequired
	}
	for _, amount := range []*decimal.Decimal{input.SalePrice, input.PurchasePrice, input.VatRate} {
		if amount != nil && amount.IsNegative() {
			return ledger.Product{}, ErrNegativeAmount
		}
	}
	now := s.now().UTC()
	product, err := tx.FindProductByReference(ctx, ref)
	switch {
	case errors.Is(err, ledger.ErrProductNotFound):
		product = ledger.Product{
			ID:            uuid.NewString(),
			ReferenceCode: ref,
			Name:          ref,
			Active:        true,
			CreatedAt:     now,
		}
	case err != nil:
		return ledger.Product{}, err
	}
	applyProductInput(&product, input)
	product.UpdatedAt = now
	return tx.SaveProduct(ctx, product)
}

func applyProductInput(p *ledger.Product, input ProductInput) {
	if name := strings.TrimSpace(input.Name); name != "" {
		p.Name = name
	}
	if brand := strings.TrimSpace(input.Brand); brand != "" {
		p.Brand = brand
	}
	if category := strings.TrimSpace(input.Category); category != "" {
		p.Category = category
	}
	if input.SalePrice != nil {
		p.SalePrice = *input.SalePrice
	}
	if input.PurchasePrice != nil {
		p.PurchasePrice = *input.PurchasePrice
	}
	if input.VatRate != nil {
		p.VatRate = *input.VatRate
	}
	if input.CriticalThreshold != nil {
		p.CriticalThreshold = *input.CriticalThreshold
	}
	if input.Active != nil {
		p.Active = *input.Active
	}
}

// UpsertLot creates or updates a lot by product and normalised lot number.
func (s *Service) UpsertLot(ctx context.Context, input LotInput) (ledger.Lot, error) {
	var lot ledger.Lot
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		lot, err = s.UpsertLotTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return ledger.Lot{}, err
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionLotUpsert,
		Description: fmt.Sprintf("lot %s saved", lot.LotNumber),
		UserID:      input.ActorID,
		ProductID:   lot.ProductID,
		LotID:       lot.ID,
	})
	return lot, nil
}

// UpsertLotTx is UpsertLot inside the caller's transaction, without auditing.
// The master quantity is never written here.
func (s *Service) UpsertLotTx(ctx context.Context, tx TxRepository, input LotInput) (ledger.Lot, error) {
	number := shared.NormalizeLotNumber(input.LotNumber)
	if number == "" {
		return ledger.Lot{}, ErrLotNumberRequired
	}
	if _, err := tx.GetProduct(ctx, input.ProductID); err != nil {
		return ledger.Lot{}, err
	}
	now := s.now().UTC()
	lot, err := tx.FindLot(ctx, input.ProductID, number)
	switch {
	case errors.Is(err, ledger.ErrLotNotFound):
		lot = ledger.Lot{ID: uuid.NewString(), ProductID: input.ProductID, LotNumber: number, CreatedAt: now}
	case err != nil:
		return ledger.Lot{}, err
	}
	if barcode := shared.NormalizeBarcode(input.Barcode); barcode != "" {
		lot.Barcode = barcode
	}
	if input.ExpiryDate != nil {
		expiry := input.ExpiryDate.UTC().Truncate(24 * time.Hour)
		lot.ExpiryDate = &expiry
	}
	lot.UpdatedAt = now
	return tx.SaveLot(ctx, lot)
}

func (s *Service) record(ctx context.Context, entry auditlog.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", slog.String("action", string(entry.ActionType)), slog.Any("error", err))
	}
}

package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/lotledger/internal/auditlog"
	"github.com/odyssey-erp/lotledger/internal/einvoice"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/masterdata"
	"github.com/odyssey-erp/lotledger/internal/transfers"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id string) (Invoice, error)
	SetProviderNumber(ctx context.Context, id, number string) error
}

// AuditPort appends audit entries.
type AuditPort interface {
	Append(ctx context.Context, entry auditlog.Entry) error
}

// Provider submits final invoices to the electronic invoicing service.
type Provider interface {
	Submit(ctx context.Context, payload einvoice.Payload) (string, error)
}

// Service issues and maintains invoice documents.
type Service struct {
	repo      RepositoryPort
	engine    *ledger.Engine
	transfers *transfers.Service
	provider  Provider
	audit     AuditPort
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. provider may be nil to skip submission.
func NewService(repo RepositoryPort, engine *ledger.Engine, transferSvc *transfers.Service, provider Provider, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		engine:    engine,
		transfers: transferSvc,
		provider:  provider,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// Create issues a document. For IRSALIYE and FATURA the stock inputs are
// applied in the same transaction as the insert; any failure rolls back all
// of it.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	if !input.DocumentType.Valid() {
		return Invoice{}, ErrInvalidDocumentType
	}
	if input.CustomerID == "" {
		return Invoice{}, ErrCustomerRequired
	}
	if len(input.StockAdjustments) > 0 && len(input.TransferIDs) > 0 {
		return Invoice{}, ErrConflictingStock
	}
	for _, adj := range input.StockAdjustments {
		if adj.Quantity <= 0 {
			return Invoice{}, ErrInvalidQuantity
		}
	}
	if err := validateItems(input.Items); err != nil {
		return Invoice{}, err
	}

	now := s.now().UTC()
	invoice := Invoice{
		ID:           uuid.NewString(),
		Number:       newNumber(now),
		CustomerID:   input.CustomerID,
		DocumentType: input.DocumentType,
		Notes:        strings.TrimSpace(input.Notes),
		CreatedBy:    input.ActorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	var customer masterdata.Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		customer, err = tx.GetCustomer(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if invoice.Items, err = resolveItems(ctx, tx, input.Items); err != nil {
			return err
		}
		invoice.NetTotal, invoice.VatTotal, invoice.GrandTotal = sumTotals(invoice.Items)

		if input.DocumentType.AffectsStock() {
			switch {
			case len(input.StockAdjustments) > 0:
				steps := make([]ledger.Step, len(input.StockAdjustments))
				for i, adj := range input.StockAdjustments {
					steps[i] = ledger.Step{WarehouseID: adj.WarehouseID, LotID: adj.LotID, Delta: -adj.Quantity}
				}
				if _, err := s.engine.ApplySteps(ctx, tx, steps); err != nil {
					return err
				}
				invoice.StockAdjustments = input.StockAdjustments
			case len(input.TransferIDs) > 0:
				if customer.WarehouseID == "" {
					return fmt.Errorf("%w: customer %s has no warehouse", transfers.ErrInvalidOwnership, customer.ID)
				}
				settled, err := s.transfers.Settle(ctx, tx, customer.WarehouseID, input.TransferIDs)
				if err != nil {
					return err
				}
				for _, t := range settled {
					invoice.TransferIDs = append(invoice.TransferIDs, t.ID)
				}
			}
		}

		invoice, err = tx.InsertInvoice(ctx, invoice)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}

	description := fmt.Sprintf("issued %s %s total %s", invoice.DocumentType, invoice.Number, invoice.GrandTotal.StringFixed(2))
	if len(invoice.TransferIDs) > 0 {
		description += fmt.Sprintf(", settled transfers %s", strings.Join(invoice.TransferIDs, ", "))
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionInvoiceCreate,
		Description: description,
		UserID:      input.ActorID,
		CustomerID:  invoice.CustomerID,
		InvoiceID:   invoice.ID,
	})

	if invoice.DocumentType == DocumentFinal && len(invoice.Items) > 0 {
		invoice.ProviderNumber = s.submit(ctx, invoice, customer)
	}
	return invoice, nil
}

// submit sends a final invoice to the provider. The invoice is already
// committed, so failures are logged and leave the provider number empty.
func (s *Service) submit(ctx context.Context, invoice Invoice, customer masterdata.Customer) string {
	if s.provider == nil {
		return ""
	}
	number, err := s.provider.Submit(ctx, buildPayload(invoice, customer))
	if err != nil {
		s.logger.Warn("e-invoice submission failed", slog.String("invoice_id", invoice.ID), slog.Any("error", err))
		return ""
	}
	if err := s.repo.SetProviderNumber(ctx, invoice.ID, number); err != nil {
		s.logger.Error("store provider number", slog.String("invoice_id", invoice.ID), slog.Any("error", err))
	}
	return number
}

// Update replaces lines and notes. FATURA and cancelled documents are
// immutable. Stock is never touched.
func (s *Service) Update(ctx context.Context, input UpdateInput) (Invoice, error) {
	if err := validateItems(input.Items); err != nil {
		return Invoice{}, err
	}
	var invoice Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		invoice, err = tx.LockInvoice(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.IsCancelled || invoice.DocumentType == DocumentFinal {
			return ErrImmutableDocument
		}
		if invoice.Items, err = resolveItems(ctx, tx, input.Items); err != nil {
			return err
		}
		invoice.NetTotal, invoice.VatTotal, invoice.GrandTotal = sumTotals(invoice.Items)
		invoice.Notes = strings.TrimSpace(input.Notes)
		invoice.UpdatedAt = s.now().UTC()
		return tx.UpdateInvoice(ctx, invoice)
	})
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionInvoiceUpdate,
		Description: fmt.Sprintf("updated %s %s", invoice.DocumentType, invoice.Number),
		UserID:      input.ActorID,
		CustomerID:  invoice.CustomerID,
		InvoiceID:   invoice.ID,
	})
	return invoice, nil
}

// Cancel marks the document cancelled. Consumed stock is not restored.
func (s *Service) Cancel(ctx context.Context, input CancelInput) (Invoice, error) {
	var invoice Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		invoice, err = tx.LockInvoice(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.IsCancelled {
			return ErrAlreadyCancelled
		}
		now := s.now().UTC()
		invoice.IsCancelled = true
		invoice.CancelledAt = &now
		invoice.CancelledByID = input.ActorID
		invoice.CancelReason = strings.TrimSpace(input.Reason)
		invoice.UpdatedAt = now
		return tx.UpdateInvoice(ctx, invoice)
	})
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionInvoiceCancel,
		Description: fmt.Sprintf("cancelled %s %s: %s", invoice.DocumentType, invoice.Number, invoice.CancelReason),
		UserID:      input.ActorID,
		CustomerID:  invoice.CustomerID,
		InvoiceID:   invoice.ID,
	})
	return invoice, nil
}

// Get returns an invoice by id.
func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func validateItems(items []ItemInput) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if (item.UnitPrice != nil && item.UnitPrice.IsNegative()) || (item.VatRate != nil && item.VatRate.IsNegative()) {
			return ErrNegativeAmount
		}
	}
	return nil
}

func resolveItems(ctx context.Context, tx ledger.TxRepository, inputs []ItemInput) ([]Item, error) {
	items := make([]Item, 0, len(inputs))
	for _, in := range inputs {
		product, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		item := Item{
			ProductID:     product.ID,
			ReferenceCode: product.ReferenceCode,
			ProductName:   product.Name,
			Quantity:      in.Quantity,
			UnitPrice:     product.SalePrice,
			VatRate:       product.VatRate,
		}
		if in.LotID != "" {
			lot, err := tx.GetLot(ctx, in.LotID)
			if err != nil {
				return nil, err
			}
			if lot.ProductID != product.ID {
				return nil, ErrLotProductMismatch
			}
			item.LotID = lot.ID
			item.LotNumber = lot.LotNumber
		}
		if in.UnitPrice != nil {
			item.UnitPrice = *in.UnitPrice
		}
		if in.VatRate != nil {
			item.VatRate = *in.VatRate
		}
		priceLine(&item)
		items = append(items, item)
	}
	return items, nil
}

func buildPayload(invoice Invoice, customer masterdata.Customer) einvoice.Payload {
	lines := make([]einvoice.Line, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		lines = append(lines, einvoice.Line{
			Name:      item.ProductName,
			LotNumber: item.LotNumber,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			VatRate:   item.VatRate,
			Net:       item.Net,
			Vat:       item.Vat,
			Total:     item.Total,
		})
	}
	return einvoice.Payload{
		InvoiceID: invoice.ID,
		IssuedAt:  invoice.CreatedAt,
		Customer: einvoice.Party{
			Name:      customer.Name,
			TaxNumber: customer.TaxNumber,
			TaxOffice: customer.TaxOffice,
			Address:   customer.Address,
			Email:     customer.Email,
			Phone:     customer.Phone,
		},
		Lines:      lines,
		NetTotal:   invoice.NetTotal,
		VatTotal:   invoice.VatTotal,
		GrandTotal: invoice.GrandTotal,
	}
}

func newNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), suffix)
}

func (s *Service) record(ctx context.Context, entry auditlog.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", slog.String("action", string(entry.ActionType)), slog.Any("error", err))
	}
}

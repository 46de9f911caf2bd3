package transfers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/lotledger/internal/auditlog"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	ledger.LotFinder
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetTransfer(ctx context.Context, id string) (Transfer, error)
	ListPending(ctx context.Context, toWarehouseID string) ([]Transfer, error)
}

// AuditPort appends audit entries.
type AuditPort interface {
	Append(ctx context.Context, entry auditlog.Entry) error
}

// Service runs the transfer workflow.
type Service struct {
	repo     RepositoryPort
	engine   *ledger.Engine
	selector *ledger.Selector
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, engine *ledger.Engine, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		engine:   engine,
		selector: ledger.NewSelector(repo),
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// Create debits the source and credits the destination in one transaction.
// Transfers into a CUSTOMER warehouse stay PENDING until settled.
func (s *Service) Create(ctx context.Context, input CreateInput) (Transfer, error) {
	if input.Quantity <= 0 {
		return Transfer{}, ErrInvalidQuantity
	}
	if input.FromWarehouseID == input.ToWarehouseID {
		return Transfer{}, ErrSameWarehouse
	}
	barcode := shared.NormalizeBarcode(input.Barcode)
	if input.LotID == "" && input.ProductID == "" && barcode == "" {
		return Transfer{}, ErrProductOrLotNeeded
	}

	lotID := input.LotID
	if lotID == "" {
		lot, err := s.selector.AutoSelectLot(ctx, input.ProductID, barcode)
		if err != nil {
			return Transfer{}, err
		}
		lotID = lot.ID
	}

	now := s.now().UTC()
	var (
		transfer Transfer
		dest     ledger.Warehouse
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lot, err := tx.GetLot(ctx, lotID)
		if err != nil {
			return err
		}
		if _, err := tx.GetWarehouse(ctx, input.FromWarehouseID); err != nil {
			return err
		}
		dest, err = tx.GetWarehouse(ctx, input.ToWarehouseID)
		if err != nil {
			return err
		}
		if _, err := s.engine.ApplySteps(ctx, tx, []ledger.Step{
			{WarehouseID: input.FromWarehouseID, LotID: lot.ID, Delta: -input.Quantity},
			{WarehouseID: input.ToWarehouseID, LotID: lot.ID, Delta: input.Quantity},
		}); err != nil {
			return err
		}
		status := StatusCompleted
		if dest.Kind == ledger.WarehouseCustomer {
			status = StatusPending
		}
		transfer, err = tx.InsertTransfer(ctx, Transfer{
			ID:              uuid.NewString(),
			FromWarehouseID: input.FromWarehouseID,
			ToWarehouseID:   input.ToWarehouseID,
			LotID:           lot.ID,
			ProductID:       lot.ProductID,
			Quantity:        input.Quantity,
			Status:          status,
			BarcodeScanned:  input.LotID == "" && barcode != "" && lot.Barcode == barcode,
			Notes:           input.Notes,
			CreatedBy:       input.ActorID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		return err
	})
	if err != nil {
		return Transfer{}, err
	}

	action := auditlog.ActionTransferIn
	if dest.Kind == ledger.WarehouseCustomer {
		action = auditlog.ActionTransferOut
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  action,
		Description: fmt.Sprintf("%d units of lot %s from %s to %s (%s)", transfer.Quantity, transfer.LotID, transfer.FromWarehouseID, transfer.ToWarehouseID, transfer.Status),
		UserID:      input.ActorID,
		ProductID:   transfer.ProductID,
		LotID:       transfer.LotID,
		WarehouseID: transfer.ToWarehouseID,
		TransferID:  transfer.ID,
	})
	return transfer, nil
}

// Reverse applies the exact inverse of a transfer. The destination must still
// hold the quantity; nothing is forced.
func (s *Service) Reverse(ctx context.Context, input ReverseInput) (Transfer, error) {
	var transfer Transfer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		transfer, err = tx.LockTransfer(ctx, input.TransferID)
		if err != nil {
			return err
		}
		if transfer.Status == StatusReversed {
			return ErrAlreadyReversed
		}
		if _, err := s.engine.ApplySteps(ctx, tx, []ledger.Step{
			{WarehouseID: transfer.ToWarehouseID, LotID: transfer.LotID, Delta: -transfer.Quantity},
			{WarehouseID: transfer.FromWarehouseID, LotID: transfer.LotID, Delta: transfer.Quantity},
		}); err != nil {
			return err
		}
		transfer.Status = StatusReversed
		transfer.UpdatedAt = s.now().UTC()
		return tx.UpdateTransferStatus(ctx, transfer.ID, StatusReversed)
	})
	if err != nil {
		return Transfer{}, err
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionTransferReverse,
		Description: fmt.Sprintf("reversed %d units of lot %s back to %s", transfer.Quantity, transfer.LotID, transfer.FromWarehouseID),
		UserID:      input.ActorID,
		ProductID:   transfer.ProductID,
		LotID:       transfer.LotID,
		WarehouseID: transfer.FromWarehouseID,
		TransferID:  transfer.ID,
	})
	return transfer, nil
}

// Settle closes out pending transfers held at a customer warehouse inside the
// caller's transaction. Ownership and status of every transfer are checked
// before any stock moves. For each transfer the customer location is debited
// and the source credited, then all are marked COMPLETED.
func (s *Service) Settle(ctx context.Context, tx TxRepository, customerWarehouseID string, ids []string) ([]Transfer, error) {
	seen := make(map[string]struct{}, len(ids))
	locked := make([]Transfer, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		transfer, err := tx.LockTransfer(ctx, id)
		if err != nil {
			return nil, err
		}
		if transfer.ToWarehouseID != customerWarehouseID {
			return nil, fmt.Errorf("%w: %s", ErrInvalidOwnership, id)
		}
		switch transfer.Status {
		case StatusReversed:
			return nil, fmt.Errorf("%w: %s", ErrAlreadyReversed, id)
		case StatusCompleted:
			return nil, fmt.Errorf("%w: %s", ErrAlreadySettled, id)
		}
		locked = append(locked, transfer)
	}

	steps := make([]ledger.Step, 0, 2*len(locked))
	for _, transfer := range locked {
		steps = append(steps,
			ledger.Step{WarehouseID: transfer.ToWarehouseID, LotID: transfer.LotID, Delta: -transfer.Quantity},
			ledger.Step{WarehouseID: transfer.FromWarehouseID, LotID: transfer.LotID, Delta: transfer.Quantity},
		)
	}
	if _, err := s.engine.ApplySteps(ctx, tx, steps); err != nil {
		return nil, err
	}
	for i := range locked {
		if err := tx.UpdateTransferStatus(ctx, locked[i].ID, StatusCompleted); err != nil {
			return nil, err
		}
		locked[i].Status = StatusCompleted
	}
	return locked, nil
}

// Get returns a transfer by id.
func (s *Service) Get(ctx context.Context, id string) (Transfer, error) {
	return s.repo.GetTransfer(ctx, id)
}

// ListPending returns pending transfers into a customer warehouse.
func (s *Service) ListPending(ctx context.Context, customerWarehouseID string) ([]Transfer, error) {
	return s.repo.ListPending(ctx, customerWarehouseID)
}

func (s *Service) record(ctx context.Context, entry auditlog.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", slog.String("action", string(entry.ActionType)), slog.Any("error", err))
	}
}

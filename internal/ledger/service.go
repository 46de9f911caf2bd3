package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/lotledger/internal/auditlog"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	LotFinder
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMainWarehouses(ctx context.Context) ([]Warehouse, error)
	ListLotIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// AuditPort appends audit entries.
type AuditPort interface {
	Append(ctx context.Context, entry auditlog.Entry) error
}

// Service implements the manual stock edit paths.
type Service struct {
	repo   RepositoryPort
	engine *Engine
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, engine *Engine, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, engine: engine, audit: audit, logger: logger}
}

// SetLotQuantity moves the difference between the requested quantity and the
// MAIN location through MAIN, then re-derives the lot master quantity.
func (s *Service) SetLotQuantity(ctx context.Context, input SetLotQuantityInput) (Lot, error) {
	if input.Quantity < 0 {
		return Lot{}, ErrInvalidQuantity
	}
	var (
		lot   Lot
		delta int64
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockLot(ctx, input.LotID)
		if err != nil {
			return err
		}
		mainLoc, err := s.engine.EnsureLocation(ctx, tx, s.engine.MainWarehouseID(), current.ID)
		if err != nil {
			return err
		}
		delta = input.Quantity - mainLoc.Quantity
		if _, err := s.engine.Adjust(ctx, tx, s.engine.MainWarehouseID(), current.ID, delta); err != nil {
			return err
		}
		lot, err = s.engine.SyncLotQuantity(ctx, tx, current.ID)
		return err
	})
	if err != nil {
		return Lot{}, err
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionLotQuantitySet,
		Description: fmt.Sprintf("lot %s set to %d (MAIN delta %+d)", lot.LotNumber, input.Quantity, delta),
		UserID:      input.ActorID,
		ProductID:   lot.ProductID,
		LotID:       lot.ID,
		WarehouseID: s.engine.MainWarehouseID(),
	})
	return lot, nil
}

// SetWarehouseStock sets a location to an absolute quantity.
func (s *Service) SetWarehouseStock(ctx context.Context, input WarehouseStockInput) (StockLocation, error) {
	if input.Quantity < 0 {
		return StockLocation{}, ErrInvalidQuantity
	}
	return s.editWarehouseStock(ctx, input, false, func(current int64) int64 {
		return input.Quantity - current
	})
}

// AddWarehouseStock increases a location by a positive quantity.
func (s *Service) AddWarehouseStock(ctx context.Context, input WarehouseStockInput) (StockLocation, error) {
	if input.Quantity <= 0 {
		return StockLocation{}, ErrInvalidQuantity
	}
	return s.editWarehouseStock(ctx, input, false, func(int64) int64 {
		return input.Quantity
	})
}

// RemoveWarehouseStock decreases a location by a positive quantity and drops
// the row once it is empty. MAIN rows are kept at zero.
func (s *Service) RemoveWarehouseStock(ctx context.Context, input WarehouseStockInput) (StockLocation, error) {
	if input.Quantity <= 0 {
		return StockLocation{}, ErrInvalidQuantity
	}
	return s.editWarehouseStock(ctx, input, true, func(int64) int64 {
		return -input.Quantity
	})
}

// editWarehouseStock applies delta at the target and the opposite delta at
// MAIN. Debits run first so a shortfall fails before any credit is written.
// When the target is MAIN the lot total changes and is re-derived.
func (s *Service) editWarehouseStock(ctx context.Context, input WarehouseStockInput, dropEmpty bool, deltaFor func(current int64) int64) (StockLocation, error) {
	var (
		result StockLocation
		lot    Lot
		delta  int64
	)
	mainID := s.engine.MainWarehouseID()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		lot, err = tx.GetLot(ctx, input.LotID)
		if err != nil {
			return err
		}
		target, err := s.engine.EnsureLocation(ctx, tx, input.WarehouseID, input.LotID)
		if err != nil {
			return err
		}
		delta = deltaFor(target.Quantity)

		var steps []Step
		targetStep := Step{WarehouseID: input.WarehouseID, LotID: input.LotID, Delta: delta}
		if input.WarehouseID == mainID {
			steps = []Step{targetStep}
		} else {
			mainStep := Step{WarehouseID: mainID, LotID: input.LotID, Delta: -delta}
			if delta > 0 {
				steps = []Step{mainStep, targetStep}
			} else {
				steps = []Step{targetStep, mainStep}
			}
		}
		locs, err := s.engine.ApplySteps(ctx, tx, steps)
		if err != nil {
			return err
		}
		for _, loc := range locs {
			if loc.WarehouseID == input.WarehouseID {
				result = loc
			}
		}
		if dropEmpty && result.Quantity == 0 && input.WarehouseID != mainID {
			if err := tx.DeleteLocation(ctx, result.ID); err != nil {
				return err
			}
		}
		if input.WarehouseID == mainID {
			lot, err = s.engine.SyncLotQuantity(ctx, tx, input.LotID)
			return err
		}
		return nil
	})
	if err != nil {
		return StockLocation{}, err
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionStockAdjust,
		Description: fmt.Sprintf("lot %s at warehouse %s adjusted by %+d to %d", lot.LotNumber, input.WarehouseID, delta, result.Quantity),
		UserID:      input.ActorID,
		ProductID:   lot.ProductID,
		LotID:       lot.ID,
		WarehouseID: input.WarehouseID,
	})
	return result, nil
}

// AutoSelectLot exposes lot selection to the HTTP layer.
func (s *Service) AutoSelectLot(ctx context.Context, productID, barcode string) (Lot, error) {
	return NewSelector(s.repo).AutoSelectLot(ctx, productID, barcode)
}

func (s *Service) record(ctx context.Context, entry auditlog.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", slog.String("action", string(entry.ActionType)), slog.Any("error", err))
	}
}

// MainWarehouseFinder lists MAIN warehouses, oldest first.
type MainWarehouseFinder interface {
	ListMainWarehouses(ctx context.Context) ([]Warehouse, error)
}

// ResolveMainWarehouse validates configuredID, or picks the oldest MAIN
// warehouse when it is empty. It is called once at startup.
func ResolveMainWarehouse(ctx context.Context, finder MainWarehouseFinder, configuredID string) (Warehouse, error) {
	mains, err := finder.ListMainWarehouses(ctx)
	if err != nil {
		return Warehouse{}, fmt.Errorf("ledger: list main warehouses: %w", err)
	}
	if configuredID == "" {
		if len(mains) == 0 {
			return Warehouse{}, ErrNoMainWarehouse
		}
		return mains[0], nil
	}
	for _, w := range mains {
		if w.ID == configuredID {
			return w, nil
		}
	}
	return Warehouse{}, fmt.Errorf("%w: %s", ErrNotMainWarehouse, configuredID)
}

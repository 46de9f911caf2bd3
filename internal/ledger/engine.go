package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/lotledger/internal/observability"
)

// Engine is the single path through which location quantities change. Every
// method runs inside the caller's transaction and locks the rows it touches.
type Engine struct {
	mainWarehouseID string
	metrics         *observability.Metrics
	logger          *slog.Logger
}

// NewEngine constructs an Engine bound to the resolved MAIN warehouse.
func NewEngine(mainWarehouseID string, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{mainWarehouseID: mainWarehouseID, metrics: metrics, logger: logger}
}

// MainWarehouseID returns the canonical MAIN warehouse.
func (e *Engine) MainWarehouseID() string {
	return e.mainWarehouseID
}

// EnsureLocation returns the locked (warehouse, lot) row, creating it at zero
// when absent.
func (e *Engine) EnsureLocation(ctx context.Context, tx TxRepository, warehouseID, lotID string) (StockLocation, error) {
	loc, err := tx.LockLocation(ctx, warehouseID, lotID)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, ErrLocationNotFound) {
		return StockLocation{}, err
	}
	if _, err := tx.GetWarehouse(ctx, warehouseID); err != nil {
		return StockLocation{}, err
	}
	if _, err := tx.GetLot(ctx, lotID); err != nil {
		return StockLocation{}, err
	}
	return tx.InsertLocation(ctx, warehouseID, lotID)
}

// Adjust adds delta to the location. A result below zero fails with
// ErrInsufficientStock and writes nothing.
func (e *Engine) Adjust(ctx context.Context, tx TxRepository, warehouseID, lotID string, delta int64) (StockLocation, error) {
	loc, err := e.EnsureLocation(ctx, tx, warehouseID, lotID)
	if err != nil {
		return StockLocation{}, err
	}
	if delta == 0 {
		return loc, nil
	}
	next := loc.Quantity + delta
	if next < 0 {
		e.metrics.StockRejected()
		return StockLocation{}, fmt.Errorf("%w: warehouse %s lot %s holds %d, needs %d",
			ErrInsufficientStock, warehouseID, lotID, loc.Quantity, -delta)
	}
	updated, err := tx.UpdateLocationQuantity(ctx, loc.ID, next)
	if err != nil {
		return StockLocation{}, err
	}
	e.metrics.StockAdjusted(delta)
	e.logger.Debug("stock adjusted",
		slog.String("warehouse_id", warehouseID),
		slog.String("lot_id", lotID),
		slog.Int64("delta", delta),
		slog.Int64("quantity", next),
	)
	return updated, nil
}

// ApplySteps applies steps in order. The first failure is returned as a
// *StepError; earlier steps are undone by rolling back the caller's transaction.
func (e *Engine) ApplySteps(ctx context.Context, tx TxRepository, steps []Step) ([]StockLocation, error) {
	out := make([]StockLocation, 0, len(steps))
	for i, step := range steps {
		loc, err := e.Adjust(ctx, tx, step.WarehouseID, step.LotID, step.Delta)
		if err != nil {
			return nil, &StepError{Index: i, Step: step, Err: err}
		}
		out = append(out, loc)
	}
	return out, nil
}

// SyncLotQuantity re-derives the lot master quantity from its locations.
func (e *Engine) SyncLotQuantity(ctx context.Context, tx TxRepository, lotID string) (Lot, error) {
	lot, err := tx.LockLot(ctx, lotID)
	if err != nil {
		return Lot{}, err
	}
	sum, err := tx.SumLotLocations(ctx, lotID)
	if err != nil {
		return Lot{}, err
	}
	if sum == lot.Quantity {
		return lot, nil
	}
	if err := tx.UpdateLotQuantity(ctx, lotID, sum); err != nil {
		return Lot{}, err
	}
	lot.Quantity = sum
	return lot, nil
}

package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/lotledger/internal/auditlog"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/masterdata"
)

// RepositoryPort opens master-data transactions, which also carry the ledger
// operations.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, masterdata.TxRepository) error) error
}

// AuditPort appends audit entries.
type AuditPort interface {
	Append(ctx context.Context, entry auditlog.Entry) error
}

// RowResult reports the outcome of one sheet line.
type RowResult struct {
	Line          int    `json:"line"`
	ReferenceCode string `json:"reference_code"`
	LotNumber     string `json:"lot_number"`
	ProductID     string `json:"product_id,omitempty"`
	LotID         string `json:"lot_id,omitempty"`
	Quantity      int64  `json:"quantity"`
	Error         string `json:"error,omitempty"`
}

// Report summarises an import.
type Report struct {
	WarehouseID string      `json:"warehouse_id"`
	Imported    int         `json:"imported"`
	Failed      int         `json:"failed"`
	Rows        []RowResult `json:"rows"`
}

// Input is a parsed sheet bound for one warehouse.
type Input struct {
	WarehouseID string
	Rows        []Row
	ActorID     string
}

// Service applies parsed rows to the ledger.
type Service struct {
	repo       RepositoryPort
	engine     *ledger.Engine
	masterdata *masterdata.Service
	audit      AuditPort
	logger     *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, engine *ledger.Engine, md *masterdata.Service, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, engine: engine, masterdata: md, audit: audit, logger: logger}
}

// Import sets the warehouse location of every row to the row quantity. Each
// row commits on its own; a failing row is reported and the rest continue.
// Import sets stock directly and applies no MAIN compensation.
func (s *Service) Import(ctx context.Context, input Input) (Report, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx masterdata.TxRepository) error {
		_, err := tx.GetWarehouse(ctx, input.WarehouseID)
		return err
	})
	if err != nil {
		return Report{}, err
	}

	report := Report{WarehouseID: input.WarehouseID, Rows: make([]RowResult, 0, len(input.Rows))}
	for _, row := range input.Rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result, err := s.importRow(ctx, input, row)
		if err != nil {
			result.Error = err.Error()
			report.Failed++
			s.logger.Warn("import row failed", slog.Int("line", row.Line), slog.String("reference_code", row.ReferenceCode), slog.Any("error", err))
		} else {
			report.Imported++
		}
		report.Rows = append(report.Rows, result)
	}
	s.logger.Info("stock import finished",
		slog.String("warehouse_id", input.WarehouseID),
		slog.Int("imported", report.Imported),
		slog.Int("failed", report.Failed))
	return report, nil
}

func (s *Service) importRow(ctx context.Context, input Input, row Row) (RowResult, error) {
	result := RowResult{Line: row.Line, ReferenceCode: row.ReferenceCode, LotNumber: row.LotNumber, Quantity: row.Quantity}
	var previous int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx masterdata.TxRepository) error {
		product, err := s.masterdata.UpsertProductTx(ctx, tx, masterdata.ProductInput{
			ReferenceCode: row.ReferenceCode,
			Name:          row.ProductName,
			SalePrice:     row.SalePrice,
			PurchasePrice: row.PurchasePrice,
			VatRate:       row.VatRate,
		})
		if err != nil {
			return err
		}
		lot, err := s.masterdata.UpsertLotTx(ctx, tx, masterdata.LotInput{
			ProductID:  product.ID,
			LotNumber:  row.LotNumber,
			Barcode:    row.Barcode,
			ExpiryDate: row.ExpiryDate,
		})
		if err != nil {
			return err
		}
		result.ProductID, result.LotID = product.ID, lot.ID

		loc, err := s.engine.EnsureLocation(ctx, tx, input.WarehouseID, lot.ID)
		if err != nil {
			return err
		}
		previous = loc.Quantity
		if _, err := s.engine.Adjust(ctx, tx, input.WarehouseID, lot.ID, row.Quantity-loc.Quantity); err != nil {
			return err
		}
		_, err = s.engine.SyncLotQuantity(ctx, tx, lot.ID)
		return err
	})
	if err != nil {
		return result, err
	}
	s.record(ctx, auditlog.Entry{
		ActionType:  auditlog.ActionStockImport,
		Description: fmt.Sprintf("line %d: lot %s set from %d to %d", row.Line, row.LotNumber, previous, row.Quantity),
		UserID:      input.ActorID,
		ProductID:   result.ProductID,
		LotID:       result.LotID,
		WarehouseID: input.WarehouseID,
	})
	return result, nil
}

func (s *Service) record(ctx context.Context, entry auditlog.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", slog.String("action", string(entry.ActionType)), slog.Any("error", err))
	}
}

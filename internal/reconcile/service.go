// Package reconcile repairs drift between lot master quantities and their
// stock locations.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/lotledger/internal/auditlog"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

// Pass names, also used for lock keys and task payloads.
const (
	PassRecalculate = "recalculate_lots"
	PassSyncMain    = "sync_main_stock"
)

// RepositoryPort exposes ledger transactions and the lot id scan.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error
	ListLotIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// Locker serialises passes across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// AuditPort appends audit entries.
type AuditPort interface {
	Append(ctx context.Context, entry auditlog.Entry) error
}

// Report summarises one pass.
type Report struct {
	Pass     string        `json:"pass"`
	Scanned  int           `json:"scanned"`
	Changed  int           `json:"changed"`
	Duration time.Duration `json:"duration"`
}

// Config tunes a pass.
type Config struct {
	BatchSize int
	Workers   int
}

// Service runs reconciliation passes.
type Service struct {
	repo   RepositoryPort
	engine *ledger.Engine
	locker Locker
	audit  AuditPort
	logger *slog.Logger
	cfg    Config
}

// NewService builds Service. A nil locker runs passes unguarded.
func NewService(repo RepositoryPort, engine *ledger.Engine, locker Locker, audit AuditPort, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BatchSize = shared.BatchSize(cfg.BatchSize)
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Service{repo: repo, engine: engine, locker: locker, audit: audit, logger: logger, cfg: cfg}
}

// RecalculateLotQuantities sets every lot's master quantity to the sum of its
// locations. Running it again changes nothing.
func (s *Service) RecalculateLotQuantities(ctx context.Context, actorID string) (Report, error) {
	return s.run(ctx, PassRecalculate, actorID, auditlog.ActionReconcileRecalc, s.recalculateLot)
}

// SyncMainWarehouseStock moves quantity that the lot total carries but no
// location holds into the MAIN location. Lots whose locations already exceed
// the total are left alone.
func (s *Service) SyncMainWarehouseStock(ctx context.Context, actorID string) (Report, error) {
	return s.run(ctx, PassSyncMain, actorID, auditlog.ActionReconcileSyncMain, s.syncLot)
}

// Run dispatches a pass by name.
func (s *Service) Run(ctx context.Context, pass, actorID string) (Report, error) {
	switch pass {
	case PassRecalculate:
		return s.RecalculateLotQuantities(ctx, actorID)
	case PassSyncMain:
		return s.SyncMainWarehouseStock(ctx, actorID)
	}
	return Report{}, shared.NewError(shared.KindValidation, fmt.Sprintf("reconcile: unknown pass %q", pass))
}

type lotFunc func(ctx context.Context, lotID string) (bool, error)

func (s *Service) run(ctx context.Context, pass, actorID string, action auditlog.Action, fn lotFunc) (Report, error) {
	report := Report{Pass: pass}
	start := time.Now()
	err := s.withLock(ctx, pass, func(ctx context.Context) error {
		var (
			scanned int64
			changed int64
			after   string
		)
		for {
			ids, err := s.repo.ListLotIDs(ctx, after, s.cfg.BatchSize)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				break
			}
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(s.cfg.Workers)
			for _, id := range ids {
				id := id
				g.Go(func() error {
					ok, err := fn(gctx, id)
					if err != nil {
						return fmt.Errorf("lot %s: %w", id, err)
					}
					if ok {
						atomic.AddInt64(&changed, 1)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			scanned += int64(len(ids))
			after = ids[len(ids)-1]
			if len(ids) < s.cfg.BatchSize {
				break
			}
		}
		report.Scanned = int(scanned)
		report.Changed = int(changed)
		return nil
	})
	report.Duration = time.Since(start)
	if err != nil {
		s.logger.Error("reconcile pass failed", slog.String("pass", pass), slog.Any("error", err))
		return report, err
	}
	s.logger.Info("reconcile pass finished",
		slog.String("pass", pass),
		slog.Int("scanned", report.Scanned),
		slog.Int("changed", report.Changed),
		slog.Duration("duration", report.Duration))
	s.record(ctx, auditlog.Entry{
		ActionType:  action,
		Description: fmt.Sprintf("%s: scanned %d lots, changed %d", pass, report.Scanned, report.Changed),
		UserID:      actorID,
	})
	return report, nil
}

func (s *Service) withLock(ctx context.Context, pass string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, shared.ReconcileLockKey(pass), fn)
}

func (s *Service) recalculateLot(ctx context.Context, lotID string) (bool, error) {
	var changed bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		before, err := tx.LockLot(ctx, lotID)
		if err != nil {
			return err
		}
		after, err := s.engine.SyncLotQuantity(ctx, tx, lotID)
		if err != nil {
			return err
		}
		changed = after.Quantity != before.Quantity
		return nil
	})
	return changed, err
}

func (s *Service) syncLot(ctx context.Context, lotID string) (bool, error) {
	var changed bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		lot, err := tx.LockLot(ctx, lotID)
		if err != nil {
			return err
		}
		sum, err := tx.SumLotLocations(ctx, lotID)
		if err != nil {
			return err
		}
		untracked := lot.Quantity - sum
		if untracked <= 0 {
			return nil
		}
		if _, err := s.engine.Adjust(ctx, tx, s.engine.MainWarehouseID(), lotID, untracked); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

func (s *Service) record(ctx context.Context, entry auditlog.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", slog.String("action", string(entry.ActionType)), slog.Any("error", err))
	}
}

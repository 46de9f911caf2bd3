package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/lotledger/internal/jobs"
	"github.com/odyssey-erp/lotledger/internal/platform/cache"
	"github.com/odyssey-erp/lotledger/internal/reconcile"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecalculateLots re-derives every lot total from its locations.
	TaskRecalculateLots = "ledger:recalculate_lots"
	// TaskSyncMainStock backfills untracked lot quantity into MAIN.
	TaskSyncMainStock = "ledger:sync_main_stock"
)

var passByTask = map[string]string{
	TaskRecalculateLots: reconcile.PassRecalculate,
	TaskSyncMainStock:   reconcile.PassSyncMain,
}

// TaskForPass returns the task type running pass.
func TaskForPass(pass string) (string, bool) {
	for task, p := range passByTask {
		if p == pass {
			return task, true
		}
	}
	return "", false
}

// ReconcilePayload identifies who asked for a pass. asynq derives the
// uniqueness key from the payload, so it must stay free of timestamps.
type ReconcilePayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

// NewReconcileTask constructs a reconciliation task of the given type.
func NewReconcileTask(taskType string, payload ReconcilePayload) (*asynq.Task, error) {
	if _, ok := passByTask[taskType]; !ok {
		return nil, fmt.Errorf("jobs: unknown reconcile task %q", taskType)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// Reconciler runs a named reconciliation pass.
type Reconciler interface {
	Run(ctx context.Context, pass, actorID string) (reconcile.Report, error)
}

// NewReconcileHandler processes both reconciliation task types. A pass that
// finds the lock taken is dropped rather than retried; the holder is doing
// the same work.
func NewReconcileHandler(rec Reconciler, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		pass, ok := passByTask[t.Type()]
		if !ok {
			return fmt.Errorf("jobs: unexpected task %q: %w", t.Type(), asynq.SkipRetry)
		}
		var payload ReconcilePayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		tracker := metrics.Track(pass)
		report, err := rec.Run(ctx, pass, payload.RequestedBy)
		if errors.Is(err, cache.ErrLocked) {
			logger.Info("reconcile pass skipped, lock held", slog.String("pass", pass))
			return tracker.Skipped(fmt.Errorf("%w: %w", err, asynq.SkipRetry))
		}
		if err != nil {
			return tracker.End(err)
		}
		metrics.ObserveReport(pass, report.Scanned, report.Changed)
		return tracker.End(nil)
	}
}

package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Maghvendra09/appointment-booking/pkg/logger"

	"github.com/robfig/cron/v3"
)

const (
	leaderLockKey = "ledger-audit:leader"
	leaderLockTTL = 5 * time.Minute
)

type runner interface {
	Run(ctx context.Context) (*Report, error)
}

// Worker runs the auditor on a cron schedule.
type Worker struct {
	auditor runner
	locker  Locker
	spec    string
	log     *logger.Logger

	cron     *cron.Cron
	runCtx   context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewWorker(auditor runner, locker Locker, spec string, log *logger.Logger) *Worker {
	if locker == nil {
		locker = LocalLocker{}
	}
	return &Worker{
		auditor: auditor,
		locker:  locker,
		spec:    spec,
		log:     log,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.runCtx, w.cancel = context.WithCancel(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(w.spec, func() { w.RunOnce(w.runCtx) }); err != nil {
		w.cancel()
		return fmt.Errorf("invalid audit schedule %q: %w", w.spec, err)
	}
	c.Start()
	w.cron = c

	w.log.Info("Ledger audit worker started", "schedule", w.spec)
	return nil
}

// Stop cancels an in-flight audit and waits for it to return.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		if w.cron != nil {
			<-w.cron.Stop().Done()
		}
		w.log.Info("Ledger audit worker stopped")
	})
}

// RunOnce audits the ledger if this instance wins the leader lock.
func (w *Worker) RunOnce(ctx context.Context) {
	acquired, token, err := w.locker.TryLock(ctx, leaderLockKey, leaderLockTTL)
	if err != nil {
		w.log.Warn("Audit leader lock attempt failed", "error", err)
		return
	}
	if !acquired {
		w.log.Info("Audit leader lock held by another instance, skipping run")
		return
	}
	defer func() {
		if err := w.locker.Unlock(context.WithoutCancel(ctx), leaderLockKey, token); err != nil {
			w.log.Warn("Failed to release audit leader lock", "error", err)
		}
	}()

	report, err := w.auditor.Run(ctx)
	if err != nil {
		w.log.Error("Ledger audit failed", "error", err)
		return
	}
	if !report.Clean() {
		w.log.Warn("Ledger audit found invariant violations", "findings", len(report.Findings))
	}
}

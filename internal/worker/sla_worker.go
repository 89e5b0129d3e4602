package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla-service/internal/domain"
	"github.com/spec-kit/ticket-sla-service/internal/service"
)

// Runner performs one SLA pass.
type Runner interface {
	Run(ctx context.Context, opts service.RunOptions) (domain.RunSummary, error)
}

// SLAWorker triggers the monitor on a fixed interval.
type SLAWorker struct {
	runner   Runner
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSLAWorker builds a worker. A zero timeout leaves runs unbounded.
func NewSLAWorker(runner Runner, interval, timeout time.Duration, logger *zap.Logger) *SLAWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SLAWorker{runner: runner, interval: interval, timeout: timeout, logger: logger}
}

// Start runs immediately and then on every tick until ctx is done.
func (w *SLAWorker) Start(ctx context.Context) {
	w.logger.Info("sla worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("sla worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *SLAWorker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	summary, err := w.runner.Run(runCtx, service.RunOptions{})
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		w.logger.Debug("sla run skipped; another instance is running")
	case err != nil:
		w.logger.Error("sla run failed", zap.String("run_id", summary.RunID), zap.Error(err))
	case !summary.Clean():
		w.logger.Warn("sla run completed with failures",
			zap.String("run_id", summary.RunID),
			zap.Int("failures", len(summary.Failures)))
	}
}

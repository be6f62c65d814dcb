package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/staypay/pkg/config"
	"github.com/fatflowers/staypay/pkg/metrics"
)

// SweepWorker periodically closes gaps between committed booking transitions
// and the ledger.
type SweepWorker struct {
	svc      *Service
	interval time.Duration
	batch    int
	metrics  *metrics.Recorder
	log      *zap.SugaredLogger
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewSweepWorker(svc *Service, cfg *config.Config, m *metrics.Recorder, log *zap.SugaredLogger) *SweepWorker {
	interval := cfg.Ledger.SweepInterval()
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepWorker{
		svc:      svc,
		interval: interval,
		batch:    cfg.Ledger.SweepBatchSize,
		metrics:  m,
		log:      log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *SweepWorker) Run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Infow("ledger sweep worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.log.Infow("ledger sweep worker stopped")
			return
		case <-w.stopCh:
			w.log.Infow("ledger sweep worker stopped")
			return
		case <-ticker.C:
			res, err := w.svc.Sweep(ctx, w.batch)
			if err != nil {
				w.log.Errorw("ledger sweep failed", "err", err)
				continue
			}
			w.metrics.LedgerRepairs(res.Resolved, res.Failed)
		}
	}
}

// Stop signals Run to return and waits for the current sweep to finish or ctx to expire.
func (w *SweepWorker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runSweepWorker(lc fx.Lifecycle, w *SweepWorker) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go w.Run(ctx)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			defer cancel()
			return w.Stop(stopCtx)
		},
	})
}

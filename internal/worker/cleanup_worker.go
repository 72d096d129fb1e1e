package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/platform"
)

// CleanupWorker runs delayed, best-effort tasks such as deleting transient
// notices and closed ticket channels. Failures are logged and never reach the
// caller.
type CleanupWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *zap.Logger
	attempts uint
	delay    time.Duration
}

// NewCleanupWorker creates a worker. attempts bounds retries per task.
func NewCleanupWorker(logger *zap.Logger, attempts uint, delay time.Duration) *CleanupWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if attempts == 0 {
		attempts = 3
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupWorker{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.Named("cleanup"),
		attempts: attempts,
		delay:    delay,
	}
}

// After runs fn once the delay elapses, detached from the caller.
func (w *CleanupWorker) After(delay time.Duration, name string, fn func(ctx context.Context) error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("cleanup task panicked", zap.String("task", name), zap.Any("panic", r))
			}
		}()

		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-w.ctx.Done():
			return
		case <-t.C:
		}

		err := retry.Do(
			func() error {
				err := fn(w.ctx)
				if errors.Is(err, platform.ErrNotFound) {
					return retry.Unrecoverable(err)
				}
				return err
			},
			retry.Attempts(w.attempts),
			retry.Delay(w.delay),
			retry.MaxDelay(10*w.delay),
			retry.Context(w.ctx),
			retry.OnRetry(func(n uint, err error) {
				w.logger.Debug("retrying cleanup task", zap.String("task", name), zap.Uint("attempt", n), zap.Error(err))
			}),
		)
		if err != nil {
			w.logger.Debug("cleanup task abandoned", zap.String("task", name), zap.Error(err))
		}
	}()
}

// Stop cancels pending tasks and waits for running ones to return.
func (w *CleanupWorker) Stop() {
	w.cancel()
	w.wg.Wait()
}

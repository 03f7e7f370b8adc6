package app

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/five82/loglens/internal/ingest"
)

// runPlain tails without a TUI. A Loop goroutine is the consumer context:
// it runs the printer and any reload.
func runPlain(ctx context.Context, ctrl *Controller, reload <-chan os.Signal, logger *zap.Logger) error {
	loop := ingest.NewLoop(nil)
	defer loop.Close()

	var err error
	if dErr := dispatchWait(loop, func() { err = ctrl.Start(loop) }); dErr != nil {
		return dErr
	}
	if err != nil {
		return err
	}
	defer func() { _ = dispatchWait(loop, ctrl.Stop) }()

	done := ctrl.Session().Done()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			var werr error
			_ = dispatchWait(loop, func() {
				if s := ctrl.Session(); s != nil {
					werr = s.Wait()
				}
			})
			return werr
		case <-reload:
			_ = loop.Dispatch(func() {
				if err := ctrl.Reload(); err != nil {
					logger.Warn("reload failed", zap.Error(err))
				}
			})
		}
	}
}

// dispatchWait runs fn on the loop and waits for it.
func dispatchWait(loop *ingest.Loop, fn func()) error {
	if err := loop.Dispatch(fn); err != nil {
		return err
	}
	return loop.Sync()
}

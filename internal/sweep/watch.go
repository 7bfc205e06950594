package sweep

import (
	"context"
	"time"

	"github.com/gxpmd/gxptrace/internal/ingestion"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// MinRerunInterval bounds how often watch mode re-runs the sweep
const MinRerunInterval = 2 * time.Second

// Watch runs a sweep, then re-runs it whenever a scanned file changes, until
// ctx is cancelled. Every outcome is passed to onResult. A fatal error from
// the initial sweep stops the watch and is returned.
func (s *Sweeper) Watch(ctx context.Context, debounce time.Duration, onResult func(*Result, error)) error {
	result, err := s.Run(ctx)
	onResult(result, err)
	if err != nil {
		return err
	}

	walker, err := ingestion.NewWalker(s.root, result.Config.Scan, s.logger)
	if err != nil {
		return err
	}
	watcher, err := ingestion.NewWatcher(walker, debounce, s.logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	limiter := rate.NewLimiter(rate.Every(MinRerunInterval), 1)
	// the initial sweep counts against the limiter
	limiter.Allow()

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-watcher.Changes():
			if !ok {
				return nil
			}
			s.logger.WithFields(logrus.Fields{
				"changed": len(batch),
				"first":   batch[0],
			}).Info("Changes detected, re-running sweep")

			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			onResult(s.Run(ctx))
		}
	}
}

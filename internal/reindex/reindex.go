package reindex

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"

	"hangarcore/pkg/indexer"
	"hangarcore/pkg/logger"
)

// Start starts the periodic reindex scheduler if a cron expression is
// configured. Returns a cancel func. The indexer itself decides on
// every tick whether a rescan is actually needed.
func Start(ctx context.Context, idx *indexer.Indexer, cronExpr string) (context.CancelFunc, error) {
	if cronExpr == "" {
		logger.Info("reindex_disabled")
		return func() {}, nil
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("reindex_invalid_cron", zap.String("cron", cronExpr))
		return nil, fmt.Errorf("invalid reindex cron expression: %s", cronExpr)
	}

	logger.Info("reindex_enabled", zap.String("cron", cronExpr))
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, idx, cronExpr)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured
// cron expression and sleeps until that time.
func runScheduler(ctx context.Context, idx *indexer.Indexer, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("reindex_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("reindex_nexttick_failed", zap.String("cron", cronExpr), zap.Error(err))
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("reindex_scheduler_stopping")
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			runOnce(ctx, idx)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				logger.Info("reindex_scheduler_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			runOnce(ctx, idx)
		case <-ctx.Done():
			logger.Info("reindex_scheduler_stopping")
			return
		}
	}
}

func runOnce(ctx context.Context, idx *indexer.Indexer) {
	if err := idx.EnsureIndexed(ctx); err != nil {
		logger.Error("reindex_run_error", zap.Error(err))
	}
}

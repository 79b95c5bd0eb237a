package executor

import (
	"context"

	"go.uber.org/zap"

	"github.com/EiffelFly/trafilatura/internal/output"
	"github.com/EiffelFly/trafilatura/internal/scheduler"
)

const (
	waybackPrefix = "https://web.archive.org/web/20/"
	waybackDomain = "archive.org"
)

// RetryArchived re-drives failed URLs exactly once through the Internet
// Archive, all under a single synthetic domain bucket, using a fresh
// sequential pass. It returns the URLs that still failed; no further retry
// happens.
func RetryArchived(ctx context.Context, failed []string, seq *Sequential, newScheduler func() *scheduler.Scheduler, counter *output.Counter, logger *zap.Logger) []string {
	if len(failed) == 0 {
		return nil
	}
	sched := newScheduler()
	for _, url := range failed {
		sched.Add(waybackDomain, waybackPrefix+url)
	}
	residual := seq.Run(ctx, sched, counter)
	logger.Info("archive retry finished",
		zap.Int("retried", len(failed)),
		zap.Int("still_failing", len(residual)),
	)
	return residual
}

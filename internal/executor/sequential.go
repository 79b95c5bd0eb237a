// Package executor drives the backoff scheduler through a fetcher, one URL at
// a time or with a bounded worker batch, and routes fetched documents to the
// result processor.
package executor

import (
	"context"

	"go.uber.org/zap"

	"github.com/EiffelFly/trafilatura/internal/metrics"
	"github.com/EiffelFly/trafilatura/internal/output"
	"github.com/EiffelFly/trafilatura/internal/pipeline"
	"github.com/EiffelFly/trafilatura/internal/scheduler"
)

// initialStall seeds the sequential pass so the stall valve trips sooner when
// only a few domains remain.
const initialStall = 3

// Sequential drains the scheduler one synchronous fetch at a time.
type Sequential struct {
	fetcher   pipeline.Fetcher
	processor *pipeline.Processor
	logger    *zap.Logger
}

// NewSequential builds a Sequential executor.
func NewSequential(fetcher pipeline.Fetcher, processor *pipeline.Processor, logger *zap.Logger) *Sequential {
	return &Sequential{
		fetcher:   fetcher,
		processor: processor,
		logger:    logger,
	}
}

// Run fetches until the scheduler empties or the context ends. URLs whose
// fetch yields no content are collected in first-failure order and returned.
func (e *Sequential) Run(ctx context.Context, sched *scheduler.Scheduler, counter *output.Counter) []string {
	sched.SetStall(initialStall)
	var errs []string
	for !sched.Empty() {
		if ctx.Err() != nil {
			return errs
		}
		url := sched.Draw(ctx)
		document, err := e.fetcher.Fetch(ctx, url)
		if err != nil || document == nil {
			e.logger.Debug("no result for URL", zap.String("url", url), zap.Error(err))
			metrics.ObserveFetch(false)
			errs = append(errs, url)
			continue
		}
		metrics.ObserveFetch(true)
		e.processor.ProcessResult(ctx, document, url, counter)
	}
	return errs
}

package executor

import (
	"context"

	"go.uber.org/zap"

	"github.com/EiffelFly/trafilatura/internal/metrics"
	"github.com/EiffelFly/trafilatura/internal/output"
	"github.com/EiffelFly/trafilatura/internal/pipeline"
	"github.com/EiffelFly/trafilatura/internal/scheduler"
)

// Concurrent drains the scheduler in batches of exactly N parallel fetches.
// Batches are barriered: the next batch is drawn only after every fetch in
// the current one has completed. All scheduler draws and all result
// processing happen on the calling goroutine; workers only fetch URLs they
// were handed, so there is no contention on scheduler or counter state.
type Concurrent struct {
	workers    int
	fetcher    pipeline.Fetcher
	processor  *pipeline.Processor
	sequential *Sequential
	logger     *zap.Logger
}

type fetchResult struct {
	url      string
	document []byte
	err      error
}

// NewConcurrent builds a Concurrent executor with the given worker count.
func NewConcurrent(workers int, fetcher pipeline.Fetcher, processor *pipeline.Processor, logger *zap.Logger) *Concurrent {
	if workers <= 0 {
		workers = 1
	}
	return &Concurrent{
		workers:    workers,
		fetcher:    fetcher,
		processor:  processor,
		sequential: NewSequential(fetcher, processor, logger),
		logger:     logger,
	}
}

// Run fetches until the scheduler empties. When fewer distinct domains remain
// than there are workers, the remainder is delegated to the sequential
// executor so a small domain set is not hammered with full concurrency.
func (e *Concurrent) Run(ctx context.Context, sched *scheduler.Scheduler, counter *output.Counter) []string {
	sched.SetStall(0)
	var errs []string
	for !sched.Empty() {
		if ctx.Err() != nil {
			return errs
		}
		if sched.Domains() < e.workers {
			return append(errs, e.sequential.Run(ctx, sched, counter)...)
		}

		batch := make([]string, 0, e.workers)
		for len(batch) < e.workers && !sched.Empty() {
			batch = append(batch, sched.Draw(ctx))
		}

		results := make(chan fetchResult, len(batch))
		for _, url := range batch {
			go func(url string) {
				document, err := e.fetcher.Fetch(ctx, url)
				results <- fetchResult{url: url, document: document, err: err}
			}(url)
		}
		for range batch {
			r := <-results
			if r.err != nil || r.document == nil {
				e.logger.Debug("no result for URL", zap.String("url", r.url), zap.Error(r.err))
				metrics.ObserveFetch(false)
				errs = append(errs, r.url)
				continue
			}
			metrics.ObserveFetch(true)
			e.processor.ProcessResult(ctx, r.document, r.url, counter)
		}
	}
	return errs
}

// Package files implements the batch pipeline over an on-disk document tree.
//
// The directory walk is lazy and restartable. Files accumulate into an
// in-memory batch; whenever the batch reaches the shard threshold it is
// dispatched to a bounded worker pool and the walk blocks until the whole
// batch drains. The shard counter stays nil until the first overflow, so
// small inputs keep a flat output directory.
package files

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/EiffelFly/trafilatura/internal/metrics"
	"github.com/EiffelFly/trafilatura/internal/output"
	"github.com/EiffelFly/trafilatura/internal/pipeline"
)

// Pipeline walks an input tree and extracts every file in bounded batches.
type Pipeline struct {
	workers   int
	shardSize int
	processor *pipeline.Processor
	logger    *zap.Logger
}

// NewPipeline builds a file batch Pipeline.
func NewPipeline(workers, shardSize int, processor *pipeline.Processor, logger *zap.Logger) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	if shardSize <= 0 {
		shardSize = 1
	}
	return &Pipeline{
		workers:   workers,
		shardSize: shardSize,
		processor: processor,
		logger:    logger,
	}
}

// Run processes every file under inputDir. Per-file failures are isolated;
// only a broken walk is returned as an error.
func (p *Pipeline) Run(ctx context.Context, inputDir string) error {
	var (
		batch   []string
		counter *output.Counter
	)
	err := filepath.WalkDir(inputDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		batch = append(batch, path)
		if len(batch) >= p.shardSize {
			if counter == nil {
				counter = output.NewCounter(0)
			}
			p.dispatch(ctx, batch, counter)
			counter.Advance(len(batch))
			batch = nil
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", inputDir, err)
	}

	// Final partial batch. The counter moves first so its shard number
	// follows the last full batch.
	counter.Advance(len(batch))
	p.dispatch(ctx, batch, counter)
	return nil
}

// dispatch runs one batch through the worker pool and waits for it to drain.
// Every task is recover-wrapped so a single malformed file cannot take down
// its siblings.
func (p *Pipeline) dispatch(ctx context.Context, batch []string, counter *output.Counter) {
	if len(batch) == 0 {
		return
	}
	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for _, path := range batch {
		path := path
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("file processing panicked",
						zap.String("path", path),
						zap.Any("panic", r),
					)
				}
			}()
			p.processor.ProcessFile(ctx, path, counter)
			return nil
		})
	}
	_ = g.Wait()
	metrics.ObserveBatch()
	p.logger.Debug("file batch finished",
		zap.Int("size", len(batch)),
		zap.Int("counter", counter.Value()),
	)
}

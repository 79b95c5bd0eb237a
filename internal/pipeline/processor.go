package pipeline

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/EiffelFly/trafilatura/internal/metrics"
	"github.com/EiffelFly/trafilatura/internal/output"
)

// Processor runs the per-document stage shared by the fetch executors and the
// file batch pipeline: optional raw backup, safety gate, extraction, and the
// output write.
type Processor struct {
	cfg       Config
	extractor Extractor
	writer    *output.Writer
	logger    *zap.Logger
}

// NewProcessor builds a Processor.
func NewProcessor(cfg Config, extractor Extractor, writer *output.Writer, logger *zap.Logger) *Processor {
	return &Processor{
		cfg:       cfg,
		extractor: extractor,
		writer:    writer,
		logger:    logger,
	}
}

// ProcessResult handles one fetched document: backup, gate, extraction, and
// write. The backup slug, when one was generated, names the output file so
// both copies match. The counter advances by one on return.
func (p *Processor) ProcessResult(ctx context.Context, document []byte, url string, counter *output.Counter) {
	var slug string
	if p.cfg.BackupDir != "" {
		slug = p.writer.ArchiveRaw(document, counter)
	}
	result, ok := p.examine(ctx, document, url)
	if ok {
		p.writer.WriteResult(result, "", nil, slug)
	}
	counter.Inc()
}

// ProcessFile handles one on-disk document for the batch pipeline. The
// counter is read for shard assignment only; the pipeline advances it per
// batch, so every file in a batch shares a shard.
func (p *Processor) ProcessFile(ctx context.Context, path string, counter *output.Counter) {
	document, err := os.ReadFile(path)
	if err != nil {
		p.logger.Warn("cannot read file, skipping", zap.String("path", path), zap.Error(err))
		return
	}
	result, ok := p.examine(ctx, document, path)
	if ok {
		p.writer.WriteResult(result, path, counter, "")
	}
}

// examine applies the safety gate and invokes the extractor. Rejections and
// extraction faults are reported and skipped, never fatal.
func (p *Processor) examine(ctx context.Context, document []byte, source string) (string, bool) {
	switch {
	case document == nil:
		p.logger.Warn("empty document", zap.String("source", source))
		metrics.ObserveRejection(metrics.ReasonNilContent)
		return "", false
	case p.cfg.MaxSize > 0 && len(document) > p.cfg.MaxSize:
		p.logger.Warn("file too large", zap.String("source", source), zap.Int("size", len(document)))
		metrics.ObserveRejection(metrics.ReasonTooLarge)
		return "", false
	case len(document) < p.cfg.MinSize:
		p.logger.Warn("file too small", zap.String("source", source), zap.Int("size", len(document)))
		metrics.ObserveRejection(metrics.ReasonTooSmall)
		return "", false
	}

	result, err := p.extract(ctx, document, source)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		p.logger.Warn("unusual document processing time, aborting", zap.String("source", source))
		metrics.ObserveRejection(metrics.ReasonTimeout)
		return "", false
	case err != nil:
		p.logger.Warn("extraction failed", zap.String("source", source), zap.Error(err))
		metrics.ObserveDocument(metrics.OutcomeFault)
		return "", false
	case result == "":
		p.logger.Debug("no extractable content", zap.String("source", source))
		metrics.ObserveDocument(metrics.OutcomeEmpty)
		return "", false
	}
	metrics.ObserveDocument(metrics.OutcomeProcessed)
	return result, true
}

// extract runs the extractor, under a per-document deadline when the timeout
// option is enabled. The deadline is local to this call and never cancels
// sibling work.
func (p *Processor) extract(ctx context.Context, document []byte, source string) (string, error) {
	if p.cfg.Timeout <= 0 {
		return p.extractor.Extract(ctx, document, source, p.cfg.Options)
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := p.extractor.Extract(deadlineCtx, document, source, p.cfg.Options)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-deadlineCtx.Done():
		return "", context.DeadlineExceeded
	case out := <-done:
		return out.result, out.err
	}
}

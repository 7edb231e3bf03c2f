package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/travel-score/internal/domain"
	"github.com/couchcryptid/travel-score/internal/observability"
)

// Extractor reads all input rows. It fails before returning any row when the
// input is unusable.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.InputRow, error)
}

// RowProcessor resolves a single location key.
type RowProcessor interface {
	Resolve(ctx context.Context, key domain.Key) (Resolution, error)
}

// BatchLoader writes the accumulated results to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, results []domain.Result) error
}

// Progress receives one tick per processed row.
type Progress interface {
	Add(n int) error
	Finish() error
}

// ProgressFunc creates a Progress once the number of rows is known.
type ProgressFunc func(total int) Progress

// Summary reports what a run did.
type Summary struct {
	Processed    int
	FromStore    int
	FromResolver int
	Skipped      int
	Results      []domain.Result
}

// Pipeline reads the input, resolves every row in order and hands the
// results to each loader.
type Pipeline struct {
	extractor Extractor
	processor RowProcessor
	loaders   []BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	progress  ProgressFunc
}

// New creates a Pipeline with the given stages and observability. Loaders run
// in order after all rows are processed.
func New(e Extractor, p RowProcessor, logger *slog.Logger, metrics *observability.Metrics, loaders ...BatchLoader) *Pipeline {
	return &Pipeline{
		extractor: e,
		processor: p,
		loaders:   loaders,
		logger:    logger,
		metrics:   metrics,
	}
}

// SetProgress installs a progress reporter factory.
func (p *Pipeline) SetProgress(fn ProgressFunc) {
	p.progress = fn
}

// Run executes one pass over the input. Any returned error is fatal: nothing
// is loaded when extraction or a row fails fatally, and a loader error stops
// the remaining loaders.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := domain.Now()
	defer func() {
		p.metrics.RunDuration.Set(domain.Since(start).Seconds())
	}()

	rows, err := p.extractor.Extract(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read input: %w", err)
	}
	p.logger.Info("input loaded", "rows", len(rows))

	summary, err := p.processRows(ctx, rows)
	if err != nil {
		return summary, err
	}

	for _, l := range p.loaders {
		if err := l.LoadBatch(ctx, summary.Results); err != nil {
			return summary, fmt.Errorf("save results: %w", err)
		}
	}
	return summary, nil
}

func (p *Pipeline) processRows(ctx context.Context, rows []domain.InputRow) (Summary, error) {
	var bar Progress
	if p.progress != nil {
		bar = p.progress(len(rows))
		defer func() {
			_ = bar.Finish()
		}()
	}

	summary := Summary{Results: make([]domain.Result, 0, len(rows))}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		res, err := p.processor.Resolve(ctx, row.Key())
		if err != nil {
			return summary, fmt.Errorf("input line %d: %w", row.Line, err)
		}
		summary.Processed++
		p.metrics.RowsProcessed.Inc()

		switch res.Outcome {
		case OutcomeStoreHit:
			summary.FromStore++
			summary.Results = append(summary.Results, res.Result)
			p.metrics.RowsResolved.WithLabelValues(string(domain.SourceStore)).Inc()
		case OutcomeResolved:
			summary.FromResolver++
			summary.Results = append(summary.Results, res.Result)
			p.metrics.RowsResolved.WithLabelValues(string(domain.SourceResolver)).Inc()
		case OutcomeSkipped:
			summary.Skipped++
			p.metrics.RowsSkipped.Inc()
		}

		if bar != nil {
			if err := bar.Add(1); err != nil {
				p.logger.Debug("progress update failed", "error", err)
			}
		}
	}
	return summary, nil
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/observability"
)

// DefaultWorkers is the number of edits run at once within a batch.
const DefaultWorkers = 4

// BatchExtractor reads up to batchSize edit requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer runs the edit a raw event asks for. It must be safe for
// concurrent use.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.EditResult, error)
}

// BatchLoader writes edit results to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, results []domain.EditResult) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds how many edits of a batch run concurrently. Values
// below 1 are ignored.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n >= 1 {
			p.workers = n
		}
	}
}

// Pipeline orchestrates the extract-edit-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
	workers     int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		workers:     DefaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ready reports whether a batch of results has been loaded.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// CheckReadiness returns nil once a batch of results has been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no edit results loaded yet")
	}
	return nil
}

// Run executes the batch edit loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "workers", p.workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	wait := newRetryDelay(200*time.Millisecond, 5*time.Second)
	for ctx.Err() == nil {
		if !p.cycle(ctx, wait) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// cycle runs one extract-edit-load round. It returns false when the pipeline
// should stop.
func (p *Pipeline) cycle(ctx context.Context, wait *retryDelay) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return wait.sleep(ctx)
	}
	if len(batch) == 0 {
		return true
	}

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	wait.reset()

	results, done := p.editAll(ctx, batch)
	if len(results) > 0 {
		if err := p.loader.LoadBatch(ctx, results); err != nil {
			p.logger.Error("load batch failed", "error", err, "batch_size", len(results))
			return wait.sleep(ctx)
		}
		p.metrics.MessagesProduced.Add(float64(len(results)))
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}

	// Offsets are committed only once the results are durable, so a load
	// failure replays the whole batch.
	for _, raw := range done {
		p.commit(ctx, raw)
	}
	return true
}

// editAll transforms every event of the batch on at most p.workers
// goroutines. Results keep the batch order. Undecodable events produce no
// result but are still returned in done so their offsets get committed.
func (p *Pipeline) editAll(ctx context.Context, batch []domain.RawEvent) (results []domain.EditResult, done []domain.RawEvent) {
	type outcome struct {
		result domain.EditResult
		ok     bool
	}
	outcomes := make([]outcome, len(batch))

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	for i := range batch {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer func() { <-sem; wg.Done() }()
			raw := batch[i]
			res, err := p.transformer.Transform(ctx, raw)
			if err != nil {
				p.logger.Warn("undecodable edit request, skipping message",
					"error", err,
					"topic", raw.Topic,
					"partition", raw.Partition,
					"offset", raw.Offset,
				)
				p.metrics.EditErrors.Inc()
				return
			}
			outcomes[i] = outcome{result: res, ok: true}
		}(i)
	}
	wg.Wait()

	results = make([]domain.EditResult, 0, len(batch))
	for _, o := range outcomes {
		if o.ok {
			results = append(results, o.result)
		}
	}
	return results, batch
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// retryDelay is an exponential backoff doubling from base up to limit.
type retryDelay struct {
	base, limit, next time.Duration
}

func newRetryDelay(base, limit time.Duration) *retryDelay {
	return &retryDelay{base: base, limit: limit, next: base}
}

func (r *retryDelay) reset() { r.next = r.base }

// sleep waits for the current delay and doubles it. It returns false if ctx
// ended first.
func (r *retryDelay) sleep(ctx context.Context) bool {
	timer := time.NewTimer(r.next)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	r.next = min(r.next*2, r.limit)
	return true
}

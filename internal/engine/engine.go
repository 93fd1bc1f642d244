package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/flatten/internal/config"
	"github.com/gyaneshwarpardhi/flatten/internal/event"
	"github.com/gyaneshwarpardhi/flatten/internal/flatten"
	"github.com/gyaneshwarpardhi/flatten/internal/metrics"
	"github.com/gyaneshwarpardhi/flatten/internal/sink"
)

var (
	// ErrQueueFull is returned when the batch's shard queue has no room.
	ErrQueueFull = errors.New("batch queue full")
	// ErrTimeout is returned when a synchronous batch is not done within
	// batch_timeout_ms.
	ErrTimeout = errors.New("batch processing timeout")
)

// BatchResult is the outcome of processing one batch.
type BatchResult struct {
	BatchID    string        `json:"batch_id"`
	Tag        string        `json:"tag"`
	Records    int           `json:"records"`
	Emitted    int           `json:"emitted"`
	DurationMs float64       `json:"duration_ms"`
	Events     []event.Event `json:"events,omitempty"`
}

// Engine runs batches through the flatten transform on a tag-sharded pool.
type Engine struct {
	transform atomic.Pointer[flatten.Transform]
	out       event.Emitter
	pool      *shardedPool[*batchWork]
	conf      config.EngineConf
	logger    *slog.Logger
}

type batchWork struct {
	batch   *event.Batch
	ack     flatten.Acker
	resultC chan *BatchResult
}

// New creates an Engine that hands output to out and starts the pool.
func New(ctx context.Context, t *flatten.Transform, out event.Emitter, conf config.EngineConf, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{out: out, conf: conf, logger: logger}
	e.transform.Store(t)

	e.pool = newShardedPool(ctx, conf.Workers, conf.QueueDepth, func(_ context.Context, w *batchWork) {
		res := e.processBatch(w)
		if w.resultC != nil {
			w.resultC <- res
		}
	})
	return e
}

// SwapTransform atomically replaces the transform (used on hot-reload).
// Batches already running finish with the old one.
func (e *Engine) SwapTransform(t *flatten.Transform) {
	e.transform.Store(t)
}

// Transform returns the transform currently in use.
func (e *Engine) Transform() *flatten.Transform {
	return e.transform.Load()
}

// ProcessSync processes a batch and waits for the result, which also carries
// the emitted events. It fails if the queue is full or the batch times out.
func (e *Engine) ProcessSync(ctx context.Context, b *event.Batch) (*BatchResult, error) {
	w := &batchWork{batch: b, resultC: make(chan *BatchResult, 1)}
	if !e.pool.Submit(b.Tag, w) {
		metrics.BatchesDropped.Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.pool.QueueCap())
	}
	metrics.BatchesEnqueued.Inc()

	timeout := time.Duration(e.conf.BatchTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = config.DefaultBatchTimeoutMs * time.Millisecond
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-w.resultC:
		return res, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProcessAsync enqueues a batch for background processing; ack, if non-nil,
// is called once the batch was consumed. Returns false if the queue is full.
func (e *Engine) ProcessAsync(b *event.Batch, ack flatten.Acker) bool {
	if !e.pool.Submit(b.Tag, &batchWork{batch: b, ack: ack}) {
		metrics.BatchesDropped.Inc()
		return false
	}
	metrics.BatchesEnqueued.Inc()
	return true
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

func (e *Engine) processBatch(w *batchWork) *BatchResult {
	start := time.Now()
	b := w.batch

	out := e.out
	var collected *sink.BufferingEmitter
	if w.resultC != nil {
		collected = sink.NewBufferingEmitter()
		out = sink.Multi(e.out, collected)
	}

	emitted := e.transform.Load().Process(b, out, flatten.AckFunc(func() {
		if w.ack != nil {
			w.ack.Ack()
		}
	}))

	res := &BatchResult{
		BatchID: b.ID,
		Tag:     b.Tag,
		Records: len(b.Entries),
		Emitted: emitted,
	}
	if collected != nil {
		res.Events = collected.Events()
	}
	res.DurationMs = float64(time.Since(start).Microseconds()) / 1000
	metrics.BatchProcessingDuration.Observe(res.DurationMs)

	e.logger.Debug("batch processed",
		"batch_id", b.ID,
		"tag", b.Tag,
		"records", res.Records,
		"emitted", res.Emitted)
	return res
}

// Shutdown drains the pool gracefully.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}

// Package worker drains transition events from the queue and hands them
// to a publisher.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/seoscore/internal/adapters/mq/queue"
	"github.com/okian/seoscore/pkg/logger"
	"github.com/okian/seoscore/pkg/metrics"
)

const (
	defaultWorkerCount = 2
	defaultRetries     = 2
	defaultBackoff     = 100 * time.Millisecond
)

// Publisher delivers one event.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Worker publishes events until its queue is drained or ctx is done.
type Worker struct {
	queue     Queue
	publisher Publisher
	cfg       config
	logger    logger.Logger
	busy      *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, p Publisher, opts ...Option) *Worker {
	cfg := newConfig(opts)
	return newWorker(q, p, cfg, &atomic.Int64{})
}

func newWorker(q Queue, p Publisher, cfg config, busy *atomic.Int64) *Worker {
	return &Worker{
		queue:     q,
		publisher: p,
		cfg:       cfg,
		logger:    cfg.logger.Named(cfg.name),
		busy:      busy,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run processes events until the queue channel closes, ctx is done or
// Stop is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, ev); err != nil {
				w.logger.Error(ctx, "event not published",
					logger.String("event_id", ev.EventID),
					logger.String("entry_id", ev.EntryID),
					logger.Error(err),
				)
			}
		}
	}
}

// Stop ends Run without waiting for the queue to drain.
func (w *Worker) Stop() {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, ev queue.Event) error {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.busy.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.busy.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var err error
	for attempt := 0; attempt <= w.cfg.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("publish %s: %w", ev.EventID, ctx.Err())
			case <-time.After(time.Duration(attempt) * w.cfg.backoff):
			}
		}
		if err = w.publisher.Publish(ctx, ev); err == nil {
			metrics.RecordEventPublished(string(ev.Type))
			return nil
		}
		metrics.RecordPublishError(string(ev.Type))
		w.logger.Warn(ctx, "publish attempt failed",
			logger.String("event_id", ev.EventID),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	return fmt.Errorf("publish %s after %d attempts: %w", ev.EventID, w.cfg.retries+1, err)
}

// Pool runs several workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	logger  logger.Logger
	busy    atomic.Int64

	startOnce sync.Once
	started   atomic.Bool
}

// NewPool creates workerCount workers. A non-positive count uses the
// default.
func NewPool(workerCount int, q Queue, p Publisher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	cfg := newConfig(opts)
	pool := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		logger:  cfg.logger.Named("worker-pool"),
	}
	for i := range pool.workers {
		wc := cfg
		wc.name = cfg.name + "-" + strconv.Itoa(i)
		pool.workers[i] = newWorker(q, p, wc, &pool.busy)
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker. Later calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.started.Store(true)
		for _, w := range p.workers {
			go w.Run(ctx)
		}
	})
}

// Shutdown closes the queue, if it can be closed, and waits for the
// workers to drain what is left. Workers still running when ctx expires
// are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		return nil
	}

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			w.Stop()
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, ctx.Err())
	}
	return nil
}

// Package service wires the repositories, scoring engine, workflow,
// appraisal aggregation and notification pipeline into one runnable unit
// consumed by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	eventqueue "github.com/okian/seoscore/internal/adapters/mq/queue"
	"github.com/okian/seoscore/internal/adapters/mq/publisher"
	workerpool "github.com/okian/seoscore/internal/adapters/mq/worker"
	"github.com/okian/seoscore/internal/adapters/repository"
	"github.com/okian/seoscore/internal/config"
	"github.com/okian/seoscore/internal/domain/appraisal"
	"github.com/okian/seoscore/internal/domain/scoring"
	"github.com/okian/seoscore/internal/domain/workflow"
	"github.com/okian/seoscore/pkg/logger"
	"github.com/okian/seoscore/pkg/metrics"
)

const (
	backendMemory = "memory"
	backendSQLite = "sqlite"

	backendInjected = "injected"
)

// Service owns the lifetime of every component.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store     repository.Store
	engine    *scoring.Engine
	workflow  *workflow.Service
	appraisal *appraisal.Service
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool
	publisher publisher.Publisher

	backend       string
	publisherKind string
	now           func() time.Time

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a store instead of opening one from the config.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.backend = backendInjected
		}
	}
}

// WithPublisher injects the event publisher instead of building one from
// the config.
func WithPublisher(p publisher.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
			s.publisherKind = backendInjected
		}
	}
}

// WithClock overrides the time source passed to the domain services.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service for cfg. A nil cfg uses defaults. Nothing is
// opened until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:    cfg,
		now:    time.Now,
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens storage and starts the notification workers. Calling Start
// on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting seoscore service...")

	// background work outlives the caller's ctx so Stop can drain the queue
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	if s.store == nil {
		store, backend, err := s.openStore(runCtx)
		if err != nil {
			cancel()
			return err
		}
		s.store, s.backend = store, backend
	}
	if s.publisher == nil {
		s.publisher, s.publisherKind = s.openPublisher()
	}

	s.engine = scoring.NewEngine(s.cfg.Scoring)
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.cfg.NotifyQueueSize),
		eventqueue.WithLogger(s.logger.Named("queue")),
	)
	s.pool = workerpool.NewPool(s.cfg.NotifyWorkerCount, s.queue, s.publisher,
		workerpool.WithLogger(s.logger),
	)
	s.workflow = workflow.New(s.store, s.store, s.engine,
		workflow.WithNotifier(s.queue),
		workflow.WithLogger(s.logger.Named("workflow")),
		workflow.WithClock(s.now),
		workflow.WithMaxListLimit(s.cfg.MaxListLimit),
	)
	s.appraisal = appraisal.NewService(s.store, s.store,
		appraisal.NewCalculator(s.cfg.Scoring, appraisal.WithClock(s.now)),
	)

	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "seoscore service started",
		logger.String("backend", s.backend),
		logger.String("publisher", s.publisherKind),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queue.Capacity()),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, string, error) {
	if s.cfg.DatabasePath == "" {
		return repository.NewMemoryStore(ctx), backendMemory, nil
	}
	store, err := repository.NewSQLiteStore(ctx, s.cfg.DatabasePath)
	if err != nil {
		return nil, "", fmt.Errorf("open sqlite store %s: %w", s.cfg.DatabasePath, err)
	}
	return store, backendSQLite, nil
}

func (s *Service) openPublisher() (publisher.Publisher, string) {
	if brokers := publisher.ParseBrokers(s.cfg.KafkaBrokers); len(brokers) > 0 {
		return publisher.NewKafkaPublisher(brokers, s.cfg.KafkaTopic), "kafka"
	}
	return publisher.NewLogPublisher(s.logger.Named("events")), "log"
}

// Stop drains queued events, then closes the publisher and the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping seoscore service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "event queue not fully drained", logger.Error(err))
	}
	s.cancel()
	if err := s.publisher.Close(); err != nil {
		s.logger.Error(ctx, "error closing publisher", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}

	// owned components are reopened on the next Start
	if s.backend != backendInjected {
		s.store = nil
	}
	if s.publisherKind != backendInjected {
		s.publisher = nil
	}
	s.started = false
	s.logger.Info(ctx, "seoscore service stopped")
}

// Workflow returns the entry lifecycle service. It is nil before Start.
func (s *Service) Workflow() *workflow.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workflow
}

// Appraisal returns the aggregation service. It is nil before Start.
func (s *Service) Appraisal() *appraisal.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appraisal
}

// Engine returns the scoring engine. It is nil before Start.
func (s *Service) Engine() *scoring.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.cfg.NotifyWorkerCount,
		"queueSize":   s.cfg.NotifyQueueSize,
	}
	if !s.started {
		return stats
	}

	entries, err := s.store.CountEntries(context.Background())
	if err != nil {
		s.logger.Error(context.Background(), "count entries failed", logger.Error(err))
	}
	queueLen := s.queue.Len()

	stats["backend"] = s.backend
	stats["publisher"] = s.publisherKind
	stats["queueLength"] = queueLen
	stats["totalEntries"] = entries
	stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateRepositoryEntries(entries)
	return stats
}

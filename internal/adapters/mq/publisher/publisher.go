// Package publisher delivers transition events to downstream consumers.
package publisher

import (
	"context"

	"github.com/okian/seoscore/internal/domain/model"
	"github.com/okian/seoscore/pkg/logger"
)

// Publisher sends one event. Implementations must be safe for concurrent
// use by the worker pool.
type Publisher interface {
	Publish(ctx context.Context, ev model.TransitionEvent) error
	Close() error
}

// LogPublisher writes events to the logger. It is used when no broker is
// configured.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher creates a publisher that logs every event at Info.
func NewLogPublisher(l logger.Logger) *LogPublisher {
	if l == nil {
		l = logger.NewNop()
	}
	return &LogPublisher{logger: l}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, ev model.TransitionEvent) error {
	fields := []logger.Field{
		logger.String("event_id", ev.EventID),
		logger.String("type", string(ev.Type)),
		logger.String("entry_id", ev.EntryID),
		logger.String("employee_id", ev.EmployeeID),
		logger.String("month", ev.Month),
		logger.String("status", string(ev.Status)),
	}
	if ev.MonthScore != nil {
		fields = append(fields, logger.Float64("month_score", *ev.MonthScore))
	}
	if ev.ActorID != "" {
		fields = append(fields, logger.String("actor_id", ev.ActorID))
	}
	p.logger.Info(ctx, "transition event", fields...)
	return nil
}

// Close implements Publisher.
func (p *LogPublisher) Close() error { return nil }

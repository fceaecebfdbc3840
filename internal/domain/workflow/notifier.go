package workflow

import (
	"context"

	"github.com/okian/seoscore/internal/domain/model"
)

// Notifier receives an event after every committed transition and mentor
// score write. Implementations must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, ev model.TransitionEvent)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev model.TransitionEvent)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, ev model.TransitionEvent) { f(ctx, ev) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.TransitionEvent) {}

package session

import (
	"context"

	"github.com/shillcollin/skymsg/core"
	"github.com/shillcollin/skymsg/obs"
)

// Resubscriber re-establishes registration auth and the event
// subscription after a failure.
type Resubscriber interface {
	Resubscribe(ctx context.Context) error
}

// DefaultResubscribeStatuses lists response codes that indicate the
// registration token or endpoint is gone server-side: 401/403 cover
// token invalidation, 404 a dropped endpoint. Other statuses are not
// fixable by re-registering and propagate immediately.
func DefaultResubscribeStatuses() []int { return []int{401, 403, 404} }

// Resilient wraps operations that call under registration auth. On a
// triggering failure it resubscribes once and retries the operation
// exactly once; a second failure of any kind propagates unmodified.
type Resilient struct {
	sub     Resubscriber
	trigger map[int]struct{}
}

// NewResilient builds a retry wrapper. With no statuses given, the
// default trigger set applies.
func NewResilient(sub Resubscriber, statuses ...int) *Resilient {
	if len(statuses) == 0 {
		statuses = DefaultResubscribeStatuses()
	}
	trigger := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		trigger[s] = struct{}{}
	}
	return &Resilient{sub: sub, trigger: trigger}
}

// Do runs op, recovering at most once via a resubscribe cycle.
func (r *Resilient) Do(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil || !r.triggers(err) {
		return err
	}
	obs.RecordResubscribe()
	if rerr := r.sub.Resubscribe(ctx); rerr != nil {
		return rerr
	}
	return op(ctx)
}

// triggers reports whether err warrants a resubscribe cycle: any
// connection-level failure, or an API status in the configured set.
func (r *Resilient) triggers(err error) bool {
	if core.IsTransport(err) {
		return true
	}
	if status, ok := core.StatusOf(err); ok {
		_, hit := r.trigger[status]
		return hit
	}
	return false
}

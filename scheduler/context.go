package scheduler

import "context"

type contextKey struct{}

// WithScheduler returns a context carrying s, for code that needs the
// scheduler it runs under without a global.
func WithScheduler(ctx context.Context, s *Scheduler) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the scheduler stored by WithScheduler.
func FromContext(ctx context.Context) (*Scheduler, bool) {
	s, ok := ctx.Value(contextKey{}).(*Scheduler)
	return s, ok
}

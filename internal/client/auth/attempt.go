package auth

import "context"

// Attempt is the per-request auth bookkeeping. It never leaves the process.
type Attempt struct {
	// Retried is set once the request has used its one refresh cycle.
	Retried bool
	// Proactive is set when that cycle happened before sending, because the
	// access token was about to expire.
	Proactive bool
}

type attemptKey struct{}

// WithAttempt returns a copy of ctx carrying a.
func WithAttempt(ctx context.Context, a Attempt) context.Context {
	return context.WithValue(ctx, attemptKey{}, a)
}

// AttemptFrom returns the Attempt carried by ctx, or the zero Attempt.
func AttemptFrom(ctx context.Context) Attempt {
	a, _ := ctx.Value(attemptKey{}).(Attempt)
	return a
}

package auth

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
)

// Clearer removes all persisted session material.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Invalidator ends the local session. It is safe to call from several
// goroutines at once; clearing an already empty store is not an error.
type Invalidator struct {
	store Clearer
	log   logging.Logger

	mu    sync.RWMutex
	hooks []func(ctx context.Context)
}

func NewInvalidator(store Clearer, log logging.Logger) *Invalidator {
	return &Invalidator{store: store, log: logging.OrNop(log).With("component", "session_invalidator")}
}

// OnInvalidate registers fn to run after every successful Invalidate.
func (i *Invalidator) OnInvalidate(fn func(ctx context.Context)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hooks = append(i.hooks, fn)
}

// Invalidate removes the access token, refresh token and cached user.
func (i *Invalidator) Invalidate(ctx context.Context) error {
	if err := i.store.Clear(ctx); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	i.log.Info(ctx, "session invalidated")

	i.mu.RLock()
	hooks := slices.Clone(i.hooks)
	i.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx)
	}
	return nil
}

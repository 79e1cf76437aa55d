package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/tokens"
	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
	"github.com/google/uuid"
)

// DefaultRefreshTimeout bounds a refresh episode when none is configured.
const DefaultRefreshTimeout = 10 * time.Second

// State is the coordinator's mode.
type State int

const (
	StateIdle State = iota
	StateRefreshing
)

func (s State) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// PairStore is the part of tokens.Store the coordinator writes through.
type PairStore interface {
	RefreshToken(ctx context.Context) (string, error)
	Save(ctx context.Context, p tokens.Pair) error
}

// SessionInvalidator clears the persisted session.
type SessionInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Stats counts coordinator activity since construction.
type Stats struct {
	// Refreshes is the number of refresh episodes started.
	Refreshes int
	// Joined is the number of callers that joined an episode already running.
	Joined int
	// Failures is the number of episodes that ended in an error.
	Failures int
}

// flight is one refresh episode. done is closed exactly once, after token and
// err are set and the coordinator is back to idle.
type flight struct {
	id      string
	done    chan struct{}
	waiters int
	token   string
	err     error
}

// Coordinator runs at most one refresh at a time and hands its outcome to
// every caller that asked for a fresh token while it was running.
type Coordinator struct {
	client      RefreshClient
	store       PairStore
	invalidator SessionInvalidator
	timeout     time.Duration
	log         logging.Logger

	mu      sync.Mutex
	state   State
	current *flight
	stats   Stats
}

// NewCoordinator wires a coordinator. A non-positive timeout means
// DefaultRefreshTimeout.
func NewCoordinator(client RefreshClient, store PairStore, invalidator SessionInvalidator, timeout time.Duration, log logging.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &Coordinator{
		client:      client,
		store:       store,
		invalidator: invalidator,
		timeout:     timeout,
		log:         logging.OrNop(log).With("component", "refresh_coordinator"),
	}
}

// ObtainFreshToken returns a newly refreshed access token. If no refresh is
// running it starts one; otherwise it waits for the running one. Giving up
// through ctx only stops this caller from waiting, the refresh itself runs
// until it finishes or hits the coordinator timeout.
func (c *Coordinator) ObtainFreshToken(ctx context.Context) (string, error) {
	// The idle check and the switch to refreshing happen under one lock, so
	// two callers can never both start a refresh.
	c.mu.Lock()
	f := c.current
	if f == nil {
		f = &flight{id: uuid.NewString(), done: make(chan struct{})}
		c.current = f
		c.state = StateRefreshing
		c.stats.Refreshes++
		go c.run(f)
	} else {
		c.stats.Joined++
	}
	f.waiters++
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.token, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// State reports whether a refresh is currently running.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns a snapshot of the episode counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Coordinator) run(f *flight) {
	log := c.log.With("episode", f.id)
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	token, err := c.refresh(ctx)
	cancel()

	if err != nil {
		// The refresh context may already be spent, so invalidation gets its own.
		ictx, icancel := context.WithTimeout(context.Background(), c.timeout)
		if ierr := c.invalidator.Invalidate(ictx); ierr != nil {
			log.Error(ictx, "session invalidation failed", "error", ierr)
		}
		icancel()
	}

	c.mu.Lock()
	c.current = nil
	c.state = StateIdle
	if err != nil {
		c.stats.Failures++
	}
	f.token, f.err = token, err
	waiters := f.waiters
	c.mu.Unlock()

	close(f.done)

	if err != nil {
		log.Warn(context.Background(), "token refresh failed", "waiters", waiters, "duration", time.Since(start), "error", err)
		return
	}
	log.Info(context.Background(), "token refreshed", "waiters", waiters, "duration", time.Since(start))
}

func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: read refresh token: %w", ErrRefreshFailed, err)
	}
	if refreshToken == "" {
		return "", &RefreshError{Kind: FailureNoToken, Err: ErrNoRefreshToken}
	}

	pair, err := c.client.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	if err := c.store.Save(ctx, pair); err != nil {
		return "", fmt.Errorf("%w: persist tokens: %w", ErrRefreshFailed, err)
	}
	return pair.Access, nil
}

package transport

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/auth"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/storage"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/tokens"
	"github.com/stretchr/testify/require"
)

// countingRefresher is an auth.RefreshClient answering with a fixed outcome.
type countingRefresher struct {
	calls atomic.Int32
	pair  tokens.Pair
	err   error
}

func (c *countingRefresher) Refresh(context.Context, string) (tokens.Pair, error) {
	c.calls.Add(1)
	return c.pair, c.err
}

// harness wires the real store, coordinator and authenticator the way the
// client facade does.
type harness struct {
	store       *tokens.Store
	invalidator *auth.Invalidator
	coord       *auth.Coordinator
	auth        *auth.Authenticator
}

func newHarness(t *testing.T, rc auth.RefreshClient, p tokens.Pair, skew time.Duration) *harness {
	t.Helper()
	store := tokens.NewStore(storage.NewMemory())
	if p != (tokens.Pair{}) {
		require.NoError(t, store.Save(context.Background(), p))
	}
	inv := auth.NewInvalidator(store, nil)
	coord := auth.NewCoordinator(rc, store, inv, 5*time.Second, nil)
	return &harness{
		store:       store,
		invalidator: inv,
		coord:       coord,
		auth:        auth.NewAuthenticator(store, coord, skew, nil),
	}
}

func (h *harness) httpClient(base http.RoundTripper, exempt ...string) *http.Client {
	return &http.Client{Transport: NewTransport(base, h.auth, nil, exempt...)}
}

func (h *harness) pair(t *testing.T) tokens.Pair {
	t.Helper()
	p, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return p
}

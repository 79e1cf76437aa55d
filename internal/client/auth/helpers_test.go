package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/storage"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/tokens"
	"github.com/stretchr/testify/require"
)

// fakeRefreshClient is a scripted RefreshClient. When release is non-nil each
// call blocks on it (or on ctx) before answering.
type fakeRefreshClient struct {
	calls   atomic.Int32
	release chan struct{}

	mu       sync.Mutex
	lastSent string
	pair     tokens.Pair
	err      error
}

func (f *fakeRefreshClient) Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastSent = refreshToken
	pair, err := f.pair, f.err
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return tokens.Pair{}, &RefreshError{Kind: FailureTransport, Err: ctx.Err()}
		}
	}
	return pair, err
}

func (f *fakeRefreshClient) sent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSent
}

// failingSaveStore wraps a tokens.Store and fails every Save.
type failingSaveStore struct {
	*tokens.Store
	err error
}

func (s failingSaveStore) Save(context.Context, tokens.Pair) error { return s.err }

func newTokenStore(t *testing.T, p tokens.Pair) *tokens.Store {
	t.Helper()
	s := tokens.NewStore(storage.NewMemory())
	if p != (tokens.Pair{}) {
		require.NoError(t, s.Save(context.Background(), p))
	}
	return s
}

func loadPair(t *testing.T, s *tokens.Store) tokens.Pair {
	t.Helper()
	p, err := s.Load(context.Background())
	require.NoError(t, err)
	return p
}

// Package tokens is the typed view of the persisted session: the access and
// refresh token pair plus an optional cached user profile.
package tokens

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/storage"
	"github.com/dmitrijs2005/tokenrefresh/internal/common"
)

// Storage keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeySessionUser  = "session_user"
)

// Pair is the unit in which credentials are written.
type Pair struct {
	Access  string
	Refresh string
}

// Store reads and writes token material through a storage.Backend. Every
// error it returns wraps common.ErrStorage.
type Store struct {
	backend storage.Backend
}

func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.backend.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return string(v), nil
}

// AccessToken returns the stored access token, or "" if there is none.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyAccessToken)
}

// RefreshToken returns the stored refresh token, or "" if there is none.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyRefreshToken)
}

// Load returns both tokens from one snapshot of the backend, so a concurrent
// Save or Clear is seen entirely or not at all. Absent tokens come back as
// empty strings.
func (s *Store) Load(ctx context.Context) (Pair, error) {
	vals, err := s.backend.GetMany(ctx, KeyAccessToken, KeyRefreshToken)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return Pair{Access: string(vals[KeyAccessToken]), Refresh: string(vals[KeyRefreshToken])}, nil
}

// Save writes p atomically. The refresh token is only replaced when p carries
// one, so a server that does not rotate refresh tokens keeps the old one valid.
func (s *Store) Save(ctx context.Context, p Pair) error {
	puts := map[string][]byte{KeyAccessToken: []byte(p.Access)}
	if p.Refresh != "" {
		puts[KeyRefreshToken] = []byte(p.Refresh)
	}
	if err := s.backend.Batch(ctx, puts, nil); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return nil
}

// User returns the cached session user blob, or nil.
func (s *Store) User(ctx context.Context) ([]byte, error) {
	v, err := s.backend.Get(ctx, KeySessionUser)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return v, nil
}

func (s *Store) SaveUser(ctx context.Context, user []byte) error {
	if err := s.backend.Set(ctx, KeySessionUser, user); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return nil
}

// Clear removes both tokens and the cached user in one batch. Clearing an
// empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	err := s.backend.Batch(ctx, nil, []string{KeyAccessToken, KeyRefreshToken, KeySessionUser})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return nil
}

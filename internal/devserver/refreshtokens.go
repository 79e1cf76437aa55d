package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/storage"
	"github.com/dmitrijs2005/tokenrefresh/internal/common"
)

var ErrUnknownRefreshToken = errors.New("unknown or expired refresh token")

const refreshKeyPrefix = "refresh:"

type refreshRecord struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshTokens keeps issued refresh tokens in a storage.Backend. Each token
// can be used once: Rotate deletes it and issues its successor in one batch.
type RefreshTokens struct {
	backend  storage.Backend
	validity time.Duration
	now      func() time.Time

	mu sync.Mutex
}

func NewRefreshTokens(backend storage.Backend, validity time.Duration) *RefreshTokens {
	return &RefreshTokens{backend: backend, validity: validity, now: time.Now}
}

func (r *RefreshTokens) record(userID string) (string, []byte, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", nil, err
	}
	b, err := json.Marshal(refreshRecord{UserID: userID, ExpiresAt: r.now().Add(r.validity)})
	if err != nil {
		return "", nil, err
	}
	return token, b, nil
}

// Create issues a new refresh token for userID.
func (r *RefreshTokens) Create(ctx context.Context, userID string) (string, error) {
	token, rec, err := r.record(userID)
	if err != nil {
		return "", err
	}
	if err := r.backend.Set(ctx, refreshKeyPrefix+token, rec); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return token, nil
}

// Rotate consumes token and returns its owner and a replacement.
func (r *RefreshTokens) Rotate(ctx context.Context, token string) (userID, next string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := refreshKeyPrefix + token
	b, err := r.backend.Get(ctx, key)
	if err != nil {
		return "", "", fmt.Errorf("load refresh token: %w", err)
	}
	if b == nil {
		return "", "", ErrUnknownRefreshToken
	}

	var rec refreshRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return "", "", fmt.Errorf("decode refresh token: %w", err)
	}
	if !r.now().Before(rec.ExpiresAt) {
		_ = r.backend.Delete(ctx, key)
		return "", "", ErrUnknownRefreshToken
	}

	next, nextRec, err := r.record(rec.UserID)
	if err != nil {
		return "", "", err
	}
	if err := r.backend.Batch(ctx, map[string][]byte{refreshKeyPrefix + next: nextRec}, []string{key}); err != nil {
		return "", "", fmt.Errorf("rotate refresh token: %w", err)
	}
	return rec.UserID, next, nil
}

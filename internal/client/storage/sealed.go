package storage

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tokenrefresh/internal/common"
	"github.com/dmitrijs2005/tokenrefresh/internal/cryptox"
)

// sealSaltKey holds the per-store argon2 salt in clear text.
const sealSaltKey = "__seal_salt"

const sealSaltSize = 16

// Sealed encrypts every value with AES-GCM before handing it to the wrapped
// Backend. The key is derived from a passphrase and a salt kept in the
// wrapped store itself, so the same passphrase reopens the same store.
type Sealed struct {
	inner Backend
	key   []byte
}

// NewSealed derives the sealing key for inner, creating and persisting a salt
// on first use.
func NewSealed(ctx context.Context, inner Backend, passphrase []byte) (*Sealed, error) {
	salt, err := inner.Get(ctx, sealSaltKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read seal salt: %w", err)
	}
	if salt == nil {
		salt = common.GenerateRandByteArray(sealSaltSize)
		if err := inner.Set(ctx, sealSaltKey, salt); err != nil {
			return nil, fmt.Errorf("failed to store seal salt: %w", err)
		}
	}

	return &Sealed{inner: inner, key: cryptox.DeriveKey(passphrase, salt)}, nil
}

func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.inner.Get(ctx, key)
	if err != nil || v == nil {
		return v, err
	}
	plain, err := cryptox.Open(s.key, v)
	if err != nil {
		return nil, fmt.Errorf("%w: token[%s]: %w", common.ErrSealedValue, key, err)
	}
	return plain, nil
}

func (s *Sealed) GetMany(ctx context.Context, keys ...string) (map[string][]byte, error) {
	vals, err := s.inner.GetMany(ctx, keys...)
	if err != nil {
		return nil, err
	}
	for k, v := range vals {
		plain, err := cryptox.Open(s.key, v)
		if err != nil {
			return nil, fmt.Errorf("%w: token[%s]: %w", common.ErrSealedValue, k, err)
		}
		vals[k] = plain
	}
	return vals, nil
}

func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := cryptox.Seal(s.key, value)
	if err != nil {
		return fmt.Errorf("failed to seal token[%s]: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *Sealed) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *Sealed) Batch(ctx context.Context, puts map[string][]byte, deletes []string) error {
	sealed := make(map[string][]byte, len(puts))
	for k, v := range puts {
		c, err := cryptox.Seal(s.key, v)
		if err != nil {
			return fmt.Errorf("failed to seal token[%s]: %w", k, err)
		}
		sealed[k] = c
	}
	return s.inner.Batch(ctx, sealed, deletes)
}

func (s *Sealed) Close() error {
	common.WipeByteArray(s.key)
	return s.inner.Close()
}

// Package storage persists the raw key/value entries behind the token store.
//
// Every backend presents the same Backend interface; which one is used is
// decided once, by Open, from the DSN scheme:
//
//	memory:                 in-process map, lost on exit
//	sqlite:<path>           modernc.org/sqlite file, goose-migrated
//	postgres://...          PostgreSQL through pgx, goose-migrated
//	redis://...             Redis through go-redis
//
// Any backend can be wrapped with Sealed to encrypt values at rest.
//
// Get returns (nil, nil) for a missing key. GetMany reads several keys as one
// snapshot and leaves missing keys out of its result. Delete of a missing key is not an
// error. Batch applies its deletes and then its puts as one atomic unit, so a
// reader never observes half of a batch.
package storage

import "context"

// Backend is a persistent key/value store for token material.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Batch(ctx context.Context, puts map[string][]byte, deletes []string) error
	Close() error
}

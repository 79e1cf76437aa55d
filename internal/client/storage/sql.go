package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/tokenrefresh/internal/dbx"
)

type sqlQueries struct {
	get    string
	upsert string
	delete string
	// placeholder renders the n-th (1-based) bind parameter.
	placeholder func(n int) string
}

var sqliteQueries = sqlQueries{
	get: `SELECT value FROM auth_tokens WHERE key = ?`,
	upsert: `
		INSERT INTO auth_tokens (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	delete:      `DELETE FROM auth_tokens WHERE key = ?`,
	placeholder: func(int) string { return "?" },
}

var postgresQueries = sqlQueries{
	get: `SELECT value FROM auth_tokens WHERE key = $1`,
	upsert: `
		INSERT INTO auth_tokens (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	delete:      `DELETE FROM auth_tokens WHERE key = $1`,
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// SQL is a Backend over an auth_tokens table. NewSQLite and NewPostgres bind
// it to the placeholder style of their dialect; the schema is created by
// the goose migrations that Open runs.
type SQL struct {
	db *sql.DB
	q  sqlQueries
}

func NewSQLite(db *sql.DB) *SQL {
	return &SQL{db: db, q: sqliteQueries}
}

func NewPostgres(db *sql.DB) *SQL {
	return &SQL{db: db, q: postgresQueries}
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.q.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token[%s]: %w", key, err)
	}
	return value, nil
}

// GetMany reads keys with a single statement, so the values come from one
// committed state of the table.
func (s *SQL) GetMany(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		marks[i] = s.q.placeholder(i + 1)
		args[i] = k
	}
	query := `SELECT key, value FROM auth_tokens WHERE key IN (` + strings.Join(marks, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	return out, nil
}

func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.q.upsert, key, value); err != nil {
		return fmt.Errorf("failed to set token[%s]: %w", key, err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.q.delete, key); err != nil {
		return fmt.Errorf("failed to delete token[%s]: %w", key, err)
	}
	return nil
}

// Batch runs all deletes and puts in one transaction. Keys are applied in
// sorted order so lock acquisition is deterministic.
func (s *SQL) Batch(ctx context.Context, puts map[string][]byte, deletes []string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, key := range deletes {
			if _, err := tx.ExecContext(ctx, s.q.delete, key); err != nil {
				return fmt.Errorf("failed to delete token[%s]: %w", key, err)
			}
		}
		for _, key := range slices.Sorted(maps.Keys(puts)) {
			if _, err := tx.ExecContext(ctx, s.q.upsert, key, puts[key]); err != nil {
				return fmt.Errorf("failed to set token[%s]: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply token batch: %w", err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

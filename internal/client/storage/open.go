package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/storage/migrations"
	"github.com/dmitrijs2005/tokenrefresh/internal/common"
	"github.com/dmitrijs2005/tokenrefresh/internal/filex"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// Options tune Open.
type Options struct {
	// Passphrase, when non-empty, wraps the backend with Sealed.
	Passphrase string
	// RedisPrefix overrides DefaultRedisPrefix.
	RedisPrefix string
}

// Kind reports which backend a DSN selects, or "" if none does.
func Kind(dsn string) string {
	switch {
	case dsn == "memory" || strings.HasPrefix(dsn, "memory:"):
		return "memory"
	case strings.HasPrefix(dsn, "sqlite:"):
		return "sqlite"
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return "redis"
	default:
		return ""
	}
}

// Open selects and initialises the backend for dsn. It is meant to be called
// once at startup; the returned Backend is then shared by all callers.
func Open(ctx context.Context, dsn string, opts Options) (Backend, error) {
	var (
		b   Backend
		err error
	)

	switch Kind(dsn) {
	case "memory":
		b = NewMemory()
	case "sqlite":
		b, err = openSQLite(ctx, sqlitePath(dsn))
	case "postgres":
		b, err = openPostgres(ctx, dsn)
	case "redis":
		b, err = openRedis(ctx, dsn, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedDSN, dsn)
	}
	if err != nil {
		return nil, err
	}

	if opts.Passphrase == "" {
		return b, nil
	}
	sealed, err := NewSealed(ctx, b, []byte(opts.Passphrase))
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return sealed, nil
}

func sqlitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "sqlite:")
	return strings.TrimPrefix(p, "//")
}

func openSQLite(ctx context.Context, path string) (*SQL, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if _, err := filex.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("failed to prepare sqlite store: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// One connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db, goose.DialectSQLite3, "sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLite(db), nil
}

func openPostgres(ctx context.Context, dsn string) (*SQL, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach postgres store: %w", err)
	}

	if err := RunMigrations(ctx, db, goose.DialectPostgres, "postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgres(db), nil
}

func openRedis(ctx context.Context, dsn, prefix string) (*Redis, error) {
	ropts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis dsn: %w", err)
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis store: %w", err)
	}

	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return NewRedis(client, prefix), nil
}

// RunMigrations applies the embedded migrations found under dir for the given
// goose dialect. Already-applied migrations are skipped.
func RunMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := fs.Sub(migrations.Migrations, dir)
	if err != nil {
		return fmt.Errorf("failed to locate %s migrations: %w", dir, err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to init %s migrations: %w", dir, err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run %s migrations: %w", dir, err)
	}
	return nil
}

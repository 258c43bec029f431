package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sharetube/camwall/internal/repository/store"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB,
	rev   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS kv_rev ON kv (rev);
`

// repo is a Durable Store in a SQLite file shared by processes on one host.
// Deletes leave a NULL tombstone so that pollers see them through the revision.
type repo struct {
	db           *sql.DB
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewRepo(ctx context.Context, path string, pollInterval time.Duration, logger *slog.Logger) (*repo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &repo{
		db:           db,
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

func (r *repo) Close() error {
	return r.db.Close()
}

func (r *repo) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if value == nil {
		return nil, store.ErrNotFound
	}

	return value, nil
}

func (r *repo) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	if err := r.upsert(ctx, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

func (r *repo) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := r.upsert(ctx, key, nil); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}

	return nil
}

func (r *repo) upsert(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, rev)
		VALUES (?, ?, (SELECT COALESCE(MAX(rev), 0) + 1 FROM kv))
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, rev = excluded.rev`,
		key, value,
	)
	return err
}

func (r *repo) currentRev(ctx context.Context) (int64, error) {
	var rev int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(rev), 0) FROM kv`).Scan(&rev)
	return rev, err
}

// Watch polls the revision column and reports every key written after the call.
func (r *repo) Watch(ctx context.Context, keys ...string) (<-chan store.Change, error) {
	since, err := r.currentRev(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read revision: %w", err)
	}

	query := `SELECT key, rev FROM kv WHERE rev > ?`
	args := []any{0}
	if len(keys) > 0 {
		query += ` AND key IN (?` + strings.Repeat(`, ?`, len(keys)-1) + `)`
		for _, key := range keys {
			args = append(args, key)
		}
	}
	query += ` ORDER BY rev`

	out := make(chan store.Change, 16)
	go func() {
		defer close(out)

		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			args[0] = since
			changes, last, err := r.changedSince(ctx, query, args)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Warn("failed to poll store changes", "error", err)
				}
				continue
			}
			if last > since {
				since = last
			}

			for _, change := range changes {
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (r *repo) changedSince(ctx context.Context, query string, args []any) ([]store.Change, int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		changes []store.Change
		last    int64
	)
	for rows.Next() {
		var (
			key string
			rev int64
		)
		if err := rows.Scan(&key, &rev); err != nil {
			return nil, 0, err
		}
		changes = append(changes, store.Change{Key: key})
		last = rev
	}

	return changes, last, rows.Err()
}

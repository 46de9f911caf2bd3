package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationLockKey serialises concurrent migrators through an advisory lock.
const migrationLockKey = 7462839

const createSchemaMigrations = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var (
	// ErrMigrationLocked reports another migrator holding the advisory lock.
	ErrMigrationLocked = errors.New("platform/db: another migrator is running")
	// ErrChecksumMismatch reports an applied migration whose file changed.
	ErrChecksumMismatch = errors.New("platform/db: migration checksum mismatch")
)

// Migration is one versioned SQL file.
type Migration struct {
	Version  string
	Filename string
	Checksum string
	SQL      string
}

// LoadMigrations reads NNNN_description.sql files from fsys in version order.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("platform/db: read migrations: %w", err)
	}
	seen := make(map[string]string)
	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		version, _, ok := strings.Cut(entry.Name(), "_")
		if !ok || version == "" {
			return nil, fmt.Errorf("platform/db: migration %s does not match NNNN_description.sql", entry.Name())
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("platform/db: duplicate migration version %s (%s, %s)", version, prev, entry.Name())
		}
		seen[version] = entry.Name()
		body, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("platform/db: read %s: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(body)
		out = append(out, Migration{
			Version:  version,
			Filename: entry.Name(),
			Checksum: hex.EncodeToString(sum[:]),
			SQL:      string(body),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// Migrate applies every pending migration, each in its own transaction.
// Already applied files are skipped when their checksum still matches.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, logger *slog.Logger) (int, error) {
	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return 0, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("platform/db: acquire: %w", err)
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, migrationLockKey).Scan(&locked); err != nil {
		return 0, fmt.Errorf("platform/db: advisory lock: %w", err)
	}
	if !locked {
		return 0, ErrMigrationLocked
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockKey)
	}()

	if _, err := conn.Exec(ctx, createSchemaMigrations); err != nil {
		return 0, fmt.Errorf("platform/db: create schema_migrations: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		var existing string
		err := conn.QueryRow(ctx, `SELECT checksum FROM schema_migrations WHERE version = $1`, m.Version).Scan(&existing)
		switch {
		case err == nil && existing == m.Checksum:
			logger.Debug("migration skipped", slog.String("file", m.Filename))
			continue
		case err == nil:
			return applied, fmt.Errorf("%w: %s", ErrChecksumMismatch, m.Filename)
		case !errors.Is(err, pgx.ErrNoRows):
			return applied, fmt.Errorf("platform/db: lookup %s: %w", m.Filename, err)
		}

		if err := applyMigration(ctx, conn.Conn(), m); err != nil {
			return applied, err
		}
		applied++
		logger.Info("migration applied", slog.String("file", m.Filename))
	}
	return applied, nil
}

func applyMigration(ctx context.Context, conn *pgx.Conn, m Migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("platform/db: begin %s: %w", m.Filename, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("platform/db: execute %s: %w", m.Filename, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)`,
		m.Version, m.Filename, m.Checksum); err != nil {
		return fmt.Errorf("platform/db: record %s: %w", m.Filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit %s: %w", m.Filename, err)
	}
	return nil
}

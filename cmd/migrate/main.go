package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const migrationLockID = 7462839

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "migrations", "directory containing NNN_description.sql files")
	flag.Parse()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		fatal("connect", errors.New("DATABASE_URL is not set"))
	}

	ctx := context.Background()
	pool, err := connectDB(ctx, url)
	if err != nil {
		fatal("connect", err)
	}
	defer pool.Close()

	conn, err := acquireLock(ctx, pool)
	if err != nil {
		fatal("lock", err)
	}
	defer conn.Release()

	if err := setupSchemaMigrations(ctx, pool); err != nil {
		fatal("setup", err)
	}

	files, err := discoverMigrations(*dir)
	if err != nil {
		fatal("discover", err)
	}
	for _, filename := range files {
		if err := applyMigration(ctx, pool, *dir, filename); err != nil {
			fatal("apply", err)
		}
	}

	slog.Info("all migrations processed", "count", len(files))
}

func fatal(step string, err error) {
	slog.Error("migration failed", "step", step, "error", err)
	os.Exit(1)
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// acquireLock holds a session advisory lock for the life of the returned connection.
func acquireLock(ctx context.Context, pool *pgxpool.Pool) (*pgxpool.Conn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockID).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("query advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, errors.New("another migrator is currently running")
	}
	return conn, nil
}

func setupSchemaMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func discoverMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var filenames []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := extractVersion(entry.Name())
		if err != nil {
			return nil, err
		}
		if seen[version] {
			return nil, fmt.Errorf("duplicate version %s", version)
		}
		seen[version] = true
		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)
	return filenames, nil
}

func extractVersion(filename string) (string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid migration filename %s: expected NNN_description.sql", filename)
	}
	return parts[0], nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, dir, filename string) error {
	version, err := extractVersion(filename)
	if err != nil {
		return err
	}
	sqlBytes, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	sum := sha256.Sum256(sqlBytes)
	checksum := hex.EncodeToString(sum[:])

	var existing string
	err = pool.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", version).Scan(&existing)
	switch {
	case err == nil:
		if existing != checksum {
			return fmt.Errorf("checksum mismatch for %s: recorded %s, file %s", filename, existing, checksum)
		}
		slog.Info("skip", "file", filename)
		return nil
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return fmt.Errorf("query schema_migrations for %s: %w", filename, err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for %s: %w", filename, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("execute %s: %w", filename, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		version, filename, checksum,
	); err != nil {
		return fmt.Errorf("record %s: %w", filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", filename, err)
	}

	slog.Info("applied", "file", filename)
	return nil
}

package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vocalis/internal/config"
)

// Record is a stored client public key with its validity window.
type Record struct {
	Owner        string
	PublicKeyPEM string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the record's validity window has passed.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Store manages client key persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const keySchema = `
CREATE TABLE IF NOT EXISTS client_keys (
    owner TEXT PRIMARY KEY,
    public_key_pem TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_client_keys_expires ON client_keys (expires_at);
`

// Open initializes or connects to the client key database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.KeyDir, "client_keys.db"))
}

// OpenPath initializes or connects to a client key database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(keySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create key schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert replaces the owner's key record inside a single transaction. All
// expired records are purged first so the table only ever carries live keys.
func (s *Store) Upsert(ctx context.Context, owner, publicKeyPEM string, ttl time.Duration) (*Record, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin key tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM client_keys WHERE expires_at <= ?`,
		now.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("purge expired keys: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO client_keys (owner, public_key_pem, created_at, updated_at, expires_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(owner) DO UPDATE SET
             public_key_pem = excluded.public_key_pem,
             updated_at = excluded.updated_at,
             expires_at = excluded.expires_at`,
		owner,
		publicKeyPEM,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		expires.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("upsert key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit key tx: %w", err)
	}

	return s.Get(ctx, owner)
}

// Get returns the owner's live key record, or nil when none exists or the
// stored record has expired.
func (s *Store) Get(ctx context.Context, owner string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT owner, public_key_pem, created_at, updated_at, expires_at
         FROM client_keys WHERE owner = ?`,
		owner,
	)

	var (
		record     Record
		createdRaw string
		updatedRaw string
		expiresRaw string
	)
	err := row.Scan(&record.Owner, &record.PublicKeyPEM, &createdRaw, &updatedRaw, &expiresRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}

	if record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if record.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedRaw); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if record.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresRaw); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	if record.Expired(time.Now().UTC()) {
		return nil, nil
	}
	return &record, nil
}

// DeleteExpired removes all expired key records.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM client_keys WHERE expires_at <= ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired keys: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes the owner's key record.
func (s *Store) Remove(ctx context.Context, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM client_keys WHERE owner = ?`, owner)
	if err != nil {
		return false, fmt.Errorf("remove key: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Count returns the number of stored key records, expired or not.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM client_keys`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count keys: %w", err)
	}
	return count, nil
}

package identity

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vocalis/internal/config"
)

// User is a registered account. Usernames are stored only as salted hashes.
type User struct {
	ID           int64
	UsernameHash string
	Salt         []byte
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Gender       string
	Country      string
	Token        string
	KMSKeyID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReportRecord ties a delivered report artifact to its owner.
type ReportRecord struct {
	ReportID  string
	OwnerID   int64
	Activity  string
	FilePath  string
	CreatedAt time.Time
}

// Store manages user and report persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const userSchema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username_hash TEXT NOT NULL UNIQUE,
    salt TEXT NOT NULL,
    first_name TEXT,
    last_name TEXT,
    email TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    gender TEXT NOT NULL DEFAULT 'not provided',
    country TEXT NOT NULL DEFAULT 'not provided',
    token TEXT NOT NULL UNIQUE,
    kms_key_id TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS reports (
    report_id TEXT PRIMARY KEY,
    owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    activity TEXT,
    file_path TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_owner ON reports (owner_id);
`

// Open initializes or connects to the user database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.LogDir, "users.db"))
}

// OpenPath initializes or connects to a user database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(userSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create user schema: %w", err)
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

// CreateUser inserts a user record and returns it with its assigned ID.
func (s *Store) CreateUser(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (
            username_hash, salt, first_name, last_name, email, password_hash,
            gender, country, token, kms_key_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.UsernameHash,
		base64.StdEncoding.EncodeToString(user.Salt),
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Gender,
		user.Country,
		user.Token,
		user.KMSKeyID,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.UserByID(ctx, id)
}

// UserByID fetches a user by identifier.
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UserByToken fetches a user by verification token. A miss returns nil.
func (s *Store) UserByToken(ctx context.Context, token string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE token = ?`, token)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by token: %w", err)
	}
	return user, nil
}

// UsernameExists scans stored hashes and verifies the candidate username
// against each salt. Hashes are salted per user, so equality of the raw
// username cannot be checked with an index.
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username_hash, salt FROM users`)
	if err != nil {
		return false, fmt.Errorf("scan usernames: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash, saltB64 string
		if err := rows.Scan(&hash, &saltB64); err != nil {
			return false, err
		}
		salt, err := base64.StdEncoding.DecodeString(saltB64)
		if err != nil {
			return false, fmt.Errorf("decode stored salt: %w", err)
		}
		if VerifyUsername(username, salt, hash) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// SaveReport records a rendered report artifact for its owner, replacing any
// previous record under the same report identifier.
func (s *Store) SaveReport(ctx context.Context, record *ReportRecord) error {
	if record == nil {
		return errors.New("report record is nil")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (report_id, owner_id, activity, file_path, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(report_id) DO UPDATE SET
             owner_id = excluded.owner_id,
             activity = excluded.activity,
             file_path = excluded.file_path`,
		record.ReportID,
		record.OwnerID,
		record.Activity,
		record.FilePath,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// ReportByID fetches a report record. A miss returns nil.
func (s *Store) ReportByID(ctx context.Context, reportID string) (*ReportRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT report_id, owner_id, activity, file_path, created_at FROM reports WHERE report_id = ?`,
		reportID,
	)
	var (
		record     ReportRecord
		createdRaw string
	)
	err := row.Scan(&record.ReportID, &record.OwnerID, &record.Activity, &record.FilePath, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		record.CreatedAt = created
	}
	return &record, nil
}

const userColumns = "id, username_hash, salt, first_name, last_name, email, password_hash, gender, country, token, kms_key_id, created_at, updated_at"

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		user       User
		saltB64    string
		firstName  sql.NullString
		lastName   sql.NullString
		kmsKeyID   sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&user.ID,
		&user.UsernameHash,
		&saltB64,
		&firstName,
		&lastName,
		&user.Email,
		&user.PasswordHash,
		&user.Gender,
		&user.Country,
		&user.Token,
		&kmsKeyID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, fmt.Errorf("decode stored salt: %w", err)
	}
	user.Salt = salt
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.KMSKeyID = kmsKeyID.String

	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		user.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		user.UpdatedAt = updated
	}
	return &user, nil
}

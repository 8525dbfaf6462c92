package snapshot

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hpungsan/stopka/internal/contact"
	"github.com/hpungsan/stopka/internal/errors"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// DBFileName is the database file created inside the snapshot directory.
const DBFileName = "snapshots.db"

// SQLiteStore keeps records in a single SQLite table keyed by task id.
// Payloads use the same JSON encoding as FileStore.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) dir/snapshots.db and applies migrations.
func OpenSQLite(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create snapshot directory: %w", err))
	}

	dbPath := filepath.Join(dir, DBFileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to open database: %w", err))
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, errors.NewInternal(err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, errors.NewInternal(err)
	}

	_ = os.Chmod(dbPath, 0600)

	return &SQLiteStore{db: db}, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := getUserVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
		  task_id    TEXT PRIMARY KEY,
		  payload    TEXT NOT NULL,
		  updated_at INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func getUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// Write upserts r under r.TaskID.
func (s *SQLiteStore) Write(ctx context.Context, r contact.Record) (string, error) {
	key := r.TaskID
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	data, err := Encode(r)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO snapshots (task_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, string(data), time.Now().Unix()); err != nil {
		return "", errors.NewInternal(err)
	}
	return key, nil
}

// List returns keys in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT task_id FROM snapshots ORDER BY rowid")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.NewInternal(err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return keys, nil
}

// Read loads the record stored under key.
func (s *SQLiteStore) Read(ctx context.Context, key string) (contact.Record, error) {
	if err := ValidateKey(key); err != nil {
		return contact.Record{}, err
	}

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM snapshots WHERE task_id = ?", key).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return contact.Record{}, errors.NewNotFound(key)
	}
	if err != nil {
		return contact.Record{}, errors.NewInternal(err)
	}
	return Decode(key, []byte(data))
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ashureev/promptlabs/internal/domain"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db         *sql.DB
	progressMu sync.Mutex // Serializes completion transactions to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		xp_total INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS level_progress (
		user_id TEXT NOT NULL,
		level_id TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER,
		xp_awarded INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, level_id)
	);
	CREATE INDEX IF NOT EXISTS idx_level_progress_user ON level_progress(user_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, xp_total, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(
		&user.UserID, &user.Username, &user.XPTotal,
		&lastSeen, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record. The XP total is never
// rewritten here; only MarkLevelComplete may change it.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, xp_total, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.XPTotal,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// GetProgress retrieves the progress record for (userID, levelID).
func (s *SQLiteStore) GetProgress(ctx context.Context, userID, levelID string) (*domain.ProgressRecord, error) {
	query := `
		SELECT user_id, level_id, completed, completed_at, xp_awarded
		FROM level_progress WHERE user_id = ? AND level_id = ?`

	record, err := scanProgress(s.db.QueryRowContext(ctx, query, userID, levelID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress row: %w", err)
	}
	return record, nil
}

// ListProgress retrieves all progress records for a user.
func (s *SQLiteStore) ListProgress(ctx context.Context, userID string) ([]*domain.ProgressRecord, error) {
	query := `
		SELECT user_id, level_id, completed, completed_at, xp_awarded
		FROM level_progress WHERE user_id = ? ORDER BY level_id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close progress rows", "error", closeErr)
		}
	}()

	var records []*domain.ProgressRecord
	for rows.Next() {
		record, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress rows: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*domain.ProgressRecord, error) {
	var record domain.ProgressRecord
	var completed int
	var completedAt sql.NullInt64

	if err := row.Scan(
		&record.UserID, &record.LevelID, &completed,
		&completedAt, &record.XPAwarded,
	); err != nil {
		return nil, err
	}

	record.Completed = completed != 0
	if completedAt.Valid {
		ts := time.Unix(completedAt.Int64, 0)
		record.CompletedAt = &ts
	}
	return &record, nil
}

// MarkLevelComplete records completion and awards XP in one transaction.
// The read-check-write-increment sequence is indivisible: a repeated or
// concurrent call for an already-completed level returns the stored record
// without touching the XP total.
func (s *SQLiteStore) MarkLevelComplete(ctx context.Context, userID, levelID string, points int) (*domain.ProgressRecord, error) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin completion transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		SELECT user_id, level_id, completed, completed_at, xp_awarded
		FROM level_progress WHERE user_id = ? AND level_id = ?`
	existing, err := scanProgress(tx.QueryRowContext(ctx, query, userID, levelID))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	if existing != nil && existing.Completed {
		// Terminal state: return the original award, no writes.
		return existing, nil
	}

	now := time.Now()
	upsert := `
		INSERT INTO level_progress (user_id, level_id, completed, completed_at, xp_awarded, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT(user_id, level_id) DO UPDATE SET
			completed = 1,
			completed_at = excluded.completed_at,
			xp_awarded = excluded.xp_awarded,
			updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, upsert,
		userID, levelID, now.Unix(), points, now.Unix(), now.Unix(),
	); err != nil {
		return nil, fmt.Errorf("write progress: %w", err)
	}

	increment := `UPDATE users SET xp_total = xp_total + ?, updated_at = ? WHERE user_id = ?`
	result, err := tx.ExecContext(ctx, increment, points, now.Unix(), userID)
	if err != nil {
		return nil, fmt.Errorf("increment xp total: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("increment xp total: user %s not found", userID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion transaction: %w", err)
	}

	completedAt := now
	return &domain.ProgressRecord{
		UserID:      userID,
		LevelID:     levelID,
		Completed:   true,
		CompletedAt: &completedAt,
		XPAwarded:   points,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Package journal keeps a local SQLite log of upload outcomes. The log is
// informational: the uploader writes to it but never reads it back when
// deciding whether to skip a file.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcome is the result recorded for one upload attempt.
type Outcome string

// Recorded outcomes.
const (
	OutcomeUploaded Outcome = "uploaded"
	OutcomeSkipped  Outcome = "skipped"
)

// Entry is one journal row.
type Entry struct {
	ID         string
	LocalPath  string
	RemotePath string
	ItemID     string
	FileID     string
	SHA256     string
	Size       int64
	Outcome    Outcome
	RecordedAt time.Time
}

// Journal is an open journal database. Safe for concurrent use.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
	nowFn  func() time.Time
}

// Open opens or creates the journal at path and applies migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil { //nolint:mnd // owner-only dir perms
		return nil, fmt.Errorf("journal: creating directory for %s: %w", path, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: opening database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	logger.Debug("journal opened", slog.String("path", path))

	return &Journal{db: db, logger: logger, nowFn: time.Now}, nil
}

// Record inserts e. A missing ID or RecordedAt is filled in.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.Outcome != OutcomeUploaded && e.Outcome != OutcomeSkipped {
		return fmt.Errorf("journal: invalid outcome %q", e.Outcome)
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	if e.RecordedAt.IsZero() {
		e.RecordedAt = j.nowFn()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO uploads
			(id, local_path, remote_path, item_id, file_id, sha256, size, outcome, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.LocalPath, e.RemotePath, nullString(e.ItemID), nullString(e.FileID),
		e.SHA256, e.Size, string(e.Outcome), e.RecordedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("journal: recording %s: %w", e.LocalPath, err)
	}

	j.logger.Debug("journal entry recorded",
		slog.String("id", e.ID),
		slog.String("path", e.LocalPath),
		slog.String("outcome", string(e.Outcome)),
	)

	return nil
}

// List returns the most recent entries, newest first. limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, local_path, remote_path, item_id, file_id, sha256, size, outcome, recorded_at
		FROM uploads ORDER BY recorded_at DESC, rowid DESC`

	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: listing entries: %w", err)
	}
	defer rows.Close()

	var out []Entry

	for rows.Next() {
		var (
			e              Entry
			itemID, fileID sql.NullString
			outcome        string
			recordedAt     int64
		)

		if err := rows.Scan(&e.ID, &e.LocalPath, &e.RemotePath, &itemID, &fileID,
			&e.SHA256, &e.Size, &outcome, &recordedAt); err != nil {
			return nil, fmt.Errorf("journal: scanning entry: %w", err)
		}

		e.ItemID = itemID.String
		e.FileID = fileID.String
		e.Outcome = Outcome(outcome)
		e.RecordedAt = time.Unix(0, recordedAt)
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterating entries: %w", err)
	}

	return out, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("journal: closing: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: s, Valid: true}
}

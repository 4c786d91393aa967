// Package journal persists element bus messages to SQLite.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/open-beagle/gst-element/internal/config"
	"github.com/open-beagle/gst-element/internal/gstreamer"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("journal: store closed")

// Entry is one journaled message.
type Entry struct {
	ID        int64                 `json:"id"`
	MessageID string                `json:"message_id"`
	Type      gstreamer.MessageType `json:"type"`
	Source    string                `json:"source"`
	Factory   string                `json:"factory"`
	OldState  gstreamer.State       `json:"old_state"`
	NewState  gstreamer.State       `json:"new_state"`
	Error     *gstreamer.GError     `json:"error,omitempty"`
	Debug     string                `json:"debug,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// Store is the SQLite-backed message journal.
type Store struct {
	db     *sql.DB
	path   string
	logger *logrus.Entry
}

// Open creates or opens the journal database at path and applies migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
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

	store := &Store{
		db:     db,
		path:   path,
		logger: config.GetLoggerWithPrefix("journal"),
	}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenConfig opens the journal described by cfg.
func OpenConfig(cfg *config.JournalConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return Open(cfg.Path)
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record stores msg. Messages already journaled (same id) are ignored.
func (s *Store) Record(ctx context.Context, msg gstreamer.Message) error {
	if s.db == nil {
		return ErrClosed
	}

	var domain, message sql.NullString
	var code sql.NullInt64
	if msg.Error != nil {
		domain = sql.NullString{String: msg.Error.Domain, Valid: true}
		message = sql.NullString{String: msg.Error.Message, Valid: true}
		code = sql.NullInt64{Int64: int64(msg.Error.Code), Valid: true}
	}

	createdAt := msg.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages (
            message_id, type, source, factory, old_state, new_state,
            error_domain, error_code, error_message, debug, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		string(msg.Type),
		msg.Source,
		msg.Factory,
		int(msg.OldState),
		int(msg.NewState),
		domain,
		code,
		message,
		nullableString(msg.Debug),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// HandleMessage records msg, logging failures. It is meant to be registered
// as a bus handler.
func (s *Store) HandleMessage(msg gstreamer.Message) {
	if err := s.Record(context.Background(), msg); err != nil {
		s.logger.Warnf("Failed to journal %s message from '%s': %v", msg.Type, msg.Source, err)
	}
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, `SELECT `+entryColumns+` FROM messages ORDER BY id DESC LIMIT ?`, limit)
}

// ByElement returns up to limit entries for the named element, newest first.
func (s *Store) ByElement(ctx context.Context, source string, limit int) ([]Entry, error) {
	return s.query(ctx, `SELECT `+entryColumns+` FROM messages WHERE source = ? ORDER BY id DESC LIMIT ?`, source, limit)
}

// Count returns the number of journaled messages of type t, or of all types
// when t is empty.
func (s *Store) Count(ctx context.Context, t gstreamer.MessageType) (int, error) {
	if s.db == nil {
		return 0, ErrClosed
	}

	var count int
	var err error
	if t == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM messages").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM messages WHERE type = ?", string(t)).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

const entryColumns = `id, message_id, type, source, factory, old_state, new_state,
    error_domain, error_code, error_message, debug, created_at`

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry                  Entry
		msgType, createdAt     string
		oldState, newState     int
		domain, message, debug sql.NullString
		code                   sql.NullInt64
	)
	if err := rows.Scan(
		&entry.ID, &entry.MessageID, &msgType, &entry.Source, &entry.Factory,
		&oldState, &newState, &domain, &code, &message, &debug, &createdAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scan message: %w", err)
	}

	entry.Type = gstreamer.MessageType(msgType)
	entry.OldState = gstreamer.State(oldState)
	entry.NewState = gstreamer.State(newState)
	entry.Debug = debug.String
	if domain.Valid {
		entry.Error = &gstreamer.GError{
			Domain:  domain.String,
			Code:    int(code.Int64),
			Message: message.String,
		}
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse created_at: %w", err)
	}
	entry.CreatedAt = ts
	return entry, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

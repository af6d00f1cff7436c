package transcript

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteStore persists transcripts in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = &SQLiteStore{}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite transcript store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite transcript store: open")
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transcript_entries (
			thread_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			badge TEXT NOT NULL DEFAULT '',
			page TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL,
			PRIMARY KEY (thread_id, ordinal)
		);`,
		`CREATE INDEX IF NOT EXISTS transcript_by_created ON transcript_entries(created_at_ms DESC);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite transcript store: migrate")
		}
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcript_entries (thread_id, ordinal, role, text, badge, page, created_at_ms)
		 VALUES (?, (SELECT COALESCE(MAX(ordinal)+1, 0) FROM transcript_entries WHERE thread_id = ?), ?, ?, ?, ?, ?)`,
		e.ThreadID, e.ThreadID, e.Role, e.Text, e.Badge, e.Page, e.CreatedAt.UnixMilli(),
	)
	return errors.Wrap(err, "sqlite transcript store: append")
}

func (s *SQLiteStore) Thread(ctx context.Context, threadID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT thread_id, ordinal, role, text, badge, page, created_at_ms
		 FROM transcript_entries WHERE thread_id = ? ORDER BY ordinal ASC`, threadID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite transcript store: thread")
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var createdMs int64
		if err := rows.Scan(&e.ThreadID, &e.Ordinal, &e.Role, &e.Text, &e.Badge, &e.Page, &createdMs); err != nil {
			return nil, errors.Wrap(err, "sqlite transcript store: scan")
		}
		e.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "sqlite transcript store: rows")
}

func (s *SQLiteStore) Threads(ctx context.Context, limit int) ([]string, error) {
	q := `SELECT thread_id FROM transcript_entries GROUP BY thread_id ORDER BY MAX(created_at_ms) DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite transcript store: threads")
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "sqlite transcript store: scan")
		}
		out = append(out, id)
	}
	return out, errors.Wrap(rows.Err(), "sqlite transcript store: rows")
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

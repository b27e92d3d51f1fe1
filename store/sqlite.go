package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/martinemde/execagent/agent"
)

// SQLite stores facts and transcripts in a single database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (or creates) the database at path and applies the
// schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Debug("store opened", "path", path)
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS facts (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transcripts (
			session_id TEXT PRIMARY KEY,
			history TEXT NOT NULL,
			messages INTEGER NOT NULL DEFAULT 0,
			preview TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_updated ON transcripts(updated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

func (s *SQLite) SetFact(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("set fact %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Fact(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM facts WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("get fact %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) DeleteFact(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete fact %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Facts(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM facts`)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	facts := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts[k] = v
	}
	return facts, rows.Err()
}

// SaveTranscript replaces the stored history of sessionID.
func (s *SQLite) SaveTranscript(ctx context.Context, sessionID string, history []agent.Message) error {
	if history == nil {
		history = []agent.Message{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	now := s.now().UnixNano()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcripts (session_id, history, messages, preview, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			history = excluded.history,
			messages = excluded.messages,
			preview = excluded.preview,
			updated_at = excluded.updated_at`,
		sessionID, string(b), len(history), preview(history), now, now)
	if err != nil {
		return fmt.Errorf("save transcript %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLite) LoadTranscript(ctx context.Context, sessionID string) ([]agent.Message, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT history FROM transcripts WHERE session_id = ?`, sessionID).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("transcript %s: %w", sessionID, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("load transcript %s: %w", sessionID, err)
	}

	var history []agent.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", sessionID, err)
	}
	return history, nil
}

// ListSessions returns stored transcripts, most recently updated first.
func (s *SQLite) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, messages, preview, updated_at FROM transcripts ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var updated int64
		if err := rows.Scan(&info.ID, &info.Messages, &info.Preview, &updated); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.UpdatedAt = time.Unix(0, updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLite) DeleteTranscript(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete transcript %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transcript %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

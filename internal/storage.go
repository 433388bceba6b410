package internal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Storage reads and writes transcripts in the local archive
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance
func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// SaveTranscript stores t, replacing any earlier copy of the same session
func (s *Storage) SaveTranscript(ctx context.Context, t *Transcript) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, ended_at, message_count, has_references, base_url, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			message_count = excluded.message_count,
			has_references = excluded.has_references,
			base_url = excluded.base_url,
			archived_at = excluded.archived_at`,
		t.ID, t.Metadata.StartedAt, t.Metadata.EndedAt, t.Metadata.MessageCount,
		t.Metadata.HasReferences, t.Metadata.BaseURL, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chat_logs WHERE session_id = ?", t.ID); err != nil {
		return fmt.Errorf("failed to clear logs of %s: %w", t.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chat_logs (session_id, seq, actor, content, timestamp, refs) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range t.Messages {
		if _, err := stmt.ExecContext(ctx, t.ID, i, msg.Actor, msg.Content, msg.Timestamp, msg.References); err != nil {
			return fmt.Errorf("failed to save message %d of %s: %w", i, t.ID, err)
		}
	}

	return tx.Commit()
}

// LoadTranscript returns the archived transcript of one session
func (s *Storage) LoadTranscript(ctx context.Context, id string) (*Transcript, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, ended_at, message_count, has_references, base_url FROM sessions WHERE id = ?", id)
	t, err := scanTranscript(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s is not archived", id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTranscripts returns every archived transcript, newest first
func (s *Storage) LoadTranscripts(ctx context.Context) ([]*Transcript, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, ended_at, message_count, has_references, base_url FROM sessions ORDER BY COALESCE(NULLIF(ended_at, ''), started_at) DESC, id")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var transcripts []*Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		transcripts = append(transcripts, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	rows.Close()

	for _, t := range transcripts {
		if err := s.loadMessages(ctx, t); err != nil {
			return nil, err
		}
	}
	return transcripts, nil
}

// CountSessions returns the number of archived sessions
func (s *Storage) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row scanner) (*Transcript, error) {
	var (
		t                       Transcript
		started, ended, baseURL sql.NullString
	)
	if err := row.Scan(&t.ID, &started, &ended, &t.Metadata.MessageCount, &t.Metadata.HasReferences, &baseURL); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	t.Source = "archive"
	t.Metadata.StartedAt = started.String
	t.Metadata.EndedAt = ended.String
	t.Metadata.BaseURL = baseURL.String
	return &t, nil
}

func (s *Storage) loadMessages(ctx context.Context, t *Transcript) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT actor, content, timestamp, refs FROM chat_logs WHERE session_id = ? ORDER BY seq", t.ID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	t.Messages = []Message{}
	for rows.Next() {
		var (
			msg      Message
			ts, refs sql.NullString
		)
		if err := rows.Scan(&msg.Actor, &msg.Content, &ts, &refs); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		msg.Timestamp = ts.String
		msg.References = refs.String
		t.Messages = append(t.Messages, msg)
	}
	return rows.Err()
}

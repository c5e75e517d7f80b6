// Package session keeps the per-browser view state that a single-page
// front end would hold in memory: the selected document, the document-list
// refresh counter, one-shot toasts and the chat transcripts.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmaflow/pharmaflow/internal/db"
	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Store provides CRUD operations for view sessions and transcripts.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Create starts a new session.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now.UTC().Truncate(time.Millisecond),
		UpdatedAt: now.UTC().Truncate(time.Millisecond),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO view_sessions (id, created_at, updated_at) VALUES (?, ?, ?)`,
		sess.ID, db.Timestamp(now), db.Timestamp(now))
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return sess, nil
}

// Get loads a session.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess             Session
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, selected_document, refresh_count, created_at, updated_at
		FROM view_sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.SelectedDocument, &sess.RefreshCount, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	sess.CreatedAt = db.ParseTimestamp(created)
	sess.UpdatedAt = db.ParseTimestamp(updated)
	return &sess, nil
}

// SelectDocument records the document the analysis, graph and chat views
// operate on.
func (s *Store) SelectDocument(ctx context.Context, id, documentID string) error {
	return s.update(ctx, id, "selected_document = ?", documentID)
}

// BumpRefresh increments the document-list refresh counter and returns the
// new value.
func (s *Store) BumpRefresh(ctx context.Context, id string) (int, error) {
	if err := s.update(ctx, id, "refresh_count = refresh_count + 1"); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT refresh_count FROM view_sessions WHERE id = ?`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("reading refresh count: %w", err)
	}
	return n, nil
}

// SetUploadStatus records the outcome of the last upload.
func (s *Store) SetUploadStatus(ctx context.Context, id string, status UploadStatus) error {
	return s.update(ctx, id, "upload_status = ?", string(status))
}

// PushFlash queues a toast for the next render, replacing any pending one.
func (s *Store) PushFlash(ctx context.Context, id string, f Flash) error {
	return s.update(ctx, id, "flash_kind = ?, flash_title = ?, flash_description = ?",
		string(f.Kind), f.Title, f.Description)
}

// TakeNotices returns the pending toast and upload status and resets both,
// so each is shown exactly once.
func (s *Store) TakeNotices(ctx context.Context, id string) (Notices, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Notices{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var kind, title, desc, status string
	err = tx.QueryRowContext(ctx, `
		SELECT flash_kind, flash_title, flash_description, upload_status
		FROM view_sessions WHERE id = ?`, id).Scan(&kind, &title, &desc, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return Notices{}, ErrNotFound
	}
	if err != nil {
		return Notices{}, fmt.Errorf("reading notices: %w", err)
	}

	n := Notices{UploadStatus: UploadStatus(status)}
	if kind != "" {
		n.Flash = &Flash{Kind: FlashKind(kind), Title: title, Description: desc}
	}
	if kind == "" && n.UploadStatus == UploadIdle {
		return n, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE view_sessions
		SET flash_kind = '', flash_title = '', flash_description = '', upload_status = 'idle'
		WHERE id = ?`, id)
	if err != nil {
		return Notices{}, fmt.Errorf("clearing notices: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Notices{}, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Transcript returns the chat messages of one document in order.
func (s *Store) Transcript(ctx context.Context, id, documentID string) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, document_id, seq, role, content, sources, citations, failed, created_at
		FROM chat_messages
		WHERE session_id = ? AND document_id = ?
		ORDER BY seq`, id, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var (
			m                        ChatMessage
			role, sources, citations string
			created                  string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.DocumentID, &m.Seq, &role, &m.Content,
			&sources, &citations, &m.Failed, &created); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = pharmaapi.Role(role)
		m.CreatedAt = db.ParseTimestamp(created)
		if err := json.Unmarshal([]byte(sources), &m.Sources); err != nil {
			return nil, fmt.Errorf("decoding sources: %w", err)
		}
		if err := json.Unmarshal([]byte(citations), &m.Citations); err != nil {
			return nil, fmt.Errorf("decoding citations: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Append adds m to the end of its transcript and returns it with ID, Seq
// and CreatedAt filled in.
func (s *Store) Append(ctx context.Context, m ChatMessage) (ChatMessage, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Sources == nil {
		m.Sources = []string{}
	}
	if m.Citations == nil {
		m.Citations = []pharmaapi.Citation{}
	}
	sources, err := json.Marshal(m.Sources)
	if err != nil {
		return m, fmt.Errorf("marshalling sources: %w", err)
	}
	citations, err := json.Marshal(m.Citations)
	if err != nil {
		return m, fmt.Errorf("marshalling citations: %w", err)
	}

	now := s.now()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (id, session_id, document_id, seq, role, content, sources, citations, failed, created_at)
		VALUES (?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE session_id = ? AND document_id = ?),
			?, ?, ?, ?, ?, ?)
		RETURNING seq`,
		m.ID, m.SessionID, m.DocumentID, m.SessionID, m.DocumentID,
		string(m.Role), m.Content, string(sources), string(citations), m.Failed, db.Timestamp(now),
	).Scan(&m.Seq)
	if err != nil {
		return m, fmt.Errorf("inserting message: %w", err)
	}
	m.CreatedAt = now.UTC().Truncate(time.Millisecond)
	return m, nil
}

// ClearTranscript deletes the chat history of one document.
func (s *Store) ClearTranscript(ctx context.Context, id, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ? AND document_id = ?`, id, documentID)
	if err != nil {
		return fmt.Errorf("clearing transcript: %w", err)
	}
	return nil
}

// Purge deletes sessions not updated since before, with their transcripts.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM view_sessions WHERE updated_at < ?`, db.Timestamp(before))
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return res.RowsAffected()
}

// Touch marks the session as used now.
func (s *Store) Touch(ctx context.Context, id string) error {
	return s.update(ctx, id, "")
}

func (s *Store) update(ctx context.Context, id, set string, args ...any) error {
	stmt := "UPDATE view_sessions SET updated_at = ?"
	if set != "" {
		stmt += ", " + set
	}
	stmt += " WHERE id = ?"

	all := append([]any{db.Timestamp(s.now())}, args...)
	all = append(all, id)

	res, err := s.db.ExecContext(ctx, stmt, all...)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

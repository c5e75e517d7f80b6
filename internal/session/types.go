package session

import (
	"time"

	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
)

// UploadStatus is the state of the upload card.
type UploadStatus string

const (
	UploadIdle    UploadStatus = "idle"
	UploadSuccess UploadStatus = "success"
	UploadError   UploadStatus = "error"
)

// FlashKind distinguishes toast styles.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot toast shown on the next render.
type Flash struct {
	Kind        FlashKind
	Title       string
	Description string
}

// Session is the view state of one browser.
type Session struct {
	ID               string
	SelectedDocument string
	RefreshCount     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Notices are the one-shot values consumed by a render.
type Notices struct {
	Flash        *Flash
	UploadStatus UploadStatus
}

// ChatMessage is one stored turn of a per-document transcript.
type ChatMessage struct {
	ID         string
	SessionID  string
	DocumentID string
	Seq        int
	Role       pharmaapi.Role
	Content    string
	Sources    []string
	Citations  []pharmaapi.Citation
	// Failed marks the apology shown after a backend error.
	Failed    bool
	CreatedAt time.Time
}

// APIMessage reduces m to the role/content pair sent as history.
func (m ChatMessage) APIMessage() pharmaapi.Message {
	return pharmaapi.Message{Role: m.Role, Content: m.Content}
}

// History converts a transcript to API messages.
func History(msgs []ChatMessage) []pharmaapi.Message {
	out := make([]pharmaapi.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.APIMessage()
	}
	return out
}

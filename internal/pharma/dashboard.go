// Package pharma implements the PharmaFlow page: document upload and list,
// the multi-perspective analysis, the knowledge graph and the chat.
package pharma

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
	"github.com/pharmaflow/pharmaflow/internal/render"
	"github.com/pharmaflow/pharmaflow/internal/router"
	"github.com/pharmaflow/pharmaflow/internal/session"
)

// API is the part of the backend client the views use.
type API interface {
	ListDocuments(ctx context.Context) ([]pharmaapi.Document, error)
	UploadDocument(ctx context.Context, filename string, r io.Reader) (*pharmaapi.UploadResult, error)
	GetAnalysis(ctx context.Context, documentID string) (*pharmaapi.Analysis, error)
	Chat(ctx context.Context, req pharmaapi.ChatRequest) (*pharmaapi.ChatResponse, error)
}

// Options tune the dashboard.
type Options struct {
	// HistoryLimit caps the conversation history sent with each question.
	HistoryLimit int
	// MaxUploadBytes bounds the multipart body of an upload.
	MaxUploadBytes int64
}

// Dashboard serves the PharmaFlow page and its form and socket endpoints.
type Dashboard struct {
	api      API
	sessions *session.Store
	md       *render.Markdown
	logger   *zap.Logger
	opts     Options
}

// New creates a new Dashboard.
func New(api API, sessions *session.Store, md *render.Markdown, logger *zap.Logger, opts Options) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = pharmaapi.DefaultHistoryLimit
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	if md == nil {
		md = render.NewMarkdown()
	}
	return &Dashboard{
		api:      api,
		sessions: sessions,
		md:       md,
		logger:   logger.Named("pharma"),
		opts:     opts,
	}
}

// RegisterRoutes mounts the form endpoints that only touch the view
// session. They expect the session middleware to run first.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Post("/pharma/select", d.handleSelect)
	r.Post("/pharma/chat/reset", d.handleChatReset)
}

// RegisterBackendRoutes mounts the upload and chat endpoints and the chat
// WebSocket. They wait on the backend for as long as it takes, so they must
// sit outside any request timeout middleware.
func (d *Dashboard) RegisterBackendRoutes(r chi.Router) {
	r.Post("/pharma/upload", d.handleUpload)
	r.Post("/pharma/chat", d.handleChat)
	r.Get("/ws/chat", d.handleWebSocket)
}

// backURL is where a form post returns to: the page it was posted from,
// carried in the action's query string.
func backURL(r *http.Request) string {
	return router.Resolve(r.URL.RawQuery).URL()
}

// actionURL targets path with the current query so the handler can send the
// browser back.
func actionURL(path string, nav *router.Navigator) string {
	return path + "?" + nav.Params().Encode()
}

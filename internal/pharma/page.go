package pharma

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/router"
	"github.com/pharmaflow/pharmaflow/internal/session"
	"github.com/pharmaflow/pharmaflow/internal/ui"
)

// Tabs of the PharmaFlow page.
const (
	TabUpload   = "upload"
	TabAnalysis = "analysis"
	TabGraph    = "graph"
	TabChat     = "chat"
)

var tabs = []struct{ name, label string }{
	{TabUpload, "Upload"},
	{TabAnalysis, "Analysis"},
	{TabGraph, "Graph"},
	{TabChat, "Chat"},
}

// DraftParam carries unsent chat input, set by the suggestion chips.
const DraftParam = "draft"

// HasUnsavedInput reports whether leaving the page would discard input.
func HasUnsavedInput(state router.State) bool {
	return state.Get("tab") == TabChat && state.Get(DraftParam) != ""
}

// ServePage renders the PharmaFlow page for the resolved state in nav.
func (d *Dashboard) ServePage(w http.ResponseWriter, r *http.Request, nav *router.Navigator, layout ui.Layout) {
	ctx := r.Context()
	sess, ok := session.FromContext(ctx)
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	notices, err := d.sessions.TakeNotices(ctx, sess.ID)
	if err != nil {
		d.logger.Warn("reading notices", zap.String("session", sess.ID), zap.Error(err))
		notices = session.Notices{UploadStatus: session.UploadIdle}
	}
	if f := notices.Flash; f != nil {
		layout.Flash = &ui.Flash{Kind: string(f.Kind), Title: f.Title, Description: f.Description}
	}

	hasDoc := sess.SelectedDocument != ""
	tab := nav.State().Get("tab")
	switch tab {
	case TabAnalysis, TabGraph, TabChat:
		if !hasDoc {
			tab = TabUpload
		}
	default:
		tab = TabUpload
	}

	view := ui.PharmaView{
		Layout:      layout,
		Tab:         tab,
		HasDocument: hasDoc,
	}
	for _, t := range tabs {
		view.Tabs = append(view.Tabs, ui.TabLink{
			Name:     t.name,
			Label:    t.label,
			Href:     nav.Link("tab", t.name, DraftParam, ""),
			Active:   t.name == tab,
			Disabled: t.name != TabUpload && !hasDoc,
		})
	}

	switch tab {
	case TabAnalysis:
		view.Analysis = d.analysis(ctx, sess.SelectedDocument, nav)
	case TabGraph:
		view.Graph = d.graph(ctx, sess.SelectedDocument)
	case TabChat:
		view.Chat = d.chat(ctx, sess.ID, sess.SelectedDocument, nav)
	default:
		view.Upload = ui.UploadView{
			Status: string(notices.UploadStatus),
			Action: actionURL("/pharma/upload", nav),
			MaxMB:  int(d.opts.MaxUploadBytes >> 20),
			Reset:  nav.State().URL(),
		}
		view.Documents = d.documents(ctx, sess, nav)
	}

	if err := ui.Render(w, http.StatusOK, "pharma", view); err != nil {
		d.logger.Error("rendering pharma page", zap.Error(err))
	}
}

func (d *Dashboard) documents(ctx context.Context, sess *session.Session, nav *router.Navigator) ui.DocumentsView {
	view := ui.DocumentsView{
		RefreshCount: sess.RefreshCount,
		Action:       actionURL("/pharma/select", nav),
	}
	docs, err := d.api.ListDocuments(ctx)
	if err != nil {
		d.logger.Error("fetching documents", zap.Error(err))
		return view
	}
	for _, doc := range docs {
		view.Items = append(view.Items, ui.DocumentItem{
			ID:       doc.DocumentID,
			Filename: doc.Filename,
			Selected: doc.DocumentID == sess.SelectedDocument,
		})
	}
	return view
}

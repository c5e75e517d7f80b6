// Package web is the page container: it resolves the page named by the URL,
// heals invalid URLs and dispatches to exactly one view.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/pharma"
	"github.com/pharmaflow/pharmaflow/internal/router"
	"github.com/pharmaflow/pharmaflow/internal/session"
	"github.com/pharmaflow/pharmaflow/internal/ui"
)

// AppTitle is the document title of every page.
const AppTitle = "PharmaFlow"

// View renders one top-level page.
type View interface {
	ServePage(w http.ResponseWriter, r *http.Request, nav *router.Navigator, layout ui.Layout)
}

// ViewFunc adapts a function to View.
type ViewFunc func(w http.ResponseWriter, r *http.Request, nav *router.Navigator, layout ui.Layout)

// ServePage calls f.
func (f ViewFunc) ServePage(w http.ResponseWriter, r *http.Request, nav *router.Navigator, layout ui.Layout) {
	f(w, r, nav, layout)
}

// Container mounts the page views and the navigation endpoints.
type Container struct {
	dashboard *pharma.Dashboard
	sessions  *session.Store
	logger    *zap.Logger
	views     map[router.Page]View
}

// New creates a Container. Pages other than pharma render a placeholder.
func New(dashboard *pharma.Dashboard, sessions *session.Store, logger *zap.Logger) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{
		dashboard: dashboard,
		sessions:  sessions,
		logger:    logger.Named("web"),
		views:     make(map[router.Page]View),
	}
	for _, p := range router.ValidPages() {
		c.views[p] = ViewFunc(c.servePlaceholder)
	}
	c.views[router.PagePharma] = dashboard
	return c
}

// Register mounts the container. pages carries the request timeout; the
// routes that wait on the backend and the static assets go on root.
func (c *Container) Register(root, pages chi.Router) {
	pages.Post("/api/navigate", c.handleNavigateAPI)
	pages.Group(func(r chi.Router) {
		r.Use(session.Middleware(c.sessions, c.logger))
		r.Get("/", c.handleIndex)
		r.Post("/navigate", c.handleNavigate)
		c.dashboard.RegisterRoutes(r)
	})
	root.Group(func(r chi.Router) {
		r.Use(session.Middleware(c.sessions, c.logger))
		c.dashboard.RegisterBackendRoutes(r)
	})
	root.Handle("/static/*", http.StripPrefix("/static/", ui.Static()))
	root.NotFound(c.handleNotFound)
}

func (c *Container) handleIndex(w http.ResponseWriter, r *http.Request) {
	state := router.Resolve(r.URL.RawQuery)
	if state.Redirect != "" {
		http.Redirect(w, r, state.Redirect, http.StatusFound)
		return
	}

	nav := router.NewNavigator(state)
	view, ok := c.views[state.Page]
	if !ok {
		// Resolve only yields allow-listed pages, all of which are mapped.
		http.NotFound(w, r)
		return
	}
	view.ServePage(w, r, nav, c.layout(nav))
}

func (c *Container) layout(nav *router.Navigator) ui.Layout {
	state := nav.State()
	action := "/navigate?" + nav.Params().Encode()
	guarded := pharma.HasUnsavedInput(state)

	l := ui.Layout{Title: AppTitle, Current: string(state.Page)}
	for _, p := range router.ValidPages() {
		l.Nav = append(l.Nav, ui.NavLink{
			Page:    string(p),
			Label:   string(p),
			Action:  action,
			Guarded: guarded,
			Active:  p == state.Page,
		})
	}
	return l
}

func (c *Container) handleNotFound(w http.ResponseWriter, r *http.Request) {
	view := ui.ErrorView{
		Layout:  c.layout(router.FromQuery("")),
		Status:  http.StatusNotFound,
		Message: "The requested page does not exist.",
	}
	if err := ui.Render(w, http.StatusNotFound, "error", view); err != nil {
		c.logger.Error("rendering not found", zap.Error(err))
	}
}

func (c *Container) servePlaceholder(w http.ResponseWriter, r *http.Request, nav *router.Navigator, layout ui.Layout) {
	view := ui.PlaceholderView{Layout: layout, Page: string(nav.CurrentPage())}
	if err := ui.Render(w, http.StatusOK, "placeholder", view); err != nil {
		c.logger.Error("rendering placeholder", zap.Error(err))
	}
}

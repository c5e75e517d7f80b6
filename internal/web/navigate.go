package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/router"
	"github.com/pharmaflow/pharmaflow/internal/ui"
)

// Form fields of POST /navigate. Extra parameters are sent as
// "param.<key>" and keep their order.
const (
	fieldPage      = "page"
	fieldReplace   = "replace"
	fieldGuarded   = "guarded"
	fieldConfirmed = "confirmed"
	paramPrefix    = "param."
)

const maxNavigateBody = 64 << 10

// navigateRequest is the body of POST /api/navigate.
type navigateRequest struct {
	// Current is the query string of the page navigating away.
	Current string `json:"current"`
	Page    string `json:"page"`
	// Params is a query string so parameter order survives.
	Params    string `json:"params"`
	Replace   bool   `json:"replace"`
	Guarded   bool   `json:"guarded"`
	Confirmed bool   `json:"confirmed"`
}

// navigateResponse tells a script how to update history.
type navigateResponse struct {
	URL  string `json:"url"`
	Mode string `json:"mode"`
}

// confirmResponse is returned with 409 for unconfirmed guarded navigations.
type confirmResponse struct {
	Error   string `json:"error"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// handleNavigate performs a navigation action posted from a page. The
// current query travels in the action URL; the body is read in order so
// extra parameters keep the order they were sent in.
func (c *Container) handleNavigate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNavigateBody))
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := router.ParseParams(string(body))

	extra := router.NewParams()
	for _, k := range form.Keys() {
		if name, ok := strings.CutPrefix(k, paramPrefix); ok && name != "" {
			extra.Set(name, form.Get(k))
		}
	}

	nav := router.FromQuery(r.URL.RawQuery)
	target, err := nav.ChangePage(form.Get(fieldPage), extra, router.NavigateOptions{
		Replace:   form.Get(fieldReplace) == "1",
		Guarded:   form.Get(fieldGuarded) == "1",
		Confirmed: form.Get(fieldConfirmed) == "1",
	})
	if errors.Is(err, router.ErrConfirmationRequired) {
		c.confirm(w, r, nav, form)
		return
	}
	if err != nil {
		c.logger.Error("navigating", zap.Error(err))
		http.Error(w, "navigation failed", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, target.URL, http.StatusSeeOther)
}

func (c *Container) confirm(w http.ResponseWriter, r *http.Request, nav *router.Navigator, form *router.Params) {
	view := ui.ConfirmView{
		Layout:  c.layout(nav),
		Heading: router.ConfirmTitle,
		Message: router.ConfirmMessage,
		Action:  r.URL.RequestURI(),
		Cancel:  nav.State().URL(),
	}
	for _, k := range form.Keys() {
		if k == fieldConfirmed {
			continue
		}
		view.Fields = append(view.Fields, ui.Hidden{Name: k, Value: form.Get(k)})
	}
	if err := ui.Render(w, http.StatusOK, "confirm", view); err != nil {
		c.logger.Error("rendering confirmation", zap.Error(err))
	}
}

func (c *Container) handleNavigateAPI(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxNavigateBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	nav := router.FromQuery(req.Current)
	target, err := nav.ChangePage(req.Page, router.ParseParams(req.Params), router.NavigateOptions{
		Replace:   req.Replace,
		Guarded:   req.Guarded,
		Confirmed: req.Confirmed,
	})
	if errors.Is(err, router.ErrConfirmationRequired) {
		writeJSON(w, http.StatusConflict, confirmResponse{
			Error:   err.Error(),
			Title:   router.ConfirmTitle,
			Message: router.ConfirmMessage,
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, navigateResponse{URL: target.URL, Mode: string(target.Mode)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

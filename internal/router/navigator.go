package router

import "errors"

// ErrConfirmationRequired is returned by ChangePage for a guarded navigation
// that the user has not confirmed yet.
var ErrConfirmationRequired = errors.New("navigation requires confirmation")

// Confirmation prompt shown before a guarded navigation.
const (
	ConfirmTitle   = "Unsaved Changes"
	ConfirmMessage = "You have unsaved changes. Are you sure you want to leave this page? You will lose your changes."
)

// HistoryMode says whether a navigation adds a history entry or replaces
// the current one.
type HistoryMode string

const (
	HistoryPush    HistoryMode = "push"
	HistoryReplace HistoryMode = "replace"
)

// NavigateOptions controls ChangePage.
type NavigateOptions struct {
	// Replace drops the current parameters and replaces the history entry.
	Replace bool
	// Guarded requires Confirmed before the navigation happens.
	Guarded   bool
	Confirmed bool
}

// Navigation is the outcome of a page change.
type Navigation struct {
	URL  string
	Mode HistoryMode
}

// Navigator is the per-request navigation state holder. Views receive it
// explicitly instead of reading the URL themselves.
type Navigator struct {
	state State
}

// NewNavigator returns a navigator positioned at state.
func NewNavigator(state State) *Navigator {
	return &Navigator{state: state}
}

// FromQuery resolves rawQuery and returns a navigator for it.
func FromQuery(rawQuery string) *Navigator {
	return NewNavigator(Resolve(rawQuery))
}

// CurrentPage returns the active page.
func (n *Navigator) CurrentPage() Page {
	return n.state.Page
}

// State returns the current validated state.
func (n *Navigator) State() State {
	return n.state
}

// Params returns a copy of the current parameters.
func (n *Navigator) Params() *Params {
	return n.state.Params.Clone()
}

// Link returns the URL of the current state with the given parameters
// overridden, keeping everything else.
func (n *Navigator) Link(overrides ...string) string {
	p := n.state.Params.Clone()
	for i := 0; i+1 < len(overrides); i += 2 {
		if overrides[i+1] == "" {
			p.Del(overrides[i])
			continue
		}
		p.Set(overrides[i], overrides[i+1])
	}
	return p.URL()
}

// ChangePage builds the URL for switching to page. By default the current
// parameters are kept, page is set in place, and params are merged on top.
// With Replace only page and params survive. The page name is not checked
// here: the holder re-resolves the new URL, so an unknown page heals to the
// default like any other URL.
func (n *Navigator) ChangePage(page string, params *Params, opts NavigateOptions) (Navigation, error) {
	if opts.Guarded && !opts.Confirmed {
		return Navigation{}, ErrConfirmationRequired
	}

	var target *Params
	mode := HistoryPush
	if opts.Replace {
		target = NewParams()
		mode = HistoryReplace
	} else {
		target = n.state.Params.Clone()
	}
	target.Set(PageParam, page)
	target.Merge(params)

	nav := Navigation{URL: target.URL(), Mode: mode}
	n.state = Resolve(target.Encode())
	return nav, nil
}

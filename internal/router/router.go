// Package router holds the navigation state of the front end: which
// top-level page is active, derived from the "page" query parameter.
//
// Resolution is a pure function of the raw query string. Anything other
// than a known page name resolves to the default page and carries the
// healed URL the caller should redirect to.
package router

import "slices"

// Page names a top-level view.
type Page string

const (
	PagePharma     Page = "pharma"
	PageChat       Page = "chat"
	PageData       Page = "data"
	PageCollection Page = "collection"
	PageSettings   Page = "settings"
	PageEval       Page = "eval"
	PageFeedback   Page = "feedback"
	PageElysia     Page = "elysia"
	PageDisplay    Page = "display"
)

// DefaultPage is used when the page parameter is missing or unknown.
const DefaultPage = PagePharma

// PageParam is the query parameter that selects the page.
const PageParam = "page"

var validPages = []Page{
	PagePharma,
	PageChat,
	PageData,
	PageCollection,
	PageSettings,
	PageEval,
	PageFeedback,
	PageElysia,
	PageDisplay,
}

// ValidPages returns the allow-list of page names in display order.
func ValidPages() []Page {
	return slices.Clone(validPages)
}

// IsValid reports whether name is an allow-listed page.
func IsValid(name string) bool {
	return slices.Contains(validPages, Page(name))
}

// State is the validated navigation state for one URL.
type State struct {
	Page   Page
	Params *Params // always contains page=Page

	// Redirect is the healed URL when the incoming query had a missing or
	// invalid page, and "" when the URL is already valid.
	Redirect string
}

// Resolve validates the page parameter of rawQuery. A missing, empty or
// unknown page resolves to DefaultPage, and Redirect is set to a URL that
// leads with page=DefaultPage followed by the other parameters in their
// original order.
func Resolve(rawQuery string) State {
	params := ParseParams(rawQuery)
	// Only the first page value counts; other repeated keys fold last-wins.
	name, _ := FirstValue(rawQuery, PageParam)

	if IsValid(name) {
		params.Set(PageParam, name)
		return State{Page: Page(name), Params: params}
	}

	healed := NewParams()
	healed.Set(PageParam, string(DefaultPage))
	healed.Merge(params.Without(PageParam))

	return State{
		Page:     DefaultPage,
		Params:   healed,
		Redirect: healed.URL(),
	}
}

// Get returns the value of a non-page parameter.
func (s State) Get(key string) string {
	if s.Params == nil {
		return ""
	}
	return s.Params.Get(key)
}

// URL returns the canonical URL of the state.
func (s State) URL() string {
	return s.Params.URL()
}

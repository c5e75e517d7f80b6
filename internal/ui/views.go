package ui

import "html/template"

// Layout is the chrome shared by every page.
type Layout struct {
	Title string
	// Current is the resolved page name.
	Current string
	Nav     []NavLink
	Flash   *Flash
}

// NavLink is one entry of the top navigation. Entries post to /navigate so
// a guarded navigation can ask for confirmation first.
type NavLink struct {
	Page    string
	Label   string
	Action  string
	Guarded bool
	Active  bool
}

// Flash is a toast rendered once.
type Flash struct {
	Kind        string
	Title       string
	Description string
}

// PlaceholderView is rendered for pages without a dedicated view.
type PlaceholderView struct {
	Layout
	Page string
}

// ConfirmView asks before leaving a page with unsaved input.
type ConfirmView struct {
	Layout
	Heading string
	Message string
	Action  string
	Fields  []Hidden
	Cancel  string
}

// Hidden is a hidden form field.
type Hidden struct {
	Name  string
	Value string
}

// ErrorView is the generic failure page.
type ErrorView struct {
	Layout
	Status  int
	Message string
}

// PharmaView is the PharmaFlow page.
type PharmaView struct {
	Layout
	Tab         string
	Tabs        []TabLink
	HasDocument bool

	Upload    UploadView
	Documents DocumentsView
	Analysis  *AnalysisView
	Graph     *GraphView
	Chat      *ChatView
}

// TabLink is one PharmaFlow sub-view tab.
type TabLink struct {
	Name     string
	Label    string
	Href     string
	Active   bool
	Disabled bool
}

// UploadView is the upload card.
type UploadView struct {
	Status string
	Action string
	MaxMB  int
	Reset  string
}

// DocumentsView is the document list card.
type DocumentsView struct {
	Items        []DocumentItem
	RefreshCount int
	Action       string
}

// DocumentItem is one selectable document.
type DocumentItem struct {
	ID       string
	Filename string
	Selected bool
}

// AnalysisView is the multi-perspective dashboard. Failed replaces every
// other field with the failure card.
type AnalysisView struct {
	Failed      bool
	Perspective string
	Tabs        []TabLink

	Finance        FinanceView
	Sustainability SustainabilityView
	Chemistry      ChemistryView
}

// KV is a displayable key/value pair.
type KV struct {
	Key   string
	Value string
}

// FinanceView is the finance lens.
type FinanceView struct {
	TotalCost  string
	Breakdown  []KV
	Milestones []string
	Summary    string
	ROI        []string
}

// SustainabilityView is the sustainability lens.
type SustainabilityView struct {
	WasteRecovery []KV
	Emissions     []KV
	Summary       string
	Compliance    []string
}

// ChemistryView is the chemistry and process lens.
type ChemistryView struct {
	ActiveIngredients []string
	ProcessParameters []KV
	QualitySpecs      []KV
	Summary           string
	CriticalSteps     []string
}

// GraphView is a laid-out knowledge graph ready for SVG output.
type GraphView struct {
	Failed bool
	Width  int
	Height int
	Nodes  []GraphNode
	Links  []GraphLine
}

// GraphNode is a positioned node.
type GraphNode struct {
	X, Y     float64
	Radius   int
	Color    string
	Label    string
	Type     string
	FontSize int
	LabelDY  int
	Bold     bool
}

// GraphLine is a positioned link.
type GraphLine struct {
	X1, Y1, X2, Y2 float64
	Width          float64
}

// ChatView is the chat card.
type ChatView struct {
	DocumentID  string
	Messages    []ChatBubble
	Draft       string
	Action      string
	Reset       string
	Suggestions []Suggestion
}

// ChatBubble is one rendered message.
type ChatBubble struct {
	Role    string
	HTML    template.HTML
	Sources []string
	Failed  bool
}

// Suggestion is a chip that prefills the chat input.
type Suggestion struct {
	Label string
	Href  string
}

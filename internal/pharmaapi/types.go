package pharmaapi

// Document is one entry of the backend document list.
type Document struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
}

// UploadResult is returned by POST /api/upload.
type UploadResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Pages      int    `json:"pages"`
	Status     string `json:"status"`
}

// Analysis is the multi-perspective view of one document.
type Analysis struct {
	DocumentID     string      `json:"document_id"`
	Finance        Perspective `json:"finance"`
	Sustainability Perspective `json:"sustainability"`
	Chemistry      Perspective `json:"chemistry"`
	GraphData      GraphData   `json:"graph_data"`
}

// Node types produced by the backend graph builder.
const (
	NodeDocument = "document"
	NodeCategory = "category"
	NodeMetric   = "metric"
)

// GraphNode is a knowledge-graph vertex.
type GraphNode struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Group int    `json:"group"`
}

// GraphLink is a weighted edge between two node ids.
type GraphLink struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Value  float64 `json:"value"`
}

// GraphData is the knowledge graph of a document.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	DocumentID          string    `json:"document_id"`
	Message             string    `json:"message"`
	ConversationHistory []Message `json:"conversation_history"`
}

// Citation points at the passage an answer was grounded on.
type Citation struct {
	Source    string  `json:"source"`
	Content   string  `json:"content"`
	Relevance string  `json:"relevance,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	Response  string     `json:"response"`
	Citations []Citation `json:"citations,omitempty"`
	Sources   []string   `json:"sources,omitempty"`
}

// LiteratureResult is one hit of GET /api/search.
type LiteratureResult struct {
	Content    string  `json:"content"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
}

// Health is returned by GET /health.
type Health struct {
	Status   string          `json:"status"`
	Services map[string]bool `json:"services"`
}

// documentsResponse wraps the document list.
type documentsResponse struct {
	Documents []Document `json:"documents"`
}

// searchResponse wraps literature search results.
type searchResponse struct {
	Results []LiteratureResult `json:"results"`
}

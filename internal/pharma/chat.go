package pharma

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
	"github.com/pharmaflow/pharmaflow/internal/router"
	"github.com/pharmaflow/pharmaflow/internal/session"
	"github.com/pharmaflow/pharmaflow/internal/ui"
)

// Fixed assistant messages.
const (
	Greeting     = "Hello! I'm your pharmaceutical manufacturing assistant. Ask me anything about this document's specifications, processes, costs, or sustainability requirements."
	ChatErrorMsg = "Sorry, I encountered an error processing your request. Please try again."
)

// Suggestions are the prompts offered under the chat input.
var Suggestions = []struct{ Label, Prompt string }{
	{"LNP specs", "What are the LNP formulation specifications?"},
	{"Emissions", "What is the CO₂ emission limit?"},
	{"Payments", "What are the payment milestones?"},
	{"Batch size", "What is the batch size?"},
}

// Transcript returns the chat of one document, starting it with the
// greeting when it is empty.
func (d *Dashboard) Transcript(ctx context.Context, sessionID, documentID string) ([]session.ChatMessage, error) {
	msgs, err := d.sessions.Transcript(ctx, sessionID, documentID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		return msgs, nil
	}
	greeting, err := d.sessions.Append(ctx, session.ChatMessage{
		SessionID:  sessionID,
		DocumentID: documentID,
		Role:       pharmaapi.RoleAssistant,
		Content:    Greeting,
	})
	if err != nil {
		return nil, err
	}
	return []session.ChatMessage{greeting}, nil
}

// Converse records the user's message, asks the backend with the most recent
// history and records the answer. A backend failure is not an error: it is
// answered with the apology message, marked Failed. The error return only
// reports storage problems.
func (d *Dashboard) Converse(ctx context.Context, sessionID, documentID, text string) (user, reply session.ChatMessage, err error) {
	prior, err := d.Transcript(ctx, sessionID, documentID)
	if err != nil {
		return user, reply, fmt.Errorf("loading transcript: %w", err)
	}
	history := pharmaapi.RecentHistory(session.History(prior), d.opts.HistoryLimit)

	user, err = d.sessions.Append(ctx, session.ChatMessage{
		SessionID:  sessionID,
		DocumentID: documentID,
		Role:       pharmaapi.RoleUser,
		Content:    text,
	})
	if err != nil {
		return user, reply, fmt.Errorf("storing question: %w", err)
	}

	answer := session.ChatMessage{
		SessionID:  sessionID,
		DocumentID: documentID,
		Role:       pharmaapi.RoleAssistant,
	}
	resp, err := d.api.Chat(ctx, pharmaapi.ChatRequest{
		DocumentID:          documentID,
		Message:             text,
		ConversationHistory: history,
	})
	if err != nil {
		d.logger.Error("chat request", zap.String("document", documentID), zap.Error(err))
		answer.Content = ChatErrorMsg
		answer.Failed = true
	} else {
		answer.Content = resp.Response
		answer.Sources = resp.Sources
		answer.Citations = resp.Citations
	}

	reply, err = d.sessions.Append(ctx, answer)
	if err != nil {
		return user, reply, fmt.Errorf("storing answer: %w", err)
	}
	return user, reply, nil
}

func (d *Dashboard) chat(ctx context.Context, sessionID, documentID string, nav *router.Navigator) *ui.ChatView {
	view := &ui.ChatView{
		DocumentID: documentID,
		Draft:      nav.State().Get(DraftParam),
		Action:     actionURL("/pharma/chat", nav),
		Reset:      actionURL("/pharma/chat/reset", nav),
	}
	for _, s := range Suggestions {
		view.Suggestions = append(view.Suggestions, ui.Suggestion{
			Label: s.Label,
			Href:  nav.Link(DraftParam, s.Prompt),
		})
	}

	msgs, err := d.Transcript(ctx, sessionID, documentID)
	if err != nil {
		d.logger.Error("loading transcript", zap.Error(err))
		msgs = []session.ChatMessage{{Role: pharmaapi.RoleAssistant, Content: Greeting}}
	}
	for _, m := range msgs {
		view.Messages = append(view.Messages, d.bubble(m))
	}
	return view
}

func (d *Dashboard) bubble(m session.ChatMessage) ui.ChatBubble {
	return ui.ChatBubble{
		Role:    string(m.Role),
		HTML:    d.messageHTML(m),
		Sources: m.Sources,
		Failed:  m.Failed,
	}
}

// messageHTML renders assistant answers as markdown and user input as
// escaped text.
func (d *Dashboard) messageHTML(m session.ChatMessage) template.HTML {
	if m.Role == pharmaapi.RoleAssistant && !m.Failed {
		return d.md.Render(m.Content)
	}
	escaped := template.HTMLEscapeString(m.Content)
	return template.HTML("<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>")
}

var upgrader = websocket.Upgrader{}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type       string `json:"type"`                  // "message"
	DocumentID string `json:"document_id,omitempty"` // defaults to the selected document
	Content    string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type    string   `json:"type"` // "user", "response", "failed" or "error"
	HTML    string   `json:"html,omitempty"`
	Sources []string `json:"sources,omitempty"`
	Content string   `json:"content,omitempty"`
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.logger.Warn("websocket read", zap.Error(err))
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			d.sendError(conn, "invalid message format")
			continue
		}
		if req.Type != "message" {
			d.sendError(conn, "unknown message type: "+req.Type)
			continue
		}
		if strings.TrimSpace(req.Content) == "" {
			d.sendError(conn, "content is required")
			continue
		}

		docID := req.DocumentID
		if docID == "" {
			// The selection may have changed since the socket opened.
			if cur, err := d.sessions.Get(r.Context(), sess.ID); err == nil {
				docID = cur.SelectedDocument
			}
		}
		if docID == "" {
			d.sendError(conn, "no document selected")
			continue
		}

		user, reply, err := d.Converse(r.Context(), sess.ID, docID, req.Content)
		if err != nil {
			d.logger.Error("storing chat turn", zap.Error(err))
			d.sendError(conn, "chat unavailable")
			continue
		}
		d.send(conn, chatResponse{Type: "user", HTML: string(d.messageHTML(user))})

		resp := chatResponse{Type: "response", HTML: string(d.messageHTML(reply)), Sources: reply.Sources}
		if reply.Failed {
			resp.Type = "failed"
		}
		d.send(conn, resp)
	}
}

func (d *Dashboard) send(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		d.logger.Warn("websocket write", zap.Error(err))
	}
}

func (d *Dashboard) sendError(conn *websocket.Conn, message string) {
	d.send(conn, chatResponse{Type: "error", Content: message})
}

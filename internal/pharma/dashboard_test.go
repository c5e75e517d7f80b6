package pharma

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/db"
	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
	"github.com/pharmaflow/pharmaflow/internal/router"
	"github.com/pharmaflow/pharmaflow/internal/session"
	"github.com/pharmaflow/pharmaflow/internal/ui"
)

type fakeAPI struct {
	mu sync.Mutex

	docs        []pharmaapi.Document
	listCalls   int
	uploads     []string
	uploadErr   error
	analysis    *pharmaapi.Analysis
	analysisErr error
	chatReqs    []pharmaapi.ChatRequest
	chatErr     error
}

func (f *fakeAPI) ListDocuments(ctx context.Context) ([]pharmaapi.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.docs, nil
}

func (f *fakeAPI) UploadDocument(ctx context.Context, filename string, r io.Reader) (*pharmaapi.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, filename)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.docs = append(f.docs, pharmaapi.Document{DocumentID: "doc-" + filename, Filename: filename})
	return &pharmaapi.UploadResult{
		DocumentID: "doc-" + filename,
		Filename:   filename,
		Pages:      len(data),
		Status:     "processed",
	}, nil
}

func (f *fakeAPI) GetAnalysis(ctx context.Context, documentID string) (*pharmaapi.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.analysisErr != nil {
		return nil, f.analysisErr
	}
	return f.analysis, nil
}

func (f *fakeAPI) Chat(ctx context.Context, req pharmaapi.ChatRequest) (*pharmaapi.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatReqs = append(f.chatReqs, req)
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &pharmaapi.ChatResponse{
		Response: fmt.Sprintf("answer **%d**", len(f.chatReqs)),
		Sources:  []string{"spec.pdf"},
	}, nil
}

func (f *fakeAPI) requests() []pharmaapi.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pharmaapi.ChatRequest(nil), f.chatReqs...)
}

func (f *fakeAPI) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func setupTest(t *testing.T, api *fakeAPI) (*Dashboard, *session.Store, http.Handler) {
	t.Helper()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store := session.NewStore(database)
	d := New(api, store, nil, zap.NewNop(), Options{})

	r := chi.NewRouter()
	r.Use(session.Middleware(store, zap.NewNop()))
	d.RegisterRoutes(r)
	d.RegisterBackendRoutes(r)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		d.ServePage(w, r, router.FromQuery(r.URL.RawQuery), ui.Layout{Title: "PharmaFlow", Current: "pharma"})
	})
	return d, store, r
}

// browser replays the session cookie like a real browser.
type browser struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.h.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			b.cookie = c
		}
	}
	return w
}

func (b *browser) get(target string) string {
	b.t.Helper()
	w := b.do(httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(b.t, http.StatusOK, w.Code, w.Body.String())
	return w.Body.String()
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) upload(target, filename, content string) *httptest.ResponseRecorder {
	b.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(b.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(b.t, err)
	require.NoError(b.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	api := &fakeAPI{}
	_, _, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	w := b.upload("/pharma/upload?page=pharma", "notes.txt", "hello")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?page=pharma", w.Header().Get("Location"))
	assert.Empty(t, api.uploads, "no backend request for a non-PDF")

	page := b.get("/?page=pharma")
	assert.Contains(t, page, InvalidTypeTitle)
	assert.Contains(t, page, InvalidTypeDescription)
	assert.Contains(t, page, "Select PDF File")
}

func TestUploadExtensionIsCaseSensitive(t *testing.T) {
	api := &fakeAPI{}
	_, _, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	b.upload("/pharma/upload?page=pharma", "REPORT.PDF", "x")
	assert.Empty(t, api.uploads)
}

func TestUploadSuccessRefreshesOnce(t *testing.T) {
	api := &fakeAPI{}
	_, store, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	b.get("/?page=pharma")
	before := api.lists()

	w := b.upload("/pharma/upload?page=pharma&tab=upload", "batch.pdf", "abc")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?page=pharma&tab=upload", w.Header().Get("Location"))
	assert.Equal(t, before, api.lists(), "the upload itself does not fetch the list")

	page := b.get("/?page=pharma&tab=upload")
	assert.Equal(t, before+1, api.lists())
	assert.Contains(t, page, UploadedTitle)
	assert.Contains(t, page, "batch.pdf has been processed (3 pages)")
	assert.Contains(t, page, "Upload successful!")
	assert.Contains(t, page, "Document is being processed")
	assert.Contains(t, page, "batch.pdf")

	sess, err := store.Get(t.Context(), b.cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.RefreshCount)

	// Toast and status are shown once.
	page = b.get("/?page=pharma&tab=upload")
	assert.NotContains(t, page, UploadedTitle)
	assert.NotContains(t, page, "Upload successful!")
}

func TestUploadFailure(t *testing.T) {
	api := &fakeAPI{uploadErr: &pharmaapi.StatusError{Op: "upload", StatusCode: 500}}
	_, store, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	b.upload("/pharma/upload?page=pharma", "batch.pdf", "abc")
	require.Len(t, api.uploads, 1)

	page := b.get("/?page=pharma")
	assert.Contains(t, page, UploadFailedTitle)
	assert.Contains(t, page, UploadFailedMessage)
	assert.Contains(t, page, "Try Again")

	sess, err := store.Get(t.Context(), b.cookie.Value)
	require.NoError(t, err)
	assert.Zero(t, sess.RefreshCount)
}

func TestTabsRequireSelectedDocument(t *testing.T) {
	api := &fakeAPI{}
	_, _, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	page := b.get("/?page=pharma&tab=chat")
	assert.Contains(t, page, "Upload Pharmaceutical Document")
	assert.NotContains(t, page, "Manufacturing Agent")
	assert.Contains(t, page, `aria-disabled="true">Chat`)
	assert.Contains(t, page, "No documents uploaded yet")
}

func testAnalysis() *pharmaapi.Analysis {
	return &pharmaapi.Analysis{
		Finance: pharmaapi.Perspective{
			"total_cost": "$2.4M",
			"cost_breakdown": map[string]any{
				"raw_materials": "800k",
				"labor":         pharmaapi.NotSpecified,
			},
			"milestones":         []any{"MS-1", "MS-2", "MS-3", "MS-4", "MS-5", "MS-6"},
			"roi_considerations": []any{"ROI-1", "ROI-2", "ROI-3", "ROI-4"},
			"summary":            "Costs are front-loaded.",
		},
		Sustainability: pharmaapi.Perspective{
			"emissions":  map[string]any{"co2_limit": "50 t/yr"},
			"compliance": []any{"ISO 14001", "EU GMP", "REACH", "extra"},
		},
		Chemistry: pharmaapi.Perspective{
			"formulation":    map[string]any{"active_ingredients": []any{"mRNA", "ionizable lipid"}},
			"critical_steps": []any{"STEP-1", "STEP-2", "STEP-3", "STEP-4", "STEP-5"},
		},
		GraphData: pharmaapi.GraphData{
			Nodes: []pharmaapi.GraphNode{
				{ID: 0, Label: "RFP", Type: pharmaapi.NodeDocument, Group: 0},
				{ID: 1, Label: "Finance", Type: pharmaapi.NodeCategory, Group: 1},
				{ID: 2, Label: "$2.4M", Type: pharmaapi.NodeMetric, Group: 1},
			},
			Links: []pharmaapi.GraphLink{{Source: 0, Target: 1, Value: 4}, {Source: 1, Target: 2, Value: 1}},
		},
	}
}

func TestSelectAndAnalysis(t *testing.T) {
	api := &fakeAPI{
		docs:     []pharmaapi.Document{{DocumentID: "d1", Filename: "rfp.pdf"}},
		analysis: testAnalysis(),
	}
	_, store, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	w := b.post("/pharma/select?page=pharma&tab=analysis", url.Values{"document_id": {"d1"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?page=pharma&tab=analysis", w.Header().Get("Location"))

	sess, err := store.Get(t.Context(), b.cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "d1", sess.SelectedDocument)

	page := b.get("/?page=pharma&tab=analysis")
	assert.Contains(t, page, "Multi-Perspective Analysis")
	assert.Contains(t, page, "Raw Materials")
	assert.NotContains(t, page, "Labor")
	assert.Contains(t, page, "MS-5")
	assert.NotContains(t, page, "MS-6")
	assert.Contains(t, page, "ROI-3")
	assert.NotContains(t, page, "ROI-4")

	page = b.get("/?page=pharma&tab=analysis&perspective=chemistry")
	assert.Contains(t, page, "ionizable lipid")
	assert.Contains(t, page, "STEP-4")
	assert.NotContains(t, page, "STEP-5")

	page = b.get("/?page=pharma&tab=upload")
	assert.Contains(t, page, "docitem selected")
}

func TestAnalysisFailure(t *testing.T) {
	api := &fakeAPI{analysisErr: errors.New("boom")}
	_, _, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	b.post("/pharma/select?page=pharma", url.Values{"document_id": {"d1"}})
	page := b.get("/?page=pharma&tab=analysis")
	assert.Contains(t, page, "Failed to load analysis")

	page = b.get("/?page=pharma&tab=graph")
	assert.Contains(t, page, "Failed to load graph")
}

func TestGraphTab(t *testing.T) {
	api := &fakeAPI{analysis: testAnalysis()}
	_, _, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	b.post("/pharma/select?page=pharma", url.Values{"document_id": {"d1"}})
	page := b.get("/?page=pharma&tab=graph")
	assert.Contains(t, page, "Knowledge Graph")
	assert.Equal(t, 3, strings.Count(page, "<circle"))
	assert.Equal(t, 2, strings.Count(page, "<line"))
	assert.Contains(t, page, `stroke-width="4.00"`)
}

func TestChatHistoryCapped(t *testing.T) {
	api := &fakeAPI{}
	_, _, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	b.post("/pharma/select?page=pharma", url.Values{"document_id": {"d1"}})
	page := b.get("/?page=pharma&tab=chat")
	assert.Contains(t, page, "Manufacturing Agent")
	assert.Contains(t, page, "pharmaceutical manufacturing assistant")

	for i := 1; i <= 5; i++ {
		w := b.post("/pharma/chat?page=pharma&tab=chat&draft=x", url.Values{"message": {fmt.Sprintf("q%d", i)}})
		assert.Equal(t, "/?page=pharma&tab=chat", w.Header().Get("Location"))
	}

	require.Len(t, api.chatReqs, 5)
	wantLens := []int{1, 3, 5, 6, 6}
	for i, req := range api.chatReqs {
		assert.Equal(t, "d1", req.DocumentID)
		assert.Equal(t, fmt.Sprintf("q%d", i+1), req.Message)
		assert.Len(t, req.ConversationHistory, wantLens[i], "request %d", i)
	}

	first := api.chatReqs[0].ConversationHistory[0]
	assert.Equal(t, pharmaapi.RoleAssistant, first.Role)
	assert.Equal(t, Greeting, first.Content)

	last := api.chatReqs[4].ConversationHistory
	assert.Equal(t, pharmaapi.Message{Role: pharmaapi.RoleUser, Content: "q2"}, last[0])
	assert.Equal(t, pharmaapi.Message{Role: pharmaapi.RoleAssistant, Content: "answer **4**"}, last[5])

	page = b.get("/?page=pharma&tab=chat")
	assert.Contains(t, page, "<strong>5</strong>")
	assert.Contains(t, page, "spec.pdf")
}

func TestChatFailureAppendsApology(t *testing.T) {
	api := &fakeAPI{chatErr: errors.New("backend down")}
	_, _, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	b.post("/pharma/select?page=pharma", url.Values{"document_id": {"d1"}})
	b.post("/pharma/chat?page=pharma&tab=chat", url.Values{"message": {"What is the batch size?"}})

	page := b.get("/?page=pharma&tab=chat")
	assert.Contains(t, page, "What is the batch size?")
	assert.Contains(t, page, "Sorry, I encountered an error processing your request. Please try again.")

	// The apology is part of the next request's history.
	api.chatErr = nil
	b.post("/pharma/chat?page=pharma&tab=chat", url.Values{"message": {"again"}})
	require.Len(t, api.chatReqs, 2)
	hist := api.chatReqs[1].ConversationHistory
	require.Len(t, hist, 3)
	assert.Equal(t, ChatErrorMsg, hist[2].Content)
}

func TestChatIgnoresBlankInput(t *testing.T) {
	api := &fakeAPI{}
	_, _, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	b.post("/pharma/select?page=pharma", url.Values{"document_id": {"d1"}})
	w := b.post("/pharma/chat?page=pharma&tab=chat", url.Values{"message": {"   "}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, api.chatReqs)
}

func TestChatSuggestionsAndReset(t *testing.T) {
	api := &fakeAPI{}
	_, _, h := setupTest(t, api)
	b := &browser{t: t, h: h}

	b.post("/pharma/select?page=pharma", url.Values{"document_id": {"d1"}})
	page := b.get("/?page=pharma&tab=chat")
	for _, s := range Suggestions {
		assert.Contains(t, page, s.Label)
	}

	page = b.get("/?page=pharma&tab=chat&draft=" + url.QueryEscape("What is the batch size?"))
	assert.Contains(t, page, `value="What is the batch size?"`)

	b.post("/pharma/chat?page=pharma&tab=chat", url.Values{"message": {"hi"}})
	page = b.get("/?page=pharma&tab=chat")
	assert.Contains(t, page, "<p>hi</p>")

	b.post("/pharma/chat/reset?page=pharma&tab=chat", nil)
	page = b.get("/?page=pharma&tab=chat")
	assert.NotContains(t, page, "<p>hi</p>")
	assert.Contains(t, page, "pharmaceutical manufacturing assistant")
}

func TestHasUnsavedInput(t *testing.T) {
	assert.True(t, HasUnsavedInput(router.Resolve("page=pharma&tab=chat&draft=x")))
	assert.False(t, HasUnsavedInput(router.Resolve("page=pharma&tab=chat")))
	assert.False(t, HasUnsavedInput(router.Resolve("page=pharma&tab=upload&draft=x")))
}

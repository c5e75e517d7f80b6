// Package pharmaapi is a client for the PharmaFlow backend API, which owns
// document storage, perspective extraction, the knowledge graph and chat.
package pharmaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the backend origin used when none is configured.
const DefaultBaseURL = "http://localhost:8000"

// DefaultHistoryLimit is how many prior messages are sent with a chat turn.
const DefaultHistoryLimit = 6

// Client calls the backend API. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client for baseURL. A zero timeout leaves requests bounded
// only by their context. baseURL defaults to DefaultBaseURL if empty.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("pharmaapi"),
	}
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListDocuments returns every document known to the backend.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var resp documentsResponse
	if err := c.getJSON(ctx, "list documents", "/api/documents", &resp); err != nil {
		return nil, err
	}
	if resp.Documents == nil {
		return []Document{}, nil
	}
	return resp.Documents, nil
}

// GetAnalysis returns the finance, sustainability and chemistry
// perspectives plus the knowledge graph of one document.
func (c *Client) GetAnalysis(ctx context.Context, documentID string) (*Analysis, error) {
	if documentID == "" {
		return nil, fmt.Errorf("get analysis: document id is required")
	}
	var a Analysis
	if err := c.getJSON(ctx, "get analysis", "/api/documents/"+url.PathEscape(documentID), &a); err != nil {
		return nil, err
	}
	if a.DocumentID == "" {
		a.DocumentID = documentID
	}
	return &a, nil
}

// Chat sends one user message with its conversation history.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.ConversationHistory == nil {
		req.ConversationHistory = []Message{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	var resp ChatResponse
	if err := c.do(ctx, "chat", http.MethodPost, "/api/chat", "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadDocument streams a PDF to the backend as the multipart field "file".
// Non-PDF names are rejected with ErrInvalidFileType before any request.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	if !IsPDF(filename) {
		return nil, ErrInvalidFileType
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	var res UploadResult
	if err := c.do(ctx, "upload", http.MethodPost, "/api/upload", mw.FormDataContentType(), pr, &res); err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	if res.Filename == "" {
		res.Filename = filename
	}
	return &res, nil
}

// SearchLiterature runs a semantic search across all stored documents.
func (c *Client) SearchLiterature(ctx context.Context, query string, limit int) ([]LiteratureResult, error) {
	q := url.Values{}
	q.Set("query", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp searchResponse
	if err := c.getJSON(ctx, "search literature", "/api/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Health reports backend liveness.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.getJSON(ctx, "health", "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, "", nil, out)
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Detail: parseDetail(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

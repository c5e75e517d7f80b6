package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/pharma"
	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
	"github.com/pharmaflow/pharmaflow/internal/progress"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))
	}
}

func TestExpandPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf", "b.txt", "nested/deep/c.pdf", "nested/d.PDF")

	pdfs, skipped, err := expandPatterns([]string{
		filepath.Join(dir, "**", "*"),
		filepath.Join(dir, "a.pdf"), // duplicate
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a.pdf"),
		filepath.Join(dir, "nested", "deep", "c.pdf"),
	}, pdfs)
	assert.Equal(t, []string{
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "nested", "d.PDF"),
	}, skipped)
}

func TestExpandPatternsInvalid(t *testing.T) {
	_, _, err := expandPatterns([]string{"[unclosed"})
	assert.Error(t, err)
}

type fakeUploader struct {
	mu       sync.Mutex
	names    []string
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     string
}

func (f *fakeUploader) UploadDocument(_ context.Context, filename string, r io.Reader) (*pharmaapi.UploadResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.names = append(f.names, filename)
	f.mu.Unlock()

	if filename == f.fail {
		return nil, &pharmaapi.StatusError{Op: "upload", StatusCode: 500, Detail: "extraction failed"}
	}
	return &pharmaapi.UploadResult{DocumentID: "id-" + filename, Filename: filename, Pages: 3, Status: "success"}, nil
}

func TestUploadAll(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}
	writeFiles(t, dir, names...)
	var paths []string
	for _, n := range names {
		paths = append(paths, filepath.Join(dir, n))
	}

	api := &fakeUploader{fail: "c.pdf"}
	outcomes := uploadAll(context.Background(), api, paths, 2, progress.NewReporter(io.Discard))

	require.Len(t, outcomes, len(paths))
	for i, o := range outcomes {
		assert.Equal(t, paths[i], o.Path, "outcomes keep input order")
		if names[i] == "c.pdf" {
			assert.Error(t, o.Err)
			continue
		}
		require.NoError(t, o.Err)
		assert.Equal(t, "id-"+names[i], o.Result.DocumentID)
	}
	assert.ElementsMatch(t, names, api.names, "a failure does not stop the batch")
	assert.LessOrEqual(t, api.peak.Load(), int32(2))
}

func TestUploadAllMissingFile(t *testing.T) {
	api := &fakeUploader{}
	outcomes := uploadAll(context.Background(), api, []string{filepath.Join(t.TempDir(), "gone.pdf")}, 1, progress.NewReporter(io.Discard))
	require.Len(t, outcomes, 1)
	assert.True(t, errors.Is(outcomes[0].Err, os.ErrNotExist))
	assert.Empty(t, api.names)
}

type fakeChatter struct {
	requests []pharmaapi.ChatRequest
	fail     bool
}

func (f *fakeChatter) Chat(_ context.Context, req pharmaapi.ChatRequest) (*pharmaapi.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.fail {
		return nil, errors.New("backend down")
	}
	return &pharmaapi.ChatResponse{Response: "answer to " + req.Message, Sources: []string{"spec.pdf"}}, nil
}

func TestConversationHistoryCap(t *testing.T) {
	api := &fakeChatter{}
	conv := newConversation(api, "doc-1", 6, zap.NewNop())

	for _, q := range []string{"q1", "q2", "q3", "q4", "q5"} {
		answer, sources := conv.ask(context.Background(), q)
		assert.Equal(t, "answer to "+q, answer)
		assert.Equal(t, []string{"spec.pdf"}, sources)
	}

	var lengths []int
	for _, req := range api.requests {
		assert.Equal(t, "doc-1", req.DocumentID)
		lengths = append(lengths, len(req.ConversationHistory))
	}
	// The greeting counts as history; the new question is never included.
	assert.Equal(t, []int{1, 3, 5, 6, 6}, lengths)

	last := api.requests[4].ConversationHistory
	assert.Equal(t, pharmaapi.Message{Role: pharmaapi.RoleAssistant, Content: "answer to q4"}, last[len(last)-1])
}

func TestConversationFailure(t *testing.T) {
	api := &fakeChatter{fail: true}
	conv := newConversation(api, "doc-1", 6, zap.NewNop())

	answer, sources := conv.ask(context.Background(), "hello")
	assert.Equal(t, pharma.ChatErrorMsg, answer)
	assert.Nil(t, sources)
	assert.Len(t, conv.messages, 3)
}

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, "Batch size is 10L.", []string{"spec.pdf", "sop.pdf"})
	assert.Contains(t, buf.String(), "Assistant: Batch size is 10L.")
	assert.Contains(t, buf.String(), "Sources: spec.pdf, sop.pdf")
}

func TestPrintAnalysis(t *testing.T) {
	a := &pharmaapi.Analysis{
		Finance: pharmaapi.Perspective{
			"total_cost": "$1.2M",
			"cost_breakdown": map[string]any{
				"raw_materials": "$400K",
				"overhead":      pharmaapi.NotSpecified,
			},
		},
		Chemistry: pharmaapi.Perspective{
			"critical_steps": []any{"Mixing", "Filtration"},
		},
	}

	var buf bytes.Buffer
	printAnalysis(&buf, a)
	out := buf.String()

	assert.Contains(t, out, "Total cost: $1.2M")
	assert.Contains(t, out, "Raw Materials: $400K")
	assert.NotContains(t, out, "Overhead")
	assert.Contains(t, out, "  - Filtration")
	assert.True(t, strings.Index(out, "Finance") < strings.Index(out, "Chemistry/Process"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "µµ...", truncate("µµµ", 2))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "pharmaflow dev\n", buf.String())
}

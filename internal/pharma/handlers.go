package pharma

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
	"github.com/pharmaflow/pharmaflow/internal/router"
	"github.com/pharmaflow/pharmaflow/internal/session"
)

// Toasts shown after an upload.
const (
	InvalidTypeTitle       = "Invalid file type"
	InvalidTypeDescription = "Please upload a PDF file"
	UploadedTitle          = "Document uploaded successfully"
	UploadFailedTitle      = "Upload failed"
	UploadFailedMessage    = "There was an error uploading your document. Please try again."
)

var errNoFile = errors.New("no file part in upload")

func (d *Dashboard) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := session.FromContext(ctx)
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	back := backURL(r)
	defer http.Redirect(w, r, back, http.StatusSeeOther)

	r.Body = http.MaxBytesReader(w, r.Body, d.opts.MaxUploadBytes)
	part, err := filePart(r)
	if err != nil {
		d.logger.Error("reading upload", zap.Error(err))
		d.uploadFailed(r, sess.ID)
		return
	}
	defer part.Close()

	filename := part.FileName()
	if !pharmaapi.IsPDF(filename) {
		d.flash(r, sess.ID, session.Flash{
			Kind:        session.FlashError,
			Title:       InvalidTypeTitle,
			Description: InvalidTypeDescription,
		})
		return
	}

	res, err := d.api.UploadDocument(ctx, filename, part)
	if err != nil {
		d.logger.Error("uploading document", zap.String("filename", filename), zap.Error(err))
		d.uploadFailed(r, sess.ID)
		return
	}

	if err := d.sessions.SetUploadStatus(ctx, sess.ID, session.UploadSuccess); err != nil {
		d.logger.Warn("recording upload status", zap.Error(err))
	}
	if _, err := d.sessions.BumpRefresh(ctx, sess.ID); err != nil {
		d.logger.Warn("bumping document list refresh", zap.Error(err))
	}
	d.flash(r, sess.ID, session.Flash{
		Kind:        session.FlashSuccess,
		Title:       UploadedTitle,
		Description: fmt.Sprintf("%s has been processed (%d pages)", res.Filename, res.Pages),
	})
	d.logger.Info("document uploaded",
		zap.String("document", res.DocumentID),
		zap.String("filename", res.Filename),
		zap.Int("pages", res.Pages))
}

// filePart advances the multipart stream to the "file" part without
// buffering the body.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("multipart reader: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoFile
		}
		if err != nil {
			return nil, fmt.Errorf("next part: %w", err)
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func (d *Dashboard) uploadFailed(r *http.Request, sessionID string) {
	if err := d.sessions.SetUploadStatus(r.Context(), sessionID, session.UploadError); err != nil {
		d.logger.Warn("recording upload status", zap.Error(err))
	}
	d.flash(r, sessionID, session.Flash{
		Kind:        session.FlashError,
		Title:       UploadFailedTitle,
		Description: UploadFailedMessage,
	})
}

func (d *Dashboard) flash(r *http.Request, sessionID string, f session.Flash) {
	if err := d.sessions.PushFlash(r.Context(), sessionID, f); err != nil {
		d.logger.Warn("queueing toast", zap.Error(err))
	}
}

func (d *Dashboard) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := session.FromContext(ctx)
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if id := strings.TrimSpace(r.PostForm.Get("document_id")); id != "" {
		if err := d.sessions.SelectDocument(ctx, sess.ID, id); err != nil {
			d.logger.Error("selecting document", zap.String("document", id), zap.Error(err))
		}
	}
	http.Redirect(w, r, backURL(r), http.StatusSeeOther)
}

func (d *Dashboard) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := session.FromContext(ctx)
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	// The draft has been sent (or was blank), so it is not carried back.
	back := router.FromQuery(r.URL.RawQuery).Link(DraftParam, "")

	msg := r.PostForm.Get("message")
	if strings.TrimSpace(msg) == "" || sess.SelectedDocument == "" {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if _, _, err := d.Converse(ctx, sess.ID, sess.SelectedDocument, msg); err != nil {
		d.logger.Error("storing chat turn", zap.Error(err))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (d *Dashboard) handleChatReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := session.FromContext(ctx)
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if sess.SelectedDocument != "" {
		if err := d.sessions.ClearTranscript(ctx, sess.ID, sess.SelectedDocument); err != nil {
			d.logger.Error("clearing transcript", zap.Error(err))
		}
	}
	http.Redirect(w, r, backURL(r), http.StatusSeeOther)
}

// Package pdfcheck validates PDF files locally before they are uploaded.
package pdfcheck

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
)

// Report describes a PDF that passed validation.
type Report struct {
	Path  string
	Pages int
}

// Check parses and validates the PDF at path. Files without the .pdf
// extension fail with pharmaapi.ErrInvalidFileType without being opened.
func Check(path string) (*Report, error) {
	if !pharmaapi.IsPDF(filepath.Base(path)) {
		return nil, fmt.Errorf("%s: %w", path, pharmaapi.ErrInvalidFileType)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rep, err := CheckReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rep.Path = path
	return rep, nil
}

// CheckReader validates a PDF stream.
func CheckReader(rs io.ReadSeeker) (*Report, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	if ctx.PageCount == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	return &Report{Pages: ctx.PageCount}, nil
}

package pharmaapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFileType is returned before any network I/O when an upload is
// not a PDF.
var ErrInvalidFileType = errors.New("invalid file type: only PDF files are supported")

// IsPDF reports whether filename has the .pdf extension the backend accepts.
// The check is case-sensitive, matching the backend.
func IsPDF(filename string) bool {
	return strings.HasSuffix(filename, ".pdf")
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == 404
}

// parseDetail pulls the FastAPI "detail" field out of an error body. The
// field is a string for HTTPException and a list for validation errors; the
// raw body is used when it is not JSON at all.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	return string(payload.Detail)
}

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/asset"
	"github.com/vbonduro/vlogadmin/internal/service"
)

const (
	maxUploadSize   = 50 * 1024 * 1024 // 50 MB per request
	maxMemoryUpload = 32 * 1024 * 1024
)

// allowedImageTypes is the set of MIME types accepted for uploaded images.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// parseSubmission reads a form post. Plain url-encoded posts are accepted so
// forms without new images still work.
func parseSubmission(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	err := r.ParseMultipartForm(maxMemoryUpload)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// formImage builds the slot for field: a newly picked file when one was sent,
// else the URL the form carried over in field_url. The returned message is
// set when the file is not an accepted image.
func formImage(r *http.Request, field string) (service.ImageSlot, string, error) {
	existing := service.ExistingImage(strings.TrimSpace(r.FormValue(field + "_url")))
	if r.MultipartForm == nil {
		return existing, "", nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 || headers[0].Size == 0 {
		return existing, "", nil
	}

	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return service.ImageSlot{}, "", fmt.Errorf("failed to open upload %s: %w", field, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.ImageSlot{}, "", fmt.Errorf("failed to read upload %s: %w", field, err)
	}
	mimeType, ok := allowedImageMIME(data)
	if !ok {
		return existing, "Unsupported image format", nil
	}
	return service.NewImage(asset.File{Name: fh.Filename, MimeType: mimeType, Data: data}), "", nil
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// progressStream sends submit progress as server-sent events. Each event
// carries a JSON object; the stream ends with a "done" or "error" event.
type progressStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
	broken  bool
}

func newProgressStream(w http.ResponseWriter) *progressStream {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	return &progressStream{w: w, flusher: flusher, enc: json.NewEncoder(w)}
}

// send writes one event. After the first write error the client is gone and
// later events are dropped.
func (p *progressStream) send(event string, v any) {
	if p.broken {
		return
	}
	if _, err := fmt.Fprintf(p.w, "event: %s\ndata: ", event); err != nil {
		p.broken = true
		return
	}
	if err := p.enc.Encode(v); err != nil {
		p.broken = true
		return
	}
	if _, err := p.w.Write([]byte("\n")); err != nil {
		p.broken = true
		return
	}
	if p.flusher != nil {
		p.flusher.Flush()
	}
}

func (p *progressStream) progress(pr service.Progress) {
	p.send("progress", pr)
}

// outcome is the payload of the final event of a progress stream.
type outcome struct {
	Kind     string            `json:"kind"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

func failureOutcome(err error) outcome {
	return outcome{
		Kind:    apperr.KindOf(err).String(),
		Message: apperr.Message(err, "could not save"),
		Fields:  apperr.FieldErrors(err),
	}
}

package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"studio/internal/domain"
)

// DefaultMaxBytes bounds how much of a selected file is read into memory.
const DefaultMaxBytes int64 = 10 << 20

// Cause distinguishes why a file was rejected.
type Cause string

const (
	CauseUnsupportedType Cause = "unsupported_type"
	CauseUnreadable      Cause = "unreadable"
	CauseTooLarge        Cause = "too_large"
)

// Error is returned for every rejected file. All causes match
// domain.ErrInvalidMedia so callers can surface them uniformly.
type Error struct {
	Cause    Cause
	MIMEType string
	Err      error
}

func (e *Error) Error() string {
	switch e.Cause {
	case CauseUnsupportedType:
		return fmt.Sprintf("media: unsupported type %q", e.MIMEType)
	case CauseTooLarge:
		return "media: file too large"
	default:
		if e.Err != nil {
			return "media: read file: " + e.Err.Error()
		}
		return "media: read file"
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrInvalidMedia}
	}
	return []error{domain.ErrInvalidMedia, e.Err}
}

// Payload is an in-memory image ready to be sent upstream.
type Payload struct {
	Data     []byte
	MIMEType string
	Base64   string
}

// DataURL renders the payload as a data URL.
func (p *Payload) DataURL() string {
	if p == nil {
		return ""
	}
	return "data:" + p.MIMEType + ";base64," + p.Base64
}

// Size returns the payload size in bytes.
func (p *Payload) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Data)
}

// Encoder converts selected files into payloads.
type Encoder struct {
	MaxBytes int64
}

// NewEncoder returns an Encoder limited to maxBytes; non-positive values use
// DefaultMaxBytes.
func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{MaxBytes: maxBytes}
}

// Encode reads r fully and returns its base64 payload. declaredType must be an
// image type.
func (e *Encoder) Encode(r io.Reader, declaredType string) (*Payload, error) {
	mimeType := normalizeType(declaredType)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, &Error{Cause: CauseUnsupportedType, MIMEType: declaredType}
	}
	if r == nil {
		return nil, &Error{Cause: CauseUnreadable, MIMEType: mimeType, Err: errors.New("no file")}
	}
	limit := e.Limit()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, &Error{Cause: CauseUnreadable, MIMEType: mimeType, Err: err}
	}
	if int64(len(data)) > limit {
		return nil, &Error{Cause: CauseTooLarge, MIMEType: mimeType}
	}
	if len(data) == 0 {
		return nil, &Error{Cause: CauseUnreadable, MIMEType: mimeType, Err: errors.New("empty file")}
	}
	return &Payload{
		Data:     data,
		MIMEType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}

// EncodeFileHeader encodes a multipart upload using its declared content type.
func (e *Encoder) EncodeFileHeader(fh *multipart.FileHeader) (*Payload, error) {
	if fh == nil {
		return nil, &Error{Cause: CauseUnreadable, Err: errors.New("no file")}
	}
	declared := fh.Header.Get("Content-Type")
	if declared == "" || declared == "application/octet-stream" {
		declared = TypeByExtension(fh.Filename)
	}
	if !strings.HasPrefix(normalizeType(declared), "image/") {
		return nil, &Error{Cause: CauseUnsupportedType, MIMEType: declared}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, &Error{Cause: CauseUnreadable, MIMEType: declared, Err: err}
	}
	defer f.Close()
	return e.Encode(f, declared)
}

// EncodeFile encodes a local file. The type is declared from the extension and
// sniffed from content when the extension is unknown.
func (e *Encoder) EncodeFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Cause: CauseUnreadable, Err: err}
	}
	defer f.Close()

	declared := TypeByExtension(path)
	if declared == "" {
		head := make([]byte, 512)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, &Error{Cause: CauseUnreadable, Err: err}
		}
		declared = http.DetectContentType(head[:n])
		return e.Encode(io.MultiReader(bytes.NewReader(head[:n]), f), declared)
	}
	return e.Encode(f, declared)
}

// Limit is the effective size bound.
func (e *Encoder) Limit() int64 {
	if e == nil || e.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return e.MaxBytes
}

// TypeByExtension returns the MIME type registered for the file extension.
func TypeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	return normalizeType(mime.TypeByExtension(ext))
}

// ExtensionForType returns a file extension for common media types.
func ExtensionForType(mimeType string) string {
	switch normalizeType(mimeType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	default:
		return ""
	}
}

// StripDataURL removes a "data:<type>;base64," prefix when present.
func StripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.Index(s, ","); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func normalizeType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(t); err == nil {
		return strings.ToLower(parsed)
	}
	return strings.ToLower(t)
}

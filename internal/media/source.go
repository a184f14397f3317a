package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"

	"musicbot/internal/textutil"
)

// CanonicalExtension and CanonicalMimeType identify already-normalized audio.
const (
	CanonicalExtension = ".mp3"
	CanonicalMimeType  = "audio/mpeg"
)

// Source references a file attached to a chat message.
type Source struct {
	ID       string `json:"file_id"`
	UniqueID string `json:"file_unique_id,omitempty"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"file_size,omitempty"`
	IsAudio  bool   `json:"is_audio,omitempty"`
}

// Fetcher streams the content of a transport file id.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, fileID string) (io.ReadCloser, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	return f(ctx, fileID)
}

// ErrNoFileID is returned when a source cannot be fetched.
var ErrNoFileID = errors.New("media source has no file id")

// Key returns a filesystem-safe identifier for the source, preferring the
// stable unique id over the transport id. It is "" when neither is usable.
func (s Source) Key() string {
	if key := textutil.SanitizeKey(s.UniqueID); key != "" {
		return key
	}
	return textutil.SanitizeKey(s.ID)
}

// DeclaredName returns the sanitized file name, or synthesizes
// "<unique-id>.<mime-subtype>" ("<unique-id>.unknown" without a mime type)
// when the sender supplied none.
func (s Source) DeclaredName() string {
	if name := textutil.SanitizeFileName(s.FileName); name != "" {
		return name
	}
	base := s.Key()
	if base == "" {
		base = "audio"
	}
	return base + "." + s.mimeSubtype()
}

func (s Source) mimeSubtype() string {
	raw := strings.TrimSpace(s.MimeType)
	if raw == "" {
		return "unknown"
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		mediaType = raw
	}
	_, sub, ok := strings.Cut(mediaType, "/")
	if !ok {
		sub = mediaType
	}
	if sub = textutil.SanitizeKey(strings.ToLower(sub)); sub != "" {
		return sub
	}
	return "unknown"
}

// IsCanonical reports whether the source already carries the canonical
// encoding. The check looks at the declared name and mime type only; a
// mislabeled file passes unconverted.
func (s Source) IsCanonical() bool {
	name := strings.ToLower(s.DeclaredName())
	if strings.HasSuffix(name, CanonicalExtension) {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(s.MimeType)
	if err != nil {
		mediaType = strings.TrimSpace(s.MimeType)
	}
	return strings.EqualFold(mediaType, CanonicalMimeType)
}

// Download streams src into dst, creating or truncating it. A partially
// written dst is removed when the copy fails.
func Download(ctx context.Context, fetcher Fetcher, src Source, dst string) (int64, error) {
	if strings.TrimSpace(src.ID) == "" {
		return 0, ErrNoFileID
	}
	body, err := fetcher.Fetch(ctx, src.ID)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", src.ID, err)
	}
	defer body.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	written, err := io.Copy(out, contextReader{ctx: ctx, r: body})
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("copy %s: %w", src.ID, err)
	}
	return written, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

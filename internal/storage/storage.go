package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CacheControlNoCache is applied to every answer image so a re-upload at the
// same path is visible on the next fetch.
const CacheControlNoCache = "no-cache, no-store, must-revalidate"

// ObjectStore is an opaque blob sink that returns publicly fetchable URLs.
// Put overwrites any object already stored at path.
type ObjectStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

// AnswerImagePath is the deterministic location of one answer image.
func AnswerImagePath(attemptID string, seq int, ext string) string {
	return fmt.Sprintf("attempts/%s/%d.%s", attemptID, seq, strings.TrimPrefix(ext, "."))
}

// ExtensionFor maps an image content type to a file extension, defaulting to jpg.
func ExtensionFor(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/heic":
		return "heic"
	default:
		return "jpg"
	}
}

// withVersion appends a v=<unix-nano> query parameter to bypass CDN and
// browser caches.
func withVersion(rawURL string, at time.Time) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("v", strconv.FormatInt(at.UnixNano(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

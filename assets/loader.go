// Package assets resolves image and font sources for the editor and holds
// the read-only logo, frame and font catalogs.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// UploadsPrefix is the URL path under which uploaded files are served.
const UploadsPrefix = "/uploads/"

// MaxAssetSize bounds how many bytes a single source may yield.
const MaxAssetSize = 20 << 20

const (
	// DefaultMemoTTL is how long a decoded image stays memoized.
	DefaultMemoTTL = 10 * time.Minute
	// DefaultMemoEntries bounds the number of memoized images.
	DefaultMemoEntries = 32
)

var (
	// ErrUnsupportedSource is returned for sources with an unknown scheme.
	ErrUnsupportedSource = errors.New("assets: unsupported source")
	// ErrTooLarge is returned when a source exceeds MaxAssetSize.
	ErrTooLarge = errors.New("assets: source too large")
)

// Loader fetches sources from data URLs, http(s) URLs and the local static
// and upload directories. Decoded images are memoized by source for a TTL,
// and the oldest entry is evicted once the memo is full.
type Loader struct {
	staticDir string
	uploadDir string
	client    *http.Client

	mu         sync.RWMutex
	memo       map[string]memoEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type memoEntry struct {
	img     image.Image
	fetched time.Time
}

// NewLoader returns a loader that serves "/uploads/..." from uploadDir and
// every other root-relative path from staticDir.
func NewLoader(staticDir, uploadDir string, client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{
		staticDir: staticDir,
		uploadDir: uploadDir,
		client:     client,
		memo:       make(map[string]memoEntry),
		ttl:        DefaultMemoTTL,
		maxEntries: DefaultMemoEntries,
		now:        time.Now,
	}
}

// SetMemoLimits changes how long and how many decoded images are kept.
// Non-positive values keep the current limit.
func (l *Loader) SetMemoLimits(ttl time.Duration, entries int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ttl > 0 {
		l.ttl = ttl
	}
	if entries > 0 {
		l.maxEntries = entries
	}
}

// MemoLen returns the number of memoized images, expired ones included.
func (l *Loader) MemoLen() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.memo)
}

// Image returns the decoded image at src.
func (l *Loader) Image(ctx context.Context, src string) (image.Image, error) {
	memoize := !strings.HasPrefix(src, "data:")
	if memoize {
		if img, ok := l.cached(src); ok {
			return img, nil
		}
	}

	data, err := l.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", describe(src), err)
	}

	if memoize {
		l.remember(src, img)
	}
	return img, nil
}

func (l *Loader) cached(src string) (image.Image, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ent, ok := l.memo[src]
	if !ok || l.now().Sub(ent.fetched) >= l.ttl {
		return nil, false
	}
	return ent.img, true
}

// remember stores img under src after dropping expired entries and, when
// still full, the oldest ones.
func (l *Loader) remember(src string, img image.Image) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	delete(l.memo, src)
	for k, ent := range l.memo {
		if now.Sub(ent.fetched) >= l.ttl {
			delete(l.memo, k)
		}
	}
	for len(l.memo) >= l.maxEntries {
		var oldest string
		var at time.Time
		for k, ent := range l.memo {
			if oldest == "" || ent.fetched.Before(at) {
				oldest, at = k, ent.fetched
			}
		}
		delete(l.memo, oldest)
	}
	l.memo[src] = memoEntry{img: img, fetched: now}
}

// Fetch returns the raw bytes behind src.
func (l *Loader) Fetch(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetchHTTP(ctx, src)
	case strings.HasPrefix(src, "/"):
		return l.readLocal(src)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, describe(src))
}

func (l *Loader) fetchHTTP(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", src, resp.StatusCode)
	}
	return readLimited(resp.Body)
}

func (l *Loader) readLocal(src string) ([]byte, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src, err)
	}
	clean := path.Clean("/" + u.Path)
	dir, rel := l.staticDir, clean
	if strings.HasPrefix(clean, UploadsPrefix) {
		dir, rel = l.uploadDir, strings.TrimPrefix(clean, UploadsPrefix)
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: no directory for %s", ErrUnsupportedSource, src)
	}
	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()
	return readLimited(f)
}

func decodeDataURL(src string) ([]byte, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: malformed data url", ErrUnsupportedSource)
	}
	header, payload := src[len("data:"):comma], src[comma+1:]
	if !strings.HasSuffix(header, ";base64") {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data url: %w", err)
		}
		return []byte(decoded), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return data, nil
}

// DataURL encodes data with the given media type as a base64 data URL.
func DataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAssetSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxAssetSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

// describe shortens data URLs for error messages.
func describe(src string) string {
	if strings.HasPrefix(src, "data:") && len(src) > 40 {
		return src[:40] + "..."
	}
	return src
}

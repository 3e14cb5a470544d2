package overlaystudio

import (
	"net/http"
	"time"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/history"
)

// StudioConfig holds all configuration for an overlaystudio server.
type StudioConfig struct {
	Name string // Display name (default "Overlay Studio")

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/studio.db")
	UploadDir    string // Where uploads are written (default "data/uploads")
	CatalogPath  string // YAML asset catalog; empty uses the built-in logos

	SessionSecret string // Required: cookie encryption secret
	CookieSecure  bool   // Set true for HTTPS

	CatalogCacheTTL time.Duration // Catalog reload interval (default 5min)
	EditorIdleTTL   time.Duration // Idle editors are closed after this (default 30min)

	ImageCacheTTL     time.Duration // How long decoded images are reused (default 10min)
	ImageCacheEntries int           // Decoded images kept at once (default 32)

	CanvasMaxWidth  float64 // Display bound when a request gives none (default 1200)
	CanvasMaxHeight float64 // (default 800)

	HistoryLimit      int    // Snapshots kept per editor (default 50)
	DefaultFontFamily string // Text tool font (default "Manrope")

	ExportsPerMinute int // Export rate per client IP (default 10)
	ExportBurst      int // (default 3)
}

func (c *StudioConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Overlay Studio"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/studio.db"
	}
	if c.UploadDir == "" {
		c.UploadDir = "data/uploads"
	}
	if c.CatalogCacheTTL == 0 {
		c.CatalogCacheTTL = 5 * time.Minute
	}
	if c.EditorIdleTTL == 0 {
		c.EditorIdleTTL = 30 * time.Minute
	}
	if c.ImageCacheTTL == 0 {
		c.ImageCacheTTL = assets.DefaultMemoTTL
	}
	if c.ImageCacheEntries == 0 {
		c.ImageCacheEntries = assets.DefaultMemoEntries
	}
	if c.CanvasMaxWidth == 0 {
		c.CanvasMaxWidth = 1200
	}
	if c.CanvasMaxHeight == 0 {
		c.CanvasMaxHeight = 800
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = history.DefaultLimit
	}
	if c.DefaultFontFamily == "" {
		c.DefaultFontFamily = "Manrope"
	}
	if c.ExportsPerMinute == 0 {
		c.ExportsPerMinute = 10
	}
	if c.ExportBurst == 0 {
		c.ExportBurst = 3
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets such as logos and
// frames (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithHTTPClient sets the client used to fetch remote images.
func WithHTTPClient(client *http.Client) Option {
	return func(a *App) {
		a.httpClient = client
	}
}

// WithScheduler replaces the wall clock behind history debounces.
func WithScheduler(s history.Scheduler) Option {
	return func(a *App) {
		a.scheduler = s
	}
}

// Package overlaystudio serves the overlay editor over HTTP. It keeps one
// editor per client, persists saved canvases to SQLite and renders exports.
//
// Users provide their own templ components via the ViewFuncs struct for
// the few HTML pages; everything else is a JSON API.
package overlaystudio

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/editor"
	"github.com/eringen/overlaystudio/history"
)

// ViewFuncs holds user-provided templ components for the HTML pages.
type ViewFuncs struct {
	Index       func(sessions []CanvasSession, name string, csrfToken string) templ.Component
	NotFound    func() templ.Component
	ServerError func() templ.Component
}

// App is the central overlaystudio application. It wires together the
// store, editors, handlers, middleware and user-provided templates.
type App struct {
	Config  StudioConfig
	Echo    *echo.Echo
	Store   *Store
	Catalog *CatalogCache
	Editors *Registry
	Images  *assets.Loader
	Fonts   *assets.FontBook
	Views   ViewFuncs

	exportLimiter *ExportLimiter
	customRoutes  []func(*App)
	staticDir     string
	httpClient    *http.Client
	scheduler     history.Scheduler
}

// New creates an App with the given configuration and view functions.
func New(cfg StudioConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store, loads fonts and registers middleware and routes.
// Start calls it; tests call it directly and drive a.Echo.
func (a *App) Init() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("overlaystudio: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("overlaystudio: init store: %w", err)
	}
	a.Store = store

	a.Catalog = NewCatalogCache(a.Config.CatalogPath, a.Config.CatalogCacheTTL)
	a.Images = assets.NewLoader(a.staticDir, a.Config.UploadDir, a.httpClient)
	a.Images.SetMemoLimits(a.Config.ImageCacheTTL, a.Config.ImageCacheEntries)

	fonts, err := assets.NewFontBook()
	if err != nil {
		return fmt.Errorf("overlaystudio: init fonts: %w", err)
	}
	a.Fonts = fonts
	cat, err := a.Catalog.Get()
	if err != nil {
		return fmt.Errorf("overlaystudio: load catalog: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := fonts.RegisterCatalog(ctx, a.Images, cat.Fonts); err != nil {
		// Text falls back to the built-in faces.
		a.Echo.Logger.Warnf("overlaystudio: %v", err)
	}

	a.Editors = NewRegistry(editor.Config{
		Images:            a.Images,
		Fonts:             a.Fonts,
		Logger:            a.Echo.Logger,
		Scheduler:         a.scheduler,
		HistoryLimit:      a.Config.HistoryLimit,
		DefaultFontFamily: a.Config.DefaultFontFamily,
	}, a.Config.EditorIdleTTL)
	a.Editors.StartSweeper(time.Minute)

	a.exportLimiter = NewExportLimiter(a.Config.ExportsPerMinute, a.Config.ExportBurst, 10*time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.Static(assets.UploadsPrefix, a.Config.UploadDir)
	e.GET("/favicon.svg", a.handleFavicon)

	e.GET("/", a.handleIndex)

	api := e.Group("/api")
	api.GET("/catalog", a.handleCatalog)
	api.POST("/uploads", a.handleUpload)
	api.GET("/sessions", a.handleListSessions)
	api.DELETE("/sessions/:id", a.handleDeleteSession)

	api.POST("/editors", a.handleCreateEditor)
	api.GET("/editors/current", a.handleCurrentEditor)

	ed := api.Group("/editors/:id")
	ed.GET("", a.handleGetEditor)
	ed.DELETE("", a.handleCloseEditor)
	ed.POST("/text", a.handleAddText)
	ed.POST("/logo", a.handleAddLogo)
	ed.POST("/qr", a.handleAddQR)
	ed.POST("/frame", a.handleAddFrame)
	ed.POST("/shape", a.handleAddShape)
	ed.PUT("/panels/:panel", a.handleSetPanel)
	ed.POST("/deselect", a.handleDeselect)
	ed.POST("/objects/:index/:gesture", a.handleGesture)
	ed.DELETE("/objects/:index", a.handleDeleteObject)
	ed.POST("/undo", a.handleUndo)
	ed.POST("/redo", a.handleRedo)
	ed.POST("/resize", a.handleResize)
	ed.POST("/save", a.handleSave)
	ed.POST("/export", a.handleExport)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Editors != nil {
		a.Editors.Close()
	}
	if a.exportLimiter != nil {
		a.exportLimiter.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("overlaystudio: required environment variable %s is not set", key)
	}
	return v
}

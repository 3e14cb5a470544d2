// Package editor owns one overlay scene and everything that edits it: the
// tools, the selection controller, the history manager and the exporter.
//
// Every exported method takes the editor's mutex. Debounce timers take the
// same mutex, so an editor behaves like a single event loop.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/export"
	"github.com/eringen/overlaystudio/history"
	"github.com/eringen/overlaystudio/scene"
	"github.com/eringen/overlaystudio/selection"
	"github.com/eringen/overlaystudio/snap"
	"github.com/eringen/overlaystudio/tools"
)

var (
	// ErrClosed is returned by operations on a closed editor.
	ErrClosed = errors.New("editor closed")
	// ErrUnknownPanel is returned for a panel name no tool owns.
	ErrUnknownPanel = errors.New("unknown panel")
	// ErrInvalidPanel wraps settings a panel merge could not decode.
	ErrInvalidPanel = errors.New("invalid panel settings")
)

// ImageSource resolves background and overlay image sources.
type ImageSource interface {
	Image(ctx context.Context, src string) (image.Image, error)
}

// Logger is satisfied by gommon and echo loggers.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Config holds the shared collaborators of an editor.
type Config struct {
	Images            ImageSource
	Fonts             *assets.FontBook
	Logger            Logger
	Scheduler         history.Scheduler
	HistoryLimit      int
	DefaultFontFamily string
}

func (c *Config) setDefaults() error {
	if c.Images == nil {
		return errors.New("editor: no image source")
	}
	if c.Fonts == nil {
		fonts, err := assets.NewFontBook()
		if err != nil {
			return fmt.Errorf("editor: fonts: %w", err)
		}
		c.Fonts = fonts
	}
	if c.Logger == nil {
		c.Logger = log.New("editor")
	}
	return nil
}

// Editor is one editing session.
type Editor struct {
	ID string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	cfg       Config
	scene     *scene.Scene
	history   *history.Manager
	selection *selection.Controller
	exporter  *export.Exporter
	logger    Logger

	sessionID string
	guides    []snap.Guide
	lastErr   error
	closed    bool
	lastUsed  atomic.Int64
}

// New builds an editor with an empty scene.
func New(id string, cfg Config) (*Editor, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Editor{
		ID:     id,
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		scene:  scene.New(),
		logger: cfg.Logger,
	}
	e.lastUsed.Store(time.Now().UnixNano())
	e.history = history.New(history.Config{
		Scene:     e.scene,
		Lock:      &e.mu,
		Loader:    cfg.Images.Image,
		Logger:    cfg.Logger,
		Scheduler: cfg.Scheduler,
		Limit:     cfg.HistoryLimit,
		OnError:   func(err error) { e.lastErr = err },
		OnRestored: func(scene.Snapshot) {
			// replayed logos, QR codes and frames may differ from their panels
			for _, role := range []scene.Role{scene.RoleLogo, scene.RoleQR, scene.RoleFrame} {
				if o := scene.FindByRole(e.scene, role); o != nil {
					e.selection.Sync(o)
				}
			}
		},
	})

	env := &tools.Env{
		Scene:   e.scene,
		History: e.history,
		Images:  cfg.Images,
		Fonts:   cfg.Fonts,
		Logger:  cfg.Logger,
	}
	e.selection = selection.New(e.scene, e.history,
		tools.NewTextTool(env, cfg.DefaultFontFamily),
		tools.NewLogoTool(env),
		tools.NewQRTool(env),
		tools.NewFrameTool(env),
		tools.NewShapeTool(env),
	)
	e.exporter = export.NewExporter(&export.Renderer{Fonts: cfg.Fonts, Images: cfg.Images})
	e.exporter.Logger = cfg.Logger
	return e, nil
}

// lock takes the mutex and marks the editor used. It fails once closed.
func (e *Editor) lock() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.lastUsed.Store(time.Now().UnixNano())
	return nil
}

// LastUsed returns when the editor last served an operation. It does not
// wait for an operation in progress.
func (e *Editor) LastUsed() time.Time {
	return time.Unix(0, e.lastUsed.Load())
}

// opContext ties ctx to the editor's lifetime, so Close aborts in-flight
// loads.
func (e *Editor) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// track records err as the editor's last error and returns it.
func (e *Editor) track(err error) error {
	e.lastErr = err
	return err
}

// LoadBackground replaces the scene with a fresh canvas for url fitted into
// maxW x maxH. Pending captures are cancelled, the history is reset and the
// empty canvas becomes its first entry.
func (e *Editor) LoadBackground(ctx context.Context, url string, maxW, maxH float64) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	bg, err := e.loadBackground(ctx, url)
	if err != nil {
		return e.track(err)
	}
	e.history.Reset()
	e.scene.Clear()
	e.scene.SetBackground(bg, bg.FitScale(maxW, maxH))
	e.sessionID = ""
	e.guides = nil
	e.lastErr = nil
	e.history.Capture(true)
	e.logger.Infof("editor %s: background %s (%dx%d)", e.ID, url, bg.NaturalWidth, bg.NaturalHeight)
	return nil
}

// Restore resumes a saved session: the background is loaded, the overlays
// and their metadata are reapplied and the restored state becomes the first
// history entry.
func (e *Editor) Restore(ctx context.Context, sessionID string, sess scene.Session, maxW, maxH float64) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	objs, err := sess.Snapshot.Objects()
	if err != nil {
		return e.track(fmt.Errorf("restore session: %w", err))
	}
	bg, err := e.loadBackground(ctx, sess.BackgroundURL)
	if err != nil {
		return e.track(err)
	}
	e.history.Reset()
	e.scene.Clear()
	bg.Scale = bg.FitScale(maxW, maxH)
	e.scene.Replace(bg, objs)
	e.sessionID = sessionID
	e.guides = nil
	e.lastErr = nil
	e.history.Capture(true)
	e.logger.Infof("editor %s: restored session %s with %d overlays", e.ID, sessionID, len(objs))
	return nil
}

func (e *Editor) loadBackground(ctx context.Context, url string) (*scene.Background, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty background url", tools.ErrInvalidInput)
	}
	ctx, done := e.opContext(ctx)
	defer done()
	img, err := e.cfg.Images.Image(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("load background: %w", err)
	}
	bg := scene.NewBackground(url, img)
	if bg.NaturalWidth == 0 || bg.NaturalHeight == 0 {
		return nil, fmt.Errorf("load background: %w: empty image", tools.ErrInvalidInput)
	}
	return bg, nil
}

// Resize fits the canvas into maxW x maxH. Overlays and every history entry
// are rescaled by the width ratio. Changes of one pixel or less are ignored.
func (e *Editor) Resize(maxW, maxH float64) (bool, error) {
	if err := e.lock(); err != nil {
		return false, err
	}
	defer e.mu.Unlock()

	oldW, _ := e.scene.Size()
	if !e.scene.Resize(maxW, maxH) {
		return false, nil
	}
	newW, _ := e.scene.Size()
	if err := e.history.Rescale(newW / oldW); err != nil {
		e.logger.Errorf("editor %s: %v", e.ID, err)
		return true, e.track(err)
	}
	return true, nil
}

// Undo replays the previous history entry. It reports whether the scene
// changed; replay failures are kept as the editor's last error.
func (e *Editor) Undo(ctx context.Context) (bool, error) {
	if err := e.lock(); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	ctx, done := e.opContext(ctx)
	defer done()
	e.guides = nil
	return e.history.Undo(ctx), nil
}

// Redo replays the next history entry. See Undo.
func (e *Editor) Redo(ctx context.Context) (bool, error) {
	if err := e.lock(); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	ctx, done := e.opContext(ctx)
	defer done()
	e.guides = nil
	return e.history.Redo(ctx), nil
}

// Export flattens the scene with the disclaimer watermark at the
// background's native resolution.
func (e *Editor) Export(ctx context.Context, opts export.Options) (*export.Result, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	ctx, done := e.opContext(ctx)
	defer done()
	return e.exporter.Export(ctx, e.scene, opts)
}

// Thumbnail renders a small JPEG preview for the session list.
func (e *Editor) Thumbnail(ctx context.Context) (*export.Result, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	ctx, done := e.opContext(ctx)
	defer done()
	return e.exporter.Thumbnail(ctx, e.scene)
}

// Session returns the persistable state of the editor.
func (e *Editor) Session() (scene.Session, error) {
	if err := e.lock(); err != nil {
		return scene.Session{}, err
	}
	defer e.mu.Unlock()
	bg := e.scene.Background()
	if bg == nil {
		return scene.Session{}, scene.ErrNoBackground
	}
	snap, err := scene.TakeSnapshot(e.scene)
	if err != nil {
		return scene.Session{}, err
	}
	return scene.Session{BackgroundURL: bg.URL, Snapshot: snap}, nil
}

// SessionID returns the id of the saved session the editor is bound to.
func (e *Editor) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// SetSessionID binds the editor to a saved session.
func (e *Editor) SetSessionID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionID = id
}

// Close cancels the editor context first, so a replay holding the lock
// aborts before it commits, then cancels timers and releases the scene.
// Closing twice is a no-op.
func (e *Editor) Close() {
	e.cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.history.Close()
	e.scene.Clear()
	e.logger.Debugf("editor %s: closed", e.ID)
}

// Package history keeps a bounded undo/redo stack of overlay snapshots and
// replays them onto a scene.
//
// A Manager is not safe for concurrent use on its own. Callers must hold the
// lock passed in Config while calling any method; debounce timers acquire the
// same lock before they touch the manager.
package history

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/eringen/overlaystudio/scene"
)

const (
	DefaultLimit        = 50
	DefaultDebounce     = 500 * time.Millisecond
	DefaultMoveDebounce = 400 * time.Millisecond
)

// Logger is the subset of the echo/gommon logger the manager writes to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// ImageLoader fetches the background image at url.
type ImageLoader func(ctx context.Context, url string) (image.Image, error)

// Config wires a Manager to its scene and collaborators.
type Config struct {
	Scene        *scene.Scene
	Lock         sync.Locker
	Loader       ImageLoader
	Logger       Logger
	Scheduler    Scheduler
	Limit        int
	Debounce     time.Duration
	MoveDebounce time.Duration

	// OnError receives replay failures.
	OnError func(error)
	// OnRestored runs after a snapshot has been applied to the scene.
	OnRestored func(scene.Snapshot)
}

func (c *Config) setDefaults() {
	if c.Lock == nil {
		c.Lock = &sync.Mutex{}
	}
	if c.Logger == nil {
		c.Logger = log.New("history")
	}
	if c.Scheduler == nil {
		c.Scheduler = WallClock
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.MoveDebounce <= 0 {
		c.MoveDebounce = DefaultMoveDebounce
	}
}

// State summarizes the stack for API responses.
type State struct {
	Length  int  `json:"length"`
	Index   int  `json:"index"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// Manager owns the snapshot stack for one scene.
type Manager struct {
	cfg       Config
	entries   []scene.Snapshot
	index     int
	restoring bool
	closed    bool
	general   *debouncer
	move      *debouncer
}

// New returns a manager with an empty stack.
func New(cfg Config) *Manager {
	cfg.setDefaults()
	return &Manager{
		cfg:     cfg,
		index:   -1,
		general: &debouncer{sched: cfg.Scheduler, delay: cfg.Debounce, lock: cfg.Lock},
		move:    &debouncer{sched: cfg.Scheduler, delay: cfg.MoveDebounce, lock: cfg.Lock},
	}
}

// Restoring reports whether a replay is in progress.
func (m *Manager) Restoring() bool { return m.restoring }

// Capture records the current overlays. Unless immediate, the capture is
// debounced and replaces any capture still pending; an immediate capture
// cancels the pending one. Captures requested during a replay, after Close,
// or before a background exists are dropped.
func (m *Manager) Capture(immediate bool) {
	if !m.accepting() {
		return
	}
	if immediate {
		m.general.cancel()
		m.save()
		return
	}
	m.general.schedule(m.save)
}

// CaptureMoved debounces an immediate capture on the move timer, which is
// independent of the general one.
func (m *Manager) CaptureMoved() {
	if !m.accepting() {
		return
	}
	m.move.schedule(func() { m.Capture(true) })
}

// CancelMove drops the pending move capture.
func (m *Manager) CancelMove() { m.move.cancel() }

// CancelPending drops every pending capture.
func (m *Manager) CancelPending() {
	m.general.cancel()
	m.move.cancel()
}

// Pending reports whether a general or move capture is scheduled.
func (m *Manager) Pending() bool { return m.general.pending() || m.move.pending() }

func (m *Manager) accepting() bool {
	return !m.closed && !m.restoring && m.cfg.Scene != nil && m.cfg.Scene.HasBackground()
}

func (m *Manager) save() {
	if !m.accepting() {
		return
	}
	snap, err := scene.TakeSnapshot(m.cfg.Scene)
	if err != nil {
		m.cfg.Logger.Errorf("history: capture: %v", err)
		return
	}
	entries := m.entries[:m.index+1]
	if n := len(entries); n > 0 && entries[n-1].OverlayJSON == snap.OverlayJSON {
		// Identical overlays: the redo tail survives.
		return
	}
	entries = append(entries, snap)
	if len(entries) > m.cfg.Limit {
		entries = append([]scene.Snapshot(nil), entries[len(entries)-m.cfg.Limit:]...)
	}
	m.entries = entries
	m.index = len(entries) - 1
	m.cfg.Logger.Debugf("history: captured entry %d of %d", m.index+1, len(m.entries))
}

// Undo replays the previous entry. It returns false at the start of the
// stack or when the replay failed; failures leave the scene and index as
// they were and are reported through OnError.
func (m *Manager) Undo(ctx context.Context) bool {
	if m.closed || m.index <= 0 {
		return false
	}
	return m.restore(ctx, "undo", m.index-1)
}

// Redo replays the next entry. See Undo.
func (m *Manager) Redo(ctx context.Context) bool {
	if m.closed || m.index >= len(m.entries)-1 {
		return false
	}
	return m.restore(ctx, "redo", m.index+1)
}

func (m *Manager) restore(ctx context.Context, op string, target int) bool {
	m.CancelPending()
	m.restoring = true
	defer func() { m.restoring = false }()

	entry := m.entries[target]
	if err := m.apply(ctx, entry); err != nil {
		err = fmt.Errorf("%s failed: %w", op, err)
		m.cfg.Logger.Errorf("history: %v", err)
		if m.cfg.OnError != nil {
			m.cfg.OnError(err)
		}
		return false
	}
	m.index = target
	if m.cfg.OnRestored != nil {
		m.cfg.OnRestored(entry)
	}
	return true
}

// apply builds the replacement scene contents aside and commits them only
// when everything loaded and ctx is still live.
func (m *Manager) apply(ctx context.Context, entry scene.Snapshot) error {
	s := m.cfg.Scene
	objs, err := entry.Objects()
	if err != nil {
		return err
	}
	bg, err := m.reloadBackground(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	hadSelection := s.Active() != nil
	s.Replace(bg, objs)
	if hadSelection {
		s.Emit(scene.EventSelectionCleared, nil)
	}
	return nil
}

func (m *Manager) reloadBackground(ctx context.Context) (*scene.Background, error) {
	cur := m.cfg.Scene.Background()
	if cur == nil {
		return nil, scene.ErrNoBackground
	}
	if m.cfg.Loader == nil {
		return cur, nil
	}
	img, err := m.cfg.Loader(ctx, cur.URL)
	if err != nil {
		return nil, fmt.Errorf("reload background: %w", err)
	}
	bg := scene.NewBackground(cur.URL, img)
	if bg.NaturalWidth != cur.NaturalWidth || bg.NaturalHeight != cur.NaturalHeight {
		return nil, errors.New("reload background: image dimensions changed")
	}
	w, h := m.cfg.Scene.Size()
	bg.Scale = bg.FitScale(w, h)
	return bg, nil
}

// Rescale multiplies the geometry of every entry by ratio after the canvas
// was resized, so replays land at the current display size. On error the
// stack is left unchanged.
func (m *Manager) Rescale(ratio float64) error {
	if ratio == 1 {
		return nil
	}
	out := make([]scene.Snapshot, len(m.entries))
	for i, e := range m.entries {
		r, err := e.Rescaled(ratio)
		if err != nil {
			return fmt.Errorf("rescale entry %d: %w", i, err)
		}
		out[i] = r
	}
	m.entries = out
	return nil
}

// Reset drops every entry and pending capture.
func (m *Manager) Reset() {
	m.CancelPending()
	m.entries = nil
	m.index = -1
}

// Close cancels pending captures. Timers that fire afterwards do nothing.
func (m *Manager) Close() {
	m.CancelPending()
	m.closed = true
}

// State returns the stack summary.
func (m *Manager) State() State {
	return State{
		Length:  len(m.entries),
		Index:   m.index,
		CanUndo: m.index > 0,
		CanRedo: m.index >= 0 && m.index < len(m.entries)-1,
	}
}

// Current returns the entry at the current index.
func (m *Manager) Current() (scene.Snapshot, bool) {
	if m.index < 0 || m.index >= len(m.entries) {
		return scene.Snapshot{}, false
	}
	return m.entries[m.index], true
}

// Entries returns a copy of the stack.
func (m *Manager) Entries() []scene.Snapshot {
	out := make([]scene.Snapshot, len(m.entries))
	copy(out, m.entries)
	return out
}

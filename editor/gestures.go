package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/scene"
	"github.com/eringen/overlaystudio/snap"
	"github.com/eringen/overlaystudio/tools"
)

// object returns the overlay at index. Index 0 is the lowest overlay; the
// background is not addressable.
func (e *Editor) object(index int) (*scene.Object, error) {
	o, err := e.scene.At(index)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", index, err)
	}
	return o, nil
}

// Select makes the overlay at index the active object. The selection
// controller syncs the matching panel without writing back to the object.
func (e *Editor) Select(index int) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	o, err := e.object(index)
	if err != nil {
		return err
	}
	e.scene.SetActive(o)
	return nil
}

// ClearSelection drops the active object. Panels keep their values.
func (e *Editor) ClearSelection() error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	e.scene.DiscardActive()
	e.guides = nil
	return nil
}

// Move drags the overlay at index to (left, top). Shapes with snapping
// enabled are pulled onto nearby guides. The move is captured once the
// object has been still for the move debounce.
func (e *Editor) Move(index int, left, top float64) ([]snap.Guide, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	o, err := e.object(index)
	if err != nil {
		return nil, err
	}
	o.Left, o.Top = left, top
	e.scene.Emit(scene.EventObjectMoving, o)
	e.guides = snap.Apply(e.scene, o)
	e.history.CaptureMoved()
	return e.guides, nil
}

// Scale sets the scale factors of the overlay at index. Like a drag, it is
// committed by Release.
func (e *Editor) Scale(index int, scaleX, scaleY float64) ([]snap.Guide, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	o, err := e.object(index)
	if err != nil {
		return nil, err
	}
	if scaleX <= 0 || scaleY <= 0 {
		return nil, fmt.Errorf("%w: scale must be positive", tools.ErrInvalidInput)
	}
	o.ScaleX, o.ScaleY = scaleX, scaleY
	e.scene.Emit(scene.EventObjectScaling, o)
	e.guides = snap.Apply(e.scene, o)
	return e.guides, nil
}

// Rotate sets the angle of the overlay at index in degrees. It is committed
// by Release.
func (e *Editor) Rotate(index int, angle float64) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	o, err := e.object(index)
	if err != nil {
		return err
	}
	o.Angle = angle
	return nil
}

// Release ends a transform gesture: the pending move capture is cancelled,
// listeners see the object as modified and the state is captured at once.
func (e *Editor) Release(index int) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	o, err := e.object(index)
	if err != nil {
		return err
	}
	e.guides = nil
	e.history.CancelMove()
	e.scene.Modified(o)
	e.history.Capture(true)
	return nil
}

// EditText replaces the content of the text overlay at index. Typing is
// captured with the general debounce.
func (e *Editor) EditText(index int, content string) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	o, err := e.object(index)
	if err != nil {
		return err
	}
	if err := e.selection.Text.SetContent(o, content); err != nil {
		return err
	}
	e.scene.Emit(scene.EventTextChanged, o)
	e.history.Capture(false)
	return nil
}

// ExitTextEditing ends in-place editing of the text overlay at index and
// captures immediately.
func (e *Editor) ExitTextEditing(index int) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	o, err := e.object(index)
	if err != nil {
		return err
	}
	e.scene.Emit(scene.EventTextEditingExited, o)
	e.history.Capture(true)
	return nil
}

// Delete removes the overlay at index.
func (e *Editor) Delete(index int) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	o, err := e.object(index)
	if err != nil {
		return err
	}
	e.scene.Remove(o)
	e.guides = nil
	e.history.Capture(true)
	return nil
}

// AddText adds a text overlay styled from the text panel.
func (e *Editor) AddText() (int, error) {
	if err := e.lock(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()
	return e.added(e.selection.Text.Add())
}

// AddLogo loads src and adds it as a logo.
func (e *Editor) AddLogo(ctx context.Context, src string) (int, error) {
	if err := e.lock(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()
	ctx, done := e.opContext(ctx)
	defer done()
	return e.added(e.selection.Logo.Add(ctx, src))
}

// AddQR generates a QR code for url and adds it. An empty url uses the
// panel's URL.
func (e *Editor) AddQR(ctx context.Context, url string) (int, error) {
	if err := e.lock(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()
	ctx, done := e.opContext(ctx)
	defer done()
	qr := e.selection.QR
	if strings.TrimSpace(url) != "" {
		p := qr.Panel()
		p.URL = url
		qr.SetPanel(p)
	}
	return e.added(qr.AddFromURL(ctx))
}

// AddFrame inserts frame a, replacing any existing frame.
func (e *Editor) AddFrame(ctx context.Context, a assets.Asset) (int, error) {
	if err := e.lock(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()
	ctx, done := e.opContext(ctx)
	defer done()
	return e.added(e.selection.Frame.Insert(ctx, a))
}

// AddShape adds a shape of the given type directly above the background.
func (e *Editor) AddShape(shapeType scene.ShapeType) (int, error) {
	if err := e.lock(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()
	return e.added(e.selection.Shape.Add(shapeType))
}

func (e *Editor) added(o *scene.Object, err error) (int, error) {
	if err != nil {
		return -1, err
	}
	return e.scene.IndexOf(o), nil
}

// FrameRatio returns the aspect ratio frames must match.
func (e *Editor) FrameRatio() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.Frame.Ratio()
}

// UpdatePanel merges into the current settings of the named panel and
// applies the result. merge receives a pointer to the panel value; the read
// and the write happen under one lock.
func (e *Editor) UpdatePanel(name string, merge func(any) error) (bool, error) {
	if err := e.lock(); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	c := e.selection
	switch name {
	case "text":
		return mergePanel(c.Text.Panel(), merge, c.SetTextPanel)
	case "logo":
		return mergePanel(c.Logo.Panel(), merge, c.SetLogoPanel)
	case "qr":
		return mergePanel(c.QR.Panel(), merge, c.SetQRPanel)
	case "frame":
		return mergePanel(c.Frame.Panel(), merge, c.SetFramePanel)
	case "shape":
		return mergePanel(c.Shape.Panel(), merge, c.SetShapePanel)
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownPanel, name)
}

func mergePanel[P any](p P, merge func(any) error, set func(P) bool) (bool, error) {
	if err := merge(&p); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidPanel, err)
	}
	return set(p), nil
}

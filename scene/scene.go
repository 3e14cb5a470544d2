package scene

import (
	"errors"
	"image"
	"math"
)

// ErrNoBackground is returned by operations that need a loaded background.
var ErrNoBackground = errors.New("scene: no background")

// ErrIndexOutOfRange is returned when an overlay index does not exist.
var ErrIndexOutOfRange = errors.New("scene: overlay index out of range")

// Background is the locked image layer at canvas index 0.
type Background struct {
	URL           string
	Image         image.Image
	NaturalWidth  int
	NaturalHeight int
	// Scale maps natural pixels to display pixels.
	Scale float64
}

// NewBackground wraps img loaded from url with a unit display scale.
func NewBackground(url string, img image.Image) *Background {
	b := img.Bounds()
	return &Background{
		URL:           url,
		Image:         img,
		NaturalWidth:  b.Dx(),
		NaturalHeight: b.Dy(),
		Scale:         1,
	}
}

// FitScale returns min(1, maxW/naturalW, maxH/naturalH). A non-positive
// bound is treated as unconstrained.
func (b *Background) FitScale(maxW, maxH float64) float64 {
	s := 1.0
	if maxW > 0 {
		s = math.Min(s, maxW/float64(b.NaturalWidth))
	}
	if maxH > 0 {
		s = math.Min(s, maxH/float64(b.NaturalHeight))
	}
	return s
}

// DisplaySize returns the background size at its current scale.
func (b *Background) DisplaySize() (float64, float64) {
	return float64(b.NaturalWidth) * b.Scale, float64(b.NaturalHeight) * b.Scale
}

// EventType identifies a scene change.
type EventType int

const (
	EventObjectAdded EventType = iota
	EventObjectRemoved
	EventObjectModified
	EventObjectMoving
	EventObjectScaling
	EventTextChanged
	EventTextEditingExited
	EventSelectionChanged
	EventSelectionCleared
	EventCleared
)

// EventListener receives the object an event concerns, or nil.
type EventListener func(o *Object)

// Scene is the canvas: a background plus overlay objects in paint order.
// It is not safe for concurrent use; callers serialize access.
type Scene struct {
	width, height float64
	background    *Background
	objects       []*Object
	active        *Object
	listeners     map[EventType][]EventListener
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{listeners: make(map[EventType][]EventListener)}
}

// On registers listener for event.
func (s *Scene) On(event EventType, listener EventListener) {
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit calls every listener registered for event.
func (s *Scene) Emit(event EventType, o *Object) {
	for _, l := range s.listeners[event] {
		l(o)
	}
}

// Size returns the display canvas size.
func (s *Scene) Size() (float64, float64) { return s.width, s.height }

// Background returns the current background or nil.
func (s *Scene) Background() *Background { return s.background }

// HasBackground reports whether a background is attached.
func (s *Scene) HasBackground() bool { return s.background != nil }

// SetBackground attaches bg at the given display scale and sizes the canvas to
// match. Existing overlays are left untouched.
func (s *Scene) SetBackground(bg *Background, scale float64) {
	bg.Scale = scale
	s.background = bg
	s.width, s.height = bg.DisplaySize()
}

// Objects returns the overlays in paint order. The slice is a copy.
func (s *Scene) Objects() []*Object {
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Len returns the number of overlays.
func (s *Scene) Len() int { return len(s.objects) }

// At returns the overlay at index.
func (s *Scene) At(index int) (*Object, error) {
	if index < 0 || index >= len(s.objects) {
		return nil, ErrIndexOutOfRange
	}
	return s.objects[index], nil
}

// IndexOf returns the overlay index of o, or -1.
func (s *Scene) IndexOf(o *Object) int {
	for i, x := range s.objects {
		if x == o {
			return i
		}
	}
	return -1
}

// Add appends o on top of every other overlay.
func (s *Scene) Add(o *Object) {
	s.objects = append(s.objects, o)
	s.Emit(EventObjectAdded, o)
}

// Insert places o at overlay index, clamped to the valid range. Index 0 is
// directly above the background.
func (s *Scene) Insert(index int, o *Object) {
	if index < 0 {
		index = 0
	}
	if index > len(s.objects) {
		index = len(s.objects)
	}
	s.objects = append(s.objects, nil)
	copy(s.objects[index+1:], s.objects[index:])
	s.objects[index] = o
	s.Emit(EventObjectAdded, o)
}

// Remove deletes o from the overlays. It reports whether o was present.
func (s *Scene) Remove(o *Object) bool {
	i := s.IndexOf(o)
	if i < 0 {
		return false
	}
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	if s.active == o {
		s.active = nil
		s.Emit(EventSelectionCleared, nil)
	}
	s.Emit(EventObjectRemoved, o)
	return true
}

// BringToFront moves o to the top of the paint order.
func (s *Scene) BringToFront(o *Object) {
	i := s.IndexOf(o)
	if i < 0 || i == len(s.objects)-1 {
		return
	}
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	s.objects = append(s.objects, o)
}

// Active returns the selected overlay or nil.
func (s *Scene) Active() *Object { return s.active }

// SetActive selects o. Selecting an object that is not in the scene is a no-op.
func (s *Scene) SetActive(o *Object) {
	if o == nil {
		s.DiscardActive()
		return
	}
	if s.IndexOf(o) < 0 || s.active == o {
		return
	}
	s.active = o
	s.Emit(EventSelectionChanged, o)
}

// DiscardActive clears the selection.
func (s *Scene) DiscardActive() {
	if s.active == nil {
		return
	}
	s.active = nil
	s.Emit(EventSelectionCleared, nil)
}

// Modified notifies listeners that o changed.
func (s *Scene) Modified(o *Object) { s.Emit(EventObjectModified, o) }

// Clear drops the background, every overlay and the selection.
func (s *Scene) Clear() {
	s.background = nil
	s.objects = nil
	s.active = nil
	s.width, s.height = 0, 0
	s.Emit(EventCleared, nil)
}

// Replace swaps in a new background and overlay list in one step. The
// selection is cleared silently; no per-object events are emitted.
func (s *Scene) Replace(bg *Background, objects []*Object) {
	s.background = bg
	s.objects = objects
	s.active = nil
	if bg != nil {
		s.width, s.height = bg.DisplaySize()
	}
}

// Resize fits the background into maxW x maxH and rescales every overlay by
// the ratio of new to old canvas width. It reports whether anything changed;
// differences of one pixel or less are ignored.
func (s *Scene) Resize(maxW, maxH float64) bool {
	if s.background == nil {
		return false
	}
	scale := s.background.FitScale(maxW, maxH)
	newW := float64(s.background.NaturalWidth) * scale
	newH := float64(s.background.NaturalHeight) * scale
	if math.Abs(newW-s.width) <= 1 && math.Abs(newH-s.height) <= 1 {
		return false
	}
	ratio := newW / s.width
	for _, o := range s.objects {
		o.Left *= ratio
		o.Top *= ratio
		o.ScaleUniform(ratio)
	}
	s.background.Scale = scale
	s.width, s.height = newW, newH
	return true
}

// ExportMultiplier is the factor that maps display pixels back to the
// background's natural resolution.
func (s *Scene) ExportMultiplier() float64 {
	if s.background == nil || s.width == 0 {
		return 1
	}
	return float64(s.background.NaturalWidth) / s.width
}

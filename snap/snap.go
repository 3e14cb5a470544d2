// Package snap aligns a moving shape to the canvas guides and to the edges
// and centers of the other overlays.
package snap

import (
	"math"

	"github.com/eringen/overlaystudio/scene"
)

const (
	DefaultThreshold = 5
	MinThreshold     = 1
	MaxThreshold     = 20
)

// Orientation tells whether a guide is a vertical (x) or horizontal (y) line.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// Guide is an ephemeral alignment line shown while dragging.
type Guide struct {
	Orientation Orientation `json:"orientation"`
	Position    float64     `json:"position"`
}

// Result is the outcome of one snapping pass: the offset to apply to the
// object's bounding box and the guides that matched.
type Result struct {
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Guides []Guide `json:"guides"`
}

// Snapped reports whether any check matched.
func (r Result) Snapped() bool { return len(r.Guides) > 0 }

// ClampThreshold bounds t to the accepted range.
func ClampThreshold(t float64) float64 {
	return math.Max(MinThreshold, math.Min(MaxThreshold, t))
}

// Targets returns the candidate x and y positions: the canvas guides first,
// then left/center/right and top/center/bottom of every other box.
func Targets(canvasW, canvasH float64, others []scene.Box) (xs, ys []float64) {
	xs = append(xs, 0, canvasW/2, canvasW)
	ys = append(ys, 0, canvasH/2, canvasH)
	for _, b := range others {
		xs = append(xs, b.Left, b.CenterX(), b.Right())
		ys = append(ys, b.Top, b.CenterY(), b.Bottom())
	}
	return xs, ys
}

// closest returns the candidate nearest to pos with distance strictly below
// threshold. Ties keep the earliest candidate.
func closest(pos float64, candidates []float64, threshold float64) (float64, bool) {
	best, found := 0.0, false
	limit := threshold
	for _, c := range candidates {
		if d := math.Abs(pos - c); d < limit {
			limit = d
			best = c
			found = true
		}
	}
	return best, found
}

// Compute runs the six ordered checks (left, right, center-x, top, bottom,
// center-y) against the pre-snap box. Each check is evaluated independently;
// when several match on an axis the later one decides the final position.
func Compute(canvasW, canvasH float64, self scene.Box, others []scene.Box, threshold float64) Result {
	xs, ys := Targets(canvasW, canvasH, others)
	var r Result
	newLeft, newTop := self.Left, self.Top

	if p, ok := closest(self.Left, xs, threshold); ok {
		newLeft = p
		r.Guides = append(r.Guides, Guide{Vertical, p})
	}
	if p, ok := closest(self.Right(), xs, threshold); ok {
		newLeft = p - self.Width
		r.Guides = append(r.Guides, Guide{Vertical, p})
	}
	if p, ok := closest(self.CenterX(), xs, threshold); ok {
		newLeft = p - self.Width/2
		r.Guides = append(r.Guides, Guide{Vertical, p})
	}
	if p, ok := closest(self.Top, ys, threshold); ok {
		newTop = p
		r.Guides = append(r.Guides, Guide{Horizontal, p})
	}
	if p, ok := closest(self.Bottom(), ys, threshold); ok {
		newTop = p - self.Height
		r.Guides = append(r.Guides, Guide{Horizontal, p})
	}
	if p, ok := closest(self.CenterY(), ys, threshold); ok {
		newTop = p - self.Height/2
		r.Guides = append(r.Guides, Guide{Horizontal, p})
	}

	r.DX = newLeft - self.Left
	r.DY = newTop - self.Top
	return r
}

// Apply snaps o within s when o is a shape with snapping enabled. It moves o
// by the computed offset and returns the matched guides. The background and
// transient objects are never snap targets.
func Apply(s *scene.Scene, o *scene.Object) []Guide {
	if o.Shape == nil || !o.Shape.SnapEnabled {
		return nil
	}
	var others []scene.Box
	for _, x := range s.Objects() {
		if x == o || x.Transient {
			continue
		}
		others = append(others, x.BoundingBox())
	}
	w, h := s.Size()
	r := Compute(w, h, o.BoundingBox(), others, ClampThreshold(o.Shape.SnapThreshold))
	if !r.Snapped() {
		return nil
	}
	o.Translate(r.DX, r.DY)
	return r.Guides
}

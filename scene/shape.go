package scene

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ShapeType names one entry of the vector shape catalog.
type ShapeType string

const (
	ShapeRectangle        ShapeType = "rectangle"
	ShapeSquare           ShapeType = "square"
	ShapeRoundedRectangle ShapeType = "rounded-rectangle"
	ShapeCircle           ShapeType = "circle"
	ShapeHalfCircleTop    ShapeType = "half-circle-top"
	ShapeHalfCircleBottom ShapeType = "half-circle-bottom"
	ShapeTriangle         ShapeType = "triangle"
	ShapeStar             ShapeType = "star"
	ShapeDiamond          ShapeType = "diamond"
	ShapeHexagon          ShapeType = "hexagon"
	ShapeArrow            ShapeType = "arrow"
	ShapeCross            ShapeType = "cross"
)

// ShapeSpec is a catalog entry.
type ShapeSpec struct {
	Type  ShapeType `json:"type" yaml:"type"`
	Label string    `json:"label" yaml:"label"`
}

// ShapeCatalog lists the supported shapes in menu order.
var ShapeCatalog = []ShapeSpec{
	{ShapeRectangle, "Rectangle"},
	{ShapeSquare, "Square"},
	{ShapeRoundedRectangle, "Rounded Rectangle"},
	{ShapeCircle, "Circle"},
	{ShapeHalfCircleTop, "Half Circle (Top)"},
	{ShapeHalfCircleBottom, "Half Circle (Bottom)"},
	{ShapeTriangle, "Triangle"},
	{ShapeStar, "Star"},
	{ShapeDiamond, "Diamond"},
	{ShapeHexagon, "Hexagon"},
	{ShapeArrow, "Arrow"},
	{ShapeCross, "Cross"},
}

// LookupShape returns the catalog entry for t.
func LookupShape(t ShapeType) (ShapeSpec, error) {
	for _, s := range ShapeCatalog {
		if s.Type == t {
			return s, nil
		}
	}
	return ShapeSpec{}, fmt.Errorf("unknown shape type %q", t)
}

// DefaultCornerRadius is the rx used for rounded rectangles.
const DefaultCornerRadius = 15

const arcSegments = 48

// Outline returns the closed polygon for t in a unit square with the origin
// at the top-left. Rectangles and squares return their four corners; rounded
// corners are left to the renderer via ShapeProps.CornerRadius.
func Outline(t ShapeType) []r2.Vec {
	switch t {
	case ShapeRectangle, ShapeSquare, ShapeRoundedRectangle:
		return []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	case ShapeCircle:
		return arc(0.5, 0.5, 0.5, 0.5, 0, 2*math.Pi, arcSegments)
	case ShapeHalfCircleTop:
		// Flat edge along the bottom.
		return arc(0.5, 1, 0.5, 1, math.Pi, 2*math.Pi, arcSegments/2)
	case ShapeHalfCircleBottom:
		return arc(0.5, 0, 0.5, 1, 0, math.Pi, arcSegments/2)
	case ShapeTriangle:
		return []r2.Vec{{X: 0.5, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	case ShapeDiamond:
		return []r2.Vec{{X: 0.5, Y: 0}, {X: 1, Y: 0.5}, {X: 0.5, Y: 1}, {X: 0, Y: 0.5}}
	case ShapeHexagon:
		return regular(6, 0)
	case ShapeStar:
		return star(5, 0.5, 0.2)
	case ShapeArrow:
		return []r2.Vec{
			{X: 0, Y: 0.3}, {X: 0.6, Y: 0.3}, {X: 0.6, Y: 0},
			{X: 1, Y: 0.5},
			{X: 0.6, Y: 1}, {X: 0.6, Y: 0.7}, {X: 0, Y: 0.7},
		}
	case ShapeCross:
		const a, b = 1.0 / 3, 2.0 / 3
		return []r2.Vec{
			{X: a, Y: 0}, {X: b, Y: 0}, {X: b, Y: a}, {X: 1, Y: a},
			{X: 1, Y: b}, {X: b, Y: b}, {X: b, Y: 1}, {X: a, Y: 1},
			{X: a, Y: b}, {X: 0, Y: b}, {X: 0, Y: a}, {X: a, Y: a},
		}
	}
	return nil
}

func arc(cx, cy, rx, ry, from, to float64, n int) []r2.Vec {
	pts := make([]r2.Vec, 0, n+1)
	step := (to - from) / float64(n)
	for i := 0; i <= n; i++ {
		a := from + step*float64(i)
		pts = append(pts, r2.Vec{X: cx + rx*math.Cos(a), Y: cy + ry*math.Sin(a)})
	}
	return pts
}

func regular(n int, phase float64) []r2.Vec {
	pts := make([]r2.Vec, n)
	for i := range pts {
		a := phase + 2*math.Pi*float64(i)/float64(n)
		pts[i] = r2.Vec{X: 0.5 + 0.5*math.Cos(a), Y: 0.5 + 0.5*math.Sin(a)}
	}
	return pts
}

func star(points int, outer, inner float64) []r2.Vec {
	pts := make([]r2.Vec, 0, points*2)
	for i := 0; i < points*2; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := -math.Pi/2 + math.Pi*float64(i)/float64(points)
		pts = append(pts, r2.Vec{X: 0.5 + r*math.Cos(a), Y: 0.5 + r*math.Sin(a)})
	}
	return pts
}

package scene

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Kind identifies how an overlay object is drawn.
type Kind string

const (
	KindText      Kind = "text"
	KindImage     Kind = "image"
	KindShape     Kind = "shape"
	KindWatermark Kind = "watermark"
)

func (k Kind) valid() bool {
	switch k {
	case KindText, KindImage, KindShape, KindWatermark:
		return true
	}
	return false
}

// Object is a positioned, resizable, rotatable overlay element. Left and Top
// locate the unrotated top-left corner; Angle rotates (in degrees, clockwise)
// around that corner. Width and Height are the intrinsic, unscaled size.
type Object struct {
	Kind     Kind    `json:"type"`
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Angle    float64 `json:"angle"`
	Opacity  float64 `json:"opacity"`
	Role     Role    `json:"role,omitempty"`
	Editable bool    `json:"isEditable"`

	Src       string          `json:"src,omitempty"`
	Text      *TextProps      `json:"text,omitempty"`
	Shape     *ShapeProps     `json:"shape,omitempty"`
	Watermark *WatermarkProps `json:"-"`

	// Transient objects (the export watermark) are never serialized.
	Transient bool `json:"-"`
}

// TextProps holds the style of a text object. Colors use the rgba() string form.
type TextProps struct {
	Content         string  `json:"content"`
	FontSize        float64 `json:"fontSize"`
	FontFamily      string  `json:"fontFamily"`
	FontWeight      string  `json:"fontWeight"`
	FontStyle       string  `json:"fontStyle"`
	Underline       bool    `json:"underline"`
	LineHeight      float64 `json:"lineHeight"`
	CharSpacing     float64 `json:"charSpacing"`
	Fill            string  `json:"fill"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
}

// Bold reports whether the text is drawn with a bold weight.
func (t *TextProps) Bold() bool { return t.FontWeight == "bold" }

// Italic reports whether the text is drawn italic.
func (t *TextProps) Italic() bool { return t.FontStyle == "italic" }

// ShapeProps holds the style of a vector shape, including its snapping settings.
type ShapeProps struct {
	ShapeType     ShapeType `json:"shapeType"`
	Fill          string    `json:"fill"`
	Stroke        string    `json:"stroke"`
	StrokeWidth   float64   `json:"strokeWidth"`
	CornerRadius  float64   `json:"rx,omitempty"`
	SnapEnabled   bool      `json:"snapEnabled"`
	SnapThreshold float64   `json:"snapThreshold"`
}

// WatermarkProps describes the disclaimer block composed onto exports.
type WatermarkProps struct {
	Line1       string
	Line2Prefix string
	Line2Brand  string
	FontSize    float64
	Padding     float64
	LineGap     float64
	TextColor   string
	ShadowColor string
	Background  string
}

// NewObject returns an object of kind with unit scale and full opacity.
func NewObject(kind Kind) *Object {
	return &Object{
		Kind:    kind,
		ScaleX:  1,
		ScaleY:  1,
		Opacity: 1,
	}
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	c := *o
	if o.Text != nil {
		t := *o.Text
		c.Text = &t
	}
	if o.Shape != nil {
		sh := *o.Shape
		c.Shape = &sh
	}
	if o.Watermark != nil {
		w := *o.Watermark
		c.Watermark = &w
	}
	return &c
}

func (o *Object) strokeWidth() float64 {
	if o.Shape != nil {
		return o.Shape.StrokeWidth
	}
	return 0
}

// ScaledWidth is the rendered width before rotation, stroke included.
func (o *Object) ScaledWidth() float64 {
	return (o.Width + o.strokeWidth()) * o.ScaleX
}

// ScaledHeight is the rendered height before rotation, stroke included.
func (o *Object) ScaledHeight() float64 {
	return (o.Height + o.strokeWidth()) * o.ScaleY
}

// MaxDimension returns the larger of the scaled width and height.
func (o *Object) MaxDimension() float64 {
	return math.Max(o.ScaledWidth(), o.ScaledHeight())
}

// Box is an axis-aligned rectangle in canvas coordinates.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (b Box) Right() float64 { return b.Left + b.Width }

// Bottom returns the y coordinate of the bottom edge.
func (b Box) Bottom() float64 { return b.Top + b.Height }

// CenterX returns the horizontal center.
func (b Box) CenterX() float64 { return b.Left + b.Width/2 }

// CenterY returns the vertical center.
func (b Box) CenterY() float64 { return b.Top + b.Height/2 }

// Corners returns the four rotated corners of o in canvas coordinates,
// clockwise from the origin corner.
func (o *Object) Corners() [4]r2.Vec {
	origin := r2.Vec{X: o.Left, Y: o.Top}
	w, h := o.ScaledWidth(), o.ScaledHeight()
	local := [4]r2.Vec{
		origin,
		{X: o.Left + w, Y: o.Top},
		{X: o.Left + w, Y: o.Top + h},
		{X: o.Left, Y: o.Top + h},
	}
	if o.Angle == 0 {
		return local
	}
	alpha := o.Angle * math.Pi / 180
	var out [4]r2.Vec
	for i, p := range local {
		out[i] = r2.Rotate(p, alpha, origin)
	}
	return out
}

// BoundingBox returns the axis-aligned box enclosing the rotated object.
func (o *Object) BoundingBox() Box {
	corners := o.Corners()
	lo, hi := corners[0], corners[0]
	for _, p := range corners[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	size := r2.Sub(hi, lo)
	return Box{Left: lo.X, Top: lo.Y, Width: size.X, Height: size.Y}
}

// Translate shifts the object by (dx, dy).
func (o *Object) Translate(dx, dy float64) {
	o.Left += dx
	o.Top += dy
}

// ScaleUniform multiplies both scale factors by f. Repeated calls compose.
func (o *Object) ScaleUniform(f float64) {
	o.ScaleX *= f
	o.ScaleY *= f
}

// Validate checks the invariants every deserialized object must satisfy.
func (o *Object) Validate() error {
	if !o.Kind.valid() || o.Kind == KindWatermark {
		return fmt.Errorf("invalid object type %q", o.Kind)
	}
	if !o.Role.Valid() {
		return fmt.Errorf("invalid role %q", o.Role)
	}
	switch o.Kind {
	case KindText:
		if o.Text == nil {
			return fmt.Errorf("text object without text properties")
		}
	case KindShape:
		if o.Shape == nil {
			return fmt.Errorf("shape object without shape properties")
		}
	case KindImage:
		if o.Src == "" {
			return fmt.Errorf("image object without src")
		}
	}
	for _, v := range []float64{o.Left, o.Top, o.Width, o.Height, o.ScaleX, o.ScaleY, o.Angle, o.Opacity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite geometry on %s object", o.Kind)
		}
	}
	return nil
}

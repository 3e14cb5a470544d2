package tools

import (
	"fmt"

	"github.com/eringen/overlaystudio/scene"
	"github.com/eringen/overlaystudio/snap"
)

const (
	DefaultShapeSize        = 150
	DefaultShapeStrokeWidth = 2
	DefaultShapeOpacity     = 100
	maxStrokeWidth          = 20
)

// ShapePanel is the shape tool's settings.
type ShapePanel struct {
	ShapeType     scene.ShapeType `json:"shapeType"`
	Fill          scene.RGBA      `json:"fill"`
	Stroke        scene.RGBA      `json:"stroke"`
	StrokeWidth   float64         `json:"strokeWidth"`
	Opacity       int             `json:"opacity"`
	SnapEnabled   bool            `json:"snapEnabled"`
	SnapThreshold float64         `json:"snapThreshold"`
}

// DefaultShapePanel returns the initial shape settings.
func DefaultShapePanel() ShapePanel {
	return ShapePanel{
		ShapeType:     scene.ShapeRectangle,
		Fill:          scene.RGBA{R: 0, G: 0, B: 0, A: 0.3},
		Stroke:        scene.RGBA{R: 0, G: 0, B: 0, A: 1},
		StrokeWidth:   DefaultShapeStrokeWidth,
		Opacity:       DefaultShapeOpacity,
		SnapEnabled:   true,
		SnapThreshold: snap.DefaultThreshold,
	}
}

func (p ShapePanel) normalized() ShapePanel {
	p.StrokeWidth = clampFloat(p.StrokeWidth, 0, maxStrokeWidth)
	p.Opacity = clampInt(p.Opacity, 0, 100)
	p.SnapThreshold = snap.ClampThreshold(p.SnapThreshold)
	if p.ShapeType == "" {
		p.ShapeType = scene.ShapeRectangle
	}
	return p
}

func (p ShapePanel) apply(o *scene.Object) {
	sh := o.Shape
	sh.Fill = p.Fill.String()
	sh.Stroke = p.Stroke.String()
	sh.StrokeWidth = p.StrokeWidth
	sh.SnapEnabled = p.SnapEnabled
	sh.SnapThreshold = p.SnapThreshold
	o.Opacity = percent(p.Opacity)
}

// ShapeTool adds and styles vector shapes.
type ShapeTool struct {
	env   *Env
	panel ShapePanel
}

// NewShapeTool returns a shape tool with default settings.
func NewShapeTool(env *Env) *ShapeTool {
	return &ShapeTool{env: env, panel: DefaultShapePanel()}
}

// Panel returns the current settings.
func (t *ShapeTool) Panel() ShapePanel { return t.panel }

// SetPanel replaces the settings. Out-of-range values are clamped.
func (t *ShapeTool) SetPanel(p ShapePanel) { t.panel = p.normalized() }

// Add creates a shape of the given type centered on the canvas and places it
// directly above the background. An empty type uses the panel's type.
func (t *ShapeTool) Add(shapeType scene.ShapeType) (*scene.Object, error) {
	if err := t.env.requireCanvas(); err != nil {
		return nil, err
	}
	if shapeType == "" {
		shapeType = t.panel.ShapeType
	}
	if _, err := scene.LookupShape(shapeType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	cw, ch := t.env.Scene.Size()

	o := scene.NewObject(scene.KindShape)
	o.Width, o.Height = DefaultShapeSize, DefaultShapeSize
	o.Left = cw/2 - DefaultShapeSize/2
	o.Top = ch/2 - DefaultShapeSize/2
	o.Shape = &scene.ShapeProps{ShapeType: shapeType}
	if shapeType == scene.ShapeRoundedRectangle {
		o.Shape.CornerRadius = scene.DefaultCornerRadius
	}
	t.panel.apply(o)
	scene.TagRole(o, scene.RoleShape)

	t.env.Scene.Insert(0, o)
	t.env.Scene.SetActive(o)
	t.env.History.Capture(true)
	t.env.logger().Debugf("%s shape added", shapeType)
	return o, nil
}

// UpdateSelected applies the panel to the targeted shape.
func (t *ShapeTool) UpdateSelected() bool {
	o := scene.TargetForRole(t.env.Scene, scene.RoleShape)
	if o == nil || o.Shape == nil {
		return false
	}
	t.panel.apply(o)
	return true
}

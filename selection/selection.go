// Package selection keeps the tool panels in step with the selected object
// and routes panel edits back to the scene.
package selection

import (
	"strings"

	"github.com/eringen/overlaystudio/scene"
	"github.com/eringen/overlaystudio/tools"
)

// Mode tells whether panel writes come from the user or from a selection.
type Mode int

const (
	Idle Mode = iota
	SyncingFromSelection
)

func (m Mode) String() string {
	if m == SyncingFromSelection {
		return "syncing"
	}
	return "idle"
}

// fallbackFontFamily is shown when a text object has no family.
const fallbackFontFamily = "Arial"

// Controller derives panel state from the selected object. While it writes
// panels it is in SyncingFromSelection, and panel change effects are skipped
// so the newly selected object is never overwritten with stale settings.
type Controller struct {
	scene   *scene.Scene
	history tools.Capturer
	mode    Mode

	Text  *tools.TextTool
	Logo  *tools.LogoTool
	QR    *tools.QRTool
	Frame *tools.FrameTool
	Shape *tools.ShapeTool
}

// New wires a controller to s. It subscribes to selection changes and to
// object modifications of logos, QR codes and frames.
func New(s *scene.Scene, history tools.Capturer, text *tools.TextTool, logo *tools.LogoTool, qr *tools.QRTool, frame *tools.FrameTool, shape *tools.ShapeTool) *Controller {
	c := &Controller{
		scene:   s,
		history: history,
		Text:    text,
		Logo:    logo,
		QR:      qr,
		Frame:   frame,
		Shape:   shape,
	}
	s.On(scene.EventSelectionChanged, c.Sync)
	s.On(scene.EventObjectModified, c.refreshImage)
	return c
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.mode }

// Sync writes the panels of o's role from o. Objects without a recognised
// role leave every panel untouched.
func (c *Controller) Sync(o *scene.Object) {
	if o == nil {
		return
	}
	c.mode = SyncingFromSelection
	defer func() { c.mode = Idle }()

	switch o.Role {
	case scene.RoleText:
		c.syncText(o)
	case scene.RoleShape:
		c.syncShape(o)
	case scene.RoleLogo:
		c.Logo.SyncFrom(o)
	case scene.RoleQR:
		c.QR.SyncFrom(o)
	case scene.RoleFrame:
		c.Frame.SyncFrom(o)
	}
}

// refreshImage re-derives the size/opacity panels after a logo, QR code or
// frame was transformed directly.
func (c *Controller) refreshImage(o *scene.Object) {
	if o == nil {
		return
	}
	switch o.Role {
	case scene.RoleLogo, scene.RoleQR, scene.RoleFrame:
		c.Sync(o)
	}
}

func (c *Controller) syncText(o *scene.Object) {
	t := o.Text
	if t == nil {
		return
	}
	p := c.Text.Panel()
	p.FontSize = orDefault(t.FontSize, tools.DefaultFontSize)
	p.FontFamily = t.FontFamily
	if p.FontFamily == "" {
		p.FontFamily = fallbackFontFamily
	}
	if col, ok := parseRGBA(t.Fill); ok {
		p.Color = col
	}
	if col, ok := parseRGBA(t.BackgroundColor); ok {
		p.Background = col
	} else {
		p.Background = scene.Transparent
	}
	p.Bold = t.Bold()
	p.Italic = t.Italic()
	p.Underline = t.Underline
	p.LineHeight = orDefault(t.LineHeight, tools.DefaultLineHeight)
	p.LetterSpacing = t.CharSpacing
	c.Text.SyncPanel(p)
}

func (c *Controller) syncShape(o *scene.Object) {
	sh := o.Shape
	if sh == nil {
		return
	}
	p := c.Shape.Panel()
	p.ShapeType = sh.ShapeType
	if col, ok := parseRGBA(sh.Fill); ok {
		p.Fill = col
	}
	if col, ok := parseRGBA(sh.Stroke); ok {
		p.Stroke = col
	}
	p.StrokeWidth = sh.StrokeWidth
	p.Opacity = tools.OpacityPercent(o)
	p.SnapEnabled = sh.SnapEnabled
	p.SnapThreshold = sh.SnapThreshold
	c.Shape.SetPanel(p)
}

// parseRGBA accepts only rgb()/rgba() strings; other color forms are left
// to the panel's previous value.
func parseRGBA(s string) (scene.RGBA, bool) {
	if !strings.HasPrefix(s, "rgb") {
		return scene.RGBA{}, false
	}
	return scene.ParseRGBA(s)
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// PanelChanged applies the panel of role to its target object and schedules
// a debounced capture. It does nothing while syncing from a selection and
// reports whether an object was updated.
func (c *Controller) PanelChanged(role scene.Role) bool {
	if c.mode != Idle {
		return false
	}
	var updated bool
	switch role {
	case scene.RoleText:
		updated = c.Text.UpdateSelected()
	case scene.RoleShape:
		updated = c.Shape.UpdateSelected()
	case scene.RoleLogo:
		updated = c.Logo.UpdateSelected()
	case scene.RoleQR:
		updated = c.QR.UpdateSelected()
	case scene.RoleFrame:
		updated = c.Frame.UpdateSelected()
	}
	if updated {
		c.history.Capture(false)
	}
	return updated
}

// SetTextPanel stores p and applies it.
func (c *Controller) SetTextPanel(p tools.TextPanel) bool {
	c.Text.SetPanel(p)
	return c.PanelChanged(scene.RoleText)
}

// SetShapePanel stores p and applies it.
func (c *Controller) SetShapePanel(p tools.ShapePanel) bool {
	c.Shape.SetPanel(p)
	return c.PanelChanged(scene.RoleShape)
}

// SetLogoPanel stores p and applies it.
func (c *Controller) SetLogoPanel(p tools.LogoPanel) bool {
	c.Logo.SetPanel(p)
	return c.PanelChanged(scene.RoleLogo)
}

// SetQRPanel stores p and applies it.
func (c *Controller) SetQRPanel(p tools.QRPanel) bool {
	c.QR.SetPanel(p)
	return c.PanelChanged(scene.RoleQR)
}

// SetFramePanel stores p and applies it.
func (c *Controller) SetFramePanel(p tools.FramePanel) bool {
	c.Frame.SetPanel(p)
	return c.PanelChanged(scene.RoleFrame)
}

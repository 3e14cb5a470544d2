package tools

import (
	"context"

	"github.com/eringen/overlaystudio/scene"
)

const (
	DefaultImageSize    = 150
	DefaultImageOpacity = 100

	minImageSize    = 50
	maxImageSize    = 400
	minImageOpacity = 10
	maxImageOpacity = 100
)

// ImagePanel is the size and opacity settings shared by logos and QR codes.
type ImagePanel struct {
	Size    int `json:"size"`
	Opacity int `json:"opacity"`
}

func defaultImagePanel() ImagePanel {
	return ImagePanel{Size: DefaultImageSize, Opacity: DefaultImageOpacity}
}

func (p ImagePanel) normalized() ImagePanel {
	p.Size = clampInt(p.Size, minImageSize, maxImageSize)
	p.Opacity = clampInt(p.Opacity, minImageOpacity, maxImageOpacity)
	return p
}

// LogoPanel adds the selected catalog variant to the image settings.
type LogoPanel struct {
	ImagePanel
	Variant string `json:"variant"`
}

// LogoTool adds and resizes logo images.
type LogoTool struct {
	env   *Env
	panel LogoPanel
}

// NewLogoTool returns a logo tool with default settings.
func NewLogoTool(env *Env) *LogoTool {
	return &LogoTool{env: env, panel: LogoPanel{ImagePanel: defaultImagePanel()}}
}

// Panel returns the current settings.
func (t *LogoTool) Panel() LogoPanel { return t.panel }

// SetPanel replaces the settings. Out-of-range values are clamped.
func (t *LogoTool) SetPanel(p LogoPanel) {
	p.ImagePanel = p.ImagePanel.normalized()
	t.panel = p
}

// Add loads the logo at src, a preset path or an uploaded file URL.
func (t *LogoTool) Add(ctx context.Context, src string) (*scene.Object, error) {
	o, err := t.env.loadImageObject(ctx, "logo", src, t.panel.Size, t.panel.Opacity)
	if err != nil {
		return nil, err
	}
	scene.TagRole(o, scene.RoleLogo)
	t.env.commit(o)
	t.env.logger().Debugf("logo %s added", src)
	return o, nil
}

// UpdateSelected resizes the targeted logo and applies the opacity.
func (t *LogoTool) UpdateSelected() bool {
	o := scene.TargetForRole(t.env.Scene, scene.RoleLogo)
	if o == nil {
		return false
	}
	resizeTo(o, t.panel.Size)
	o.Opacity = percent(t.panel.Opacity)
	return true
}

// SyncFrom copies size and opacity from o into the panel.
func (t *LogoTool) SyncFrom(o *scene.Object) {
	if size := SizeOf(o); size > 0 {
		t.panel.Size = size
	}
	t.panel.Opacity = OpacityPercent(o)
}

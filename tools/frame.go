package tools

import (
	"context"
	"fmt"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/scene"
)

const DefaultFrameOpacity = 100

// FramePanel is the frame tool's settings.
type FramePanel struct {
	Opacity int `json:"opacity"`
}

// FrameTool places a single decorative frame over the whole canvas.
type FrameTool struct {
	env   *Env
	panel FramePanel
}

// NewFrameTool returns a frame tool with full opacity.
func NewFrameTool(env *Env) *FrameTool {
	return &FrameTool{env: env, panel: FramePanel{Opacity: DefaultFrameOpacity}}
}

// Panel returns the current settings.
func (t *FrameTool) Panel() FramePanel { return t.panel }

// SetPanel replaces the settings. Opacity is clamped to 0-100.
func (t *FrameTool) SetPanel(p FramePanel) {
	p.Opacity = clampInt(p.Opacity, 0, 100)
	t.panel = p
}

// Ratio returns the canvas aspect ratio frames must match.
func (t *FrameTool) Ratio() string {
	bg := t.env.Scene.Background()
	if bg == nil {
		return ""
	}
	return assets.AspectRatio(float64(bg.NaturalWidth), float64(bg.NaturalHeight))
}

// Available filters frames to the canvas aspect ratio.
func (t *FrameTool) Available(frames []assets.Asset) []assets.Asset {
	return assets.FilterFrames(frames, t.Ratio())
}

// Insert validates a, loads it, removes every existing frame and adds the
// new one stretched to the canvas on top of all overlays. Nothing changes
// when validation or loading fails.
func (t *FrameTool) Insert(ctx context.Context, a assets.Asset) (*scene.Object, error) {
	if err := t.env.requireCanvas(); err != nil {
		return nil, err
	}
	if a.Variant == "" {
		return nil, fmt.Errorf("frame %s: %w", a.URL, ErrNoVariant)
	}
	if ratio := t.Ratio(); a.Variant != ratio {
		return nil, fmt.Errorf("frame %s is %s, canvas is %s: %w", a.URL, a.Variant, ratio, ErrVariantMismatch)
	}
	img, err := t.env.Images.Image(ctx, a.URL)
	if err != nil {
		return nil, fmt.Errorf("load frame: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("load frame: %w: empty image", ErrInvalidInput)
	}
	cw, ch := t.env.Scene.Size()

	o := scene.NewObject(scene.KindImage)
	o.Src = a.URL
	o.Width, o.Height = float64(b.Dx()), float64(b.Dy())
	o.ScaleX = cw / o.Width
	o.ScaleY = ch / o.Height
	o.Opacity = percent(t.panel.Opacity)
	scene.TagRole(o, scene.RoleFrame)

	t.RemoveAll()
	t.env.commit(o)
	t.env.logger().Infof("frame %s inserted", a.URL)
	return o, nil
}

// RemoveAll deletes every frame. It returns how many were removed.
func (t *FrameTool) RemoveAll() int {
	frames := scene.FindAllByRole(t.env.Scene, scene.RoleFrame)
	for _, f := range frames {
		t.env.Scene.Remove(f)
	}
	return len(frames)
}

// UpdateSelected applies the opacity to the targeted frame.
func (t *FrameTool) UpdateSelected() bool {
	o := scene.TargetForRole(t.env.Scene, scene.RoleFrame)
	if o == nil {
		return false
	}
	o.Opacity = percent(t.panel.Opacity)
	return true
}

// SyncFrom copies the opacity of o into the panel.
func (t *FrameTool) SyncFrom(o *scene.Object) {
	t.panel.Opacity = OpacityPercent(o)
}

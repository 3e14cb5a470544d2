package selection

import (
	"image"
	"testing"

	"github.com/eringen/overlaystudio/scene"
	"github.com/eringen/overlaystudio/tools"
)

type countingCapturer struct{ immediate, debounced int }

func (c *countingCapturer) Capture(immediate bool) {
	if immediate {
		c.immediate++
	} else {
		c.debounced++
	}
}

func newController(t *testing.T) (*Controller, *scene.Scene, *countingCapturer) {
	t.Helper()
	s := scene.New()
	s.SetBackground(scene.NewBackground("/bg.png", image.NewRGBA(image.Rect(0, 0, 800, 600))), 1)
	h := &countingCapturer{}
	env := &tools.Env{Scene: s, History: h}
	c := New(s, h,
		tools.NewTextTool(env, ""),
		tools.NewLogoTool(env),
		tools.NewQRTool(env),
		tools.NewFrameTool(env),
		tools.NewShapeTool(env),
	)
	return c, s, h
}

func TestSyncText(t *testing.T) {
	c, s, _ := newController(t)
	o := scene.NewObject(scene.KindText)
	o.Text = &scene.TextProps{
		Content:    "x",
		FontWeight: "bold",
		Underline:  true,
		Fill:       "rgba(10,20,30,0.5)",
	}
	scene.TagRole(o, scene.RoleText)
	s.Add(o)
	s.SetActive(o)

	p := c.Text.Panel()
	if p.FontSize != 24 || p.FontFamily != "Arial" || p.LineHeight != 1.2 {
		t.Errorf("defaults not applied: %+v", p)
	}
	if p.Color != (scene.RGBA{R: 10, G: 20, B: 30, A: 0.5}) {
		t.Errorf("Color = %+v", p.Color)
	}
	if p.Background != scene.Transparent {
		t.Errorf("Background = %+v, want transparent", p.Background)
	}
	if !p.Bold || p.Italic || !p.Underline {
		t.Errorf("style flags = %v/%v/%v", p.Bold, p.Italic, p.Underline)
	}
	if c.Mode() != Idle {
		t.Errorf("Mode = %v, want idle after sync", c.Mode())
	}
}

func TestSyncKeepsOutOfRangeFontSize(t *testing.T) {
	c, s, h := newController(t)
	o := scene.NewObject(scene.KindText)
	o.Text = &scene.TextProps{Content: "big", FontSize: 100, FontFamily: "Manrope", LineHeight: 4}
	scene.TagRole(o, scene.RoleText)
	s.Add(o)
	s.SetActive(o)

	p := c.Text.Panel()
	if p.FontSize != 100 || p.LineHeight != 4 {
		t.Fatalf("panel = %v/%v, want the object's 100/4", p.FontSize, p.LineHeight)
	}

	p.Bold = true
	if !c.SetTextPanel(p) {
		t.Fatalf("bold toggle should update the text")
	}
	if o.Text.FontSize != 100 || o.Text.LineHeight != 4 {
		t.Errorf("unrelated edit clamped the text to %v/%v", o.Text.FontSize, o.Text.LineHeight)
	}
	if o.Text.FontWeight != "bold" || h.debounced != 1 {
		t.Errorf("FontWeight = %q, captures = %d", o.Text.FontWeight, h.debounced)
	}

	p = c.Text.Panel()
	p.FontSize = 90
	c.SetTextPanel(p)
	if o.Text.FontSize != 72 {
		t.Errorf("user font size = %v, want clamped 72", o.Text.FontSize)
	}
}

func shape(fill string, width float64) *scene.Object {
	o := scene.NewObject(scene.KindShape)
	o.Width, o.Height = 100, 100
	o.Opacity = 0.4
	o.Shape = &scene.ShapeProps{
		ShapeType:     scene.ShapeCircle,
		Fill:          fill,
		Stroke:        "rgba(0,0,0,1)",
		StrokeWidth:   width,
		SnapEnabled:   false,
		SnapThreshold: 9,
	}
	scene.TagRole(o, scene.RoleShape)
	return o
}

func TestSelectingShapeDoesNotOverwriteIt(t *testing.T) {
	c, s, h := newController(t)
	a := shape("rgba(0,0,0,0.3)", 2)
	b := shape("rgba(0,0,255,1)", 0)
	s.Add(a)
	s.Add(b)

	s.SetActive(a)
	p := c.Shape.Panel()
	p.Fill = scene.RGBA{R: 255, A: 1}
	if !c.SetShapePanel(p) {
		t.Fatalf("panel change should update the selected shape")
	}
	if a.Shape.Fill != "rgba(255,0,0,1)" {
		t.Errorf("a.Fill = %q", a.Shape.Fill)
	}
	if h.debounced != 1 {
		t.Errorf("debounced captures = %d, want 1", h.debounced)
	}

	s.SetActive(b)
	if b.Shape.Fill != "rgba(0,0,255,1)" {
		t.Errorf("selecting b overwrote its fill: %q", b.Shape.Fill)
	}
	got := c.Shape.Panel()
	if got.Fill != (scene.RGBA{B: 255, A: 1}) || got.StrokeWidth != 0 || got.Opacity != 40 {
		t.Errorf("panel = %+v, want b's settings", got)
	}
	if got.SnapEnabled || got.SnapThreshold != 9 {
		t.Errorf("snap panel = %v/%v, want false/9", got.SnapEnabled, got.SnapThreshold)
	}
}

func TestPanelChangeSkippedWhileSyncing(t *testing.T) {
	c, s, h := newController(t)
	a := shape("rgba(0,0,0,0.3)", 2)
	s.Add(a)
	s.SetActive(a)

	c.mode = SyncingFromSelection
	p := c.Shape.Panel()
	p.StrokeWidth = 10
	if c.SetShapePanel(p) {
		t.Errorf("panel change should be skipped while syncing")
	}
	if a.Shape.StrokeWidth != 2 || h.debounced != 0 {
		t.Errorf("shape changed while syncing")
	}
}

func TestModifiedLogoRefreshesPanel(t *testing.T) {
	c, s, _ := newController(t)
	o := scene.NewObject(scene.KindImage)
	o.Src = "/logo.png"
	o.Width, o.Height = 400, 200
	o.ScaleX, o.ScaleY = 0.5, 0.5
	o.Opacity = 0.75
	scene.TagRole(o, scene.RoleLogo)
	s.Add(o)

	s.Modified(o)
	p := c.Logo.Panel()
	if p.Size != 200 || p.Opacity != 75 {
		t.Errorf("logo panel = %+v, want size 200 opacity 75", p)
	}
}

func TestUnknownRoleLeavesPanels(t *testing.T) {
	c, s, _ := newController(t)
	before := c.Text.Panel()
	o := scene.NewObject(scene.KindImage)
	o.Src = "/x.png"
	s.Add(o)
	s.SetActive(o)
	if c.Text.Panel() != before {
		t.Errorf("untagged selection changed the text panel")
	}
}

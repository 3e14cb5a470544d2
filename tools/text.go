package tools

import (
	"fmt"

	"github.com/eringen/overlaystudio/scene"
)

const (
	DefaultText       = "Double-click to edit this text\nYou can add more lines here"
	DefaultFontFamily = "Manrope"
	DefaultFontSize   = 24
	DefaultLineHeight = 1.2
	textInitialLeft   = 100
	textInitialTop    = 100

	minFontSize   = 12
	maxFontSize   = 72
	minLineHeight = 0.8
	maxLineHeight = 3.0
)

// TextPanel is the text tool's settings.
type TextPanel struct {
	FontSize      float64    `json:"fontSize"`
	FontFamily    string     `json:"fontFamily"`
	Color         scene.RGBA `json:"color"`
	Background    scene.RGBA `json:"backgroundColor"`
	Bold          bool       `json:"bold"`
	Italic        bool       `json:"italic"`
	Underline     bool       `json:"underline"`
	LineHeight    float64    `json:"lineHeight"`
	LetterSpacing float64    `json:"letterSpacing"`
}

// DefaultTextPanel returns the initial text settings for family, or the
// default family when empty.
func DefaultTextPanel(family string) TextPanel {
	if family == "" {
		family = DefaultFontFamily
	}
	return TextPanel{
		FontSize:   DefaultFontSize,
		FontFamily: family,
		Color:      scene.RGBA{R: 0, G: 0, B: 0, A: 1},
		Background: scene.RGBA{R: 255, G: 255, B: 255, A: 1},
		LineHeight: DefaultLineHeight,
	}
}

func (p TextPanel) normalized() TextPanel {
	p.FontSize = clampFloat(p.FontSize, minFontSize, maxFontSize)
	p.LineHeight = clampFloat(p.LineHeight, minLineHeight, maxLineHeight)
	if p.FontFamily == "" {
		p.FontFamily = DefaultFontFamily
	}
	return p
}

func (p TextPanel) apply(t *scene.TextProps) {
	t.FontSize = p.FontSize
	t.FontFamily = p.FontFamily
	t.Fill = p.Color.String()
	t.BackgroundColor = ""
	if p.Background.A != 0 {
		t.BackgroundColor = p.Background.String()
	}
	t.FontWeight = "normal"
	if p.Bold {
		t.FontWeight = "bold"
	}
	t.FontStyle = "normal"
	if p.Italic {
		t.FontStyle = "italic"
	}
	t.Underline = p.Underline
	t.LineHeight = p.LineHeight
	t.CharSpacing = p.LetterSpacing
}

// TextTool adds and styles text objects.
type TextTool struct {
	env   *Env
	panel TextPanel
}

// NewTextTool returns a text tool using defaultFamily for new text.
func NewTextTool(env *Env, defaultFamily string) *TextTool {
	return &TextTool{env: env, panel: DefaultTextPanel(defaultFamily)}
}

// Panel returns the current settings.
func (t *TextTool) Panel() TextPanel { return t.panel }

// SetPanel replaces the settings. Changed values outside the panel ranges
// are clamped; a size or line height the panel already holds is kept, so a
// value synced from an object survives edits to other fields.
func (t *TextTool) SetPanel(p TextPanel) {
	size, lineHeight := p.FontSize, p.LineHeight
	p = p.normalized()
	if size == t.panel.FontSize && size > 0 {
		p.FontSize = size
	}
	if lineHeight == t.panel.LineHeight && lineHeight > 0 {
		p.LineHeight = lineHeight
	}
	t.panel = p
}

// SyncPanel stores p as read from an object, without clamping.
func (t *TextTool) SyncPanel(p TextPanel) {
	if p.FontFamily == "" {
		p.FontFamily = DefaultFontFamily
	}
	t.panel = p
}

// Add creates a placeholder text object styled from the panel.
func (t *TextTool) Add() (*scene.Object, error) {
	if err := t.env.requireCanvas(); err != nil {
		return nil, err
	}
	o := scene.NewObject(scene.KindText)
	o.Left, o.Top = textInitialLeft, textInitialTop
	o.Text = &scene.TextProps{Content: DefaultText}
	t.panel.apply(o.Text)
	if err := t.measure(o); err != nil {
		return nil, err
	}
	scene.TagRole(o, scene.RoleText)
	t.env.commit(o)
	t.env.logger().Debugf("text added at index %d", t.env.Scene.IndexOf(o))
	return o, nil
}

// UpdateSelected applies the panel to the selected text object, or the
// first one when the selection is not text. It reports whether an object
// was updated.
func (t *TextTool) UpdateSelected() bool {
	o := scene.TargetForRole(t.env.Scene, scene.RoleText)
	if o == nil || o.Text == nil {
		return false
	}
	t.panel.apply(o.Text)
	if err := t.measure(o); err != nil {
		t.env.logger().Debugf("measure text: %v", err)
	}
	return true
}

// SetContent replaces the content of a text object and re-measures it.
func (t *TextTool) SetContent(o *scene.Object, content string) error {
	if o == nil || o.Text == nil {
		return fmt.Errorf("%w: not a text object", ErrInvalidInput)
	}
	o.Text.Content = content
	return t.measure(o)
}

func (t *TextTool) measure(o *scene.Object) error {
	if t.env.Fonts == nil {
		return nil
	}
	w, h, err := t.env.Fonts.MeasureText(o.Text)
	if err != nil {
		return fmt.Errorf("measure text: %w", err)
	}
	o.Width, o.Height = w, h
	return nil
}

// Package export flattens a scene into a raster image at the background's
// native resolution.
package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/scene"
)

// ImageSource resolves image object sources.
type ImageSource interface {
	Image(ctx context.Context, src string) (image.Image, error)
}

// Renderer draws scenes with gg. Faces come from Fonts and images from Images.
type Renderer struct {
	Fonts  *assets.FontBook
	Images ImageSource
}

// Render rasterizes s at multiplier times its display size. The background
// fills the whole output; overlays are composited bottom to top.
func (r *Renderer) Render(ctx context.Context, s *scene.Scene, multiplier float64) (*image.RGBA, error) {
	bg := s.Background()
	if bg == nil {
		return nil, scene.ErrNoBackground
	}
	if multiplier <= 0 {
		return nil, fmt.Errorf("invalid multiplier %v", multiplier)
	}
	w, h := s.Size()
	out := image.NewRGBA(image.Rect(0, 0, int(math.Round(w*multiplier)), int(math.Round(h*multiplier))))
	if out.Rect.Empty() {
		return nil, fmt.Errorf("empty canvas %vx%v", w, h)
	}
	draw.CatmullRom.Scale(out, out.Bounds(), bg.Image, bg.Image.Bounds(), draw.Src, nil)

	for _, o := range s.Objects() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.drawObject(ctx, out, o, multiplier); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// drawObject paints o onto dst. Partially transparent objects are drawn to
// their own layer first so overlapping parts of one object do not stack.
func (r *Renderer) drawObject(ctx context.Context, dst *image.RGBA, o *scene.Object, m float64) error {
	if o.Opacity <= 0 {
		return nil
	}
	target := dst
	if o.Opacity < 1 {
		target = image.NewRGBA(dst.Bounds())
	}
	dc := gg.NewContextForRGBA(target)

	var err error
	switch o.Kind {
	case scene.KindImage:
		err = r.drawImage(ctx, dc, o, m)
	case scene.KindShape:
		drawShape(dc, o, m)
	case scene.KindText:
		err = r.drawText(dc, o, m)
	case scene.KindWatermark:
		err = r.drawWatermark(dc, o, m)
	}
	if err != nil {
		return err
	}

	if target != dst {
		mask := image.NewUniform(color.Alpha{A: uint8(math.Round(o.Opacity * 255))})
		draw.DrawMask(dst, dst.Bounds(), target, image.Point{}, mask, image.Point{}, draw.Over)
	}
	return nil
}

// place moves the origin to o's top-left corner in output pixels and applies
// its rotation.
func place(dc *gg.Context, o *scene.Object, m float64) {
	dc.Translate(o.Left*m, o.Top*m)
	if o.Angle != 0 {
		dc.Rotate(gg.Radians(o.Angle))
	}
}

func (r *Renderer) drawImage(ctx context.Context, dc *gg.Context, o *scene.Object, m float64) error {
	img, err := r.Images.Image(ctx, o.Src)
	if err != nil {
		return fmt.Errorf("render image: %w", err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil
	}
	w, h := o.Width, o.Height
	if w == 0 || h == 0 {
		w, h = float64(b.Dx()), float64(b.Dy())
	}
	place(dc, o, m)
	dc.Scale(o.ScaleX*m*w/float64(b.Dx()), o.ScaleY*m*h/float64(b.Dy()))
	dc.DrawImage(img, 0, 0)
	return nil
}

func drawShape(dc *gg.Context, o *scene.Object, m float64) {
	sh := o.Shape
	if sh == nil {
		return
	}
	sw := sh.StrokeWidth
	place(dc, o, m)
	dc.Scale(o.ScaleX*m, o.ScaleY*m)

	// The stroke is centered on the outline, so the outline sits half a
	// stroke inside the object's box.
	off := sw / 2
	if sh.ShapeType == scene.ShapeRoundedRectangle && sh.CornerRadius > 0 {
		dc.DrawRoundedRectangle(off, off, o.Width, o.Height, sh.CornerRadius)
	} else {
		for i, p := range scene.Outline(sh.ShapeType) {
			x, y := off+p.X*o.Width, off+p.Y*o.Height
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
	}

	if fill, ok := scene.ParseColor(sh.Fill); ok && fill.A > 0 {
		dc.SetColor(fill.Color())
		dc.FillPreserve()
	}
	if stroke, ok := scene.ParseColor(sh.Stroke); ok && sw > 0 && stroke.A > 0 {
		dc.SetColor(stroke.Color())
		// gg strokes in output pixels.
		dc.SetLineWidth(sw * m * (math.Abs(o.ScaleX) + math.Abs(o.ScaleY)) / 2)
		dc.StrokePreserve()
	}
	dc.ClearPath()
}

func (r *Renderer) drawText(dc *gg.Context, o *scene.Object, m float64) error {
	t := o.Text
	if t == nil || o.ScaleY == 0 {
		return nil
	}
	// Glyphs are rasterized at their output size; only the aspect correction
	// goes through the matrix.
	k := m * o.ScaleY
	scaled := *t
	scaled.FontSize = t.FontSize * k
	face, err := r.Fonts.TextFace(&scaled)
	if err != nil {
		return err
	}
	defer face.Close()

	place(dc, o, m)
	dc.Scale(o.ScaleX/o.ScaleY, 1)

	if bg, ok := scene.ParseColor(t.BackgroundColor); ok && bg.A > 0 {
		dc.SetColor(bg.Color())
		dc.DrawRectangle(0, 0, o.Width*k, o.Height*k)
		dc.Fill()
	}

	fill, ok := scene.ParseColor(t.Fill)
	if !ok {
		fill = scene.RGBA{A: 1}
	}
	lh := t.LineHeight
	if lh <= 0 {
		lh = 1
	}
	size := scaled.FontSize
	spacing := t.CharSpacing / 1000 * size
	ascent := float64(face.Metrics().Ascent) / 64

	dc.SetFontFace(face)
	dc.SetColor(fill.Color())
	for i, line := range strings.Split(t.Content, "\n") {
		y := float64(i)*size*lh + ascent
		end := drawLine(dc, face, line, 0, y, spacing)
		if t.Underline && end > 0 {
			underline(dc, 0, end, y, size)
		}
	}
	return nil
}

func (r *Renderer) drawWatermark(dc *gg.Context, o *scene.Object, m float64) error {
	wm := o.Watermark
	if wm == nil {
		return nil
	}
	size := wm.FontSize * m
	face, err := r.Fonts.Face(watermarkFontFamily, false, false, size)
	if err != nil {
		return err
	}
	defer face.Close()

	place(dc, o, m)
	if bg, ok := scene.ParseColor(wm.Background); ok {
		dc.SetColor(bg.Color())
		dc.DrawRectangle(0, 0, o.Width*m, o.Height*m)
		dc.Fill()
	}

	text, _ := scene.ParseColor(wm.TextColor)
	shadow, _ := scene.ParseColor(wm.ShadowColor)
	pad := wm.Padding * m
	ascent := float64(face.Metrics().Ascent) / 64
	y1 := pad + ascent
	y2 := y1 + size*textHeightFactor + wm.LineGap*m
	prefixW := assets.LineWidth(face, wm.Line2Prefix, size, 0)
	brandW := assets.LineWidth(face, wm.Line2Brand, size, 0)

	dc.SetFontFace(face)
	for _, pass := range []struct {
		col    scene.RGBA
		offset float64
	}{{shadow, m}, {text, 0}} {
		dc.SetColor(pass.col.Color())
		x, d := pad+pass.offset, pass.offset
		dc.DrawString(wm.Line1, x, y1+d)
		dc.DrawString(wm.Line2Prefix, x, y2+d)
		dc.DrawString(wm.Line2Brand, x+prefixW, y2+d)
		underline(dc, x+prefixW, x+prefixW+brandW, y2+d, size)
	}
	return nil
}

// drawLine draws one line starting at x on baseline y and returns the x
// where it ends. A non-zero spacing is added after every glyph.
func drawLine(dc *gg.Context, face font.Face, line string, x, y, spacing float64) float64 {
	if line == "" {
		return x
	}
	if spacing == 0 {
		dc.DrawString(line, x, y)
		w, _ := dc.MeasureString(line)
		return x + w
	}
	for _, r := range line {
		dc.DrawString(string(r), x, y)
		adv, _ := face.GlyphAdvance(r)
		x += float64(adv)/64 + spacing
	}
	return x
}

func underline(dc *gg.Context, x0, x1, baseline, size float64) {
	thickness := math.Max(1, size/15)
	dc.DrawRectangle(x0, baseline+size*0.1, x1-x0, thickness)
	dc.Fill()
}

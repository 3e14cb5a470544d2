package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/scene"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

var blue = color.RGBA{B: 255, A: 255}

// newScene returns a scene whose 2000x1000 background is displayed at
// 500x250, so exports run at a multiplier of 4.
func newScene(t *testing.T) *scene.Scene {
	t.Helper()
	s := scene.New()
	bg := scene.NewBackground("/uploads/bg.png", solid(2000, 1000, blue))
	s.SetBackground(bg, bg.FitScale(500, 500))
	return s
}

func newExporter(t *testing.T) *Exporter {
	t.Helper()
	fonts, err := assets.NewFontBook()
	if err != nil {
		t.Fatalf("NewFontBook failed: %v", err)
	}
	return NewExporter(&Renderer{Fonts: fonts, Images: assets.NewLoader("", "", nil)})
}

func redSquare(left, top, opacity float64) *scene.Object {
	o := scene.NewObject(scene.KindShape)
	o.Left, o.Top = left, top
	o.Width, o.Height = 20, 20
	o.Opacity = opacity
	o.Shape = &scene.ShapeProps{ShapeType: scene.ShapeRectangle, Fill: "rgba(255,0,0,1)", Stroke: "rgba(0,0,0,1)"}
	scene.TagRole(o, scene.RoleShape)
	return o
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	return img
}

func rgb(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func TestExportScalesToNaturalResolution(t *testing.T) {
	s := newScene(t)
	if got := s.ExportMultiplier(); got != 4 {
		t.Fatalf("ExportMultiplier = %v, want 4", got)
	}
	s.Add(redSquare(10, 10, 1))

	res, err := newExporter(t).Export(context.Background(), s, Options{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if res.Width != 2000 || res.Height != 1000 {
		t.Errorf("size = %dx%d, want 2000x1000", res.Width, res.Height)
	}
	if res.Format != PNG || res.ContentType != "image/png" {
		t.Errorf("format = %s (%s), want png", res.Format, res.ContentType)
	}

	img := decodePNG(t, res.Data)
	if r, g, b := rgb(img, 80, 80); r != 255 || g != 0 || b != 0 {
		t.Errorf("shape pixel = (%d,%d,%d), want red", r, g, b)
	}
	if r, g, b := rgb(img, 4, 4); r != 0 || g != 0 || b != 255 {
		t.Errorf("background pixel = (%d,%d,%d), want blue", r, g, b)
	}
	// Just inside the bottom-right corner of the watermark box: black at
	// half opacity over blue.
	margin := int(Spacing(500, marginMultiplier, minMargin)) * 4
	if _, _, b := rgb(img, 2000-margin-2, 1000-margin-2); b > 160 || b < 100 {
		t.Errorf("watermark pixel blue = %d, want darkened", b)
	}
}

func TestExportRemovesWatermark(t *testing.T) {
	s := newScene(t)
	s.Add(redSquare(10, 10, 1))
	if _, err := newExporter(t).Export(context.Background(), s, Options{Position: TopLeft}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d after export, want 1", s.Len())
	}
	data, err := scene.SerializeOverlays(s)
	if err != nil {
		t.Fatalf("SerializeOverlays failed: %v", err)
	}
	if bytes.Contains([]byte(data), []byte("TECTONICA")) {
		t.Errorf("watermark leaked into serialized overlays")
	}
}

func TestExportRemovesWatermarkOnFailure(t *testing.T) {
	s := newScene(t)
	o := scene.NewObject(scene.KindImage)
	o.Src = "ftp://example.com/logo.png"
	o.Width, o.Height = 10, 10
	s.Add(o)

	if _, err := newExporter(t).Export(context.Background(), s, Options{}); err == nil {
		t.Fatalf("expected render error for unloadable image")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d after failed export, want 1", s.Len())
	}
}

func TestExportComposesImagesAndOpacity(t *testing.T) {
	s := newScene(t)
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(10, 10, color.RGBA{G: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	img := scene.NewObject(scene.KindImage)
	img.Src = assets.DataURL("image/png", buf.Bytes())
	img.Left, img.Top = 100, 50
	img.Width, img.Height = 10, 10
	s.Add(img)
	s.Add(redSquare(200, 50, 0.5))

	res, err := newExporter(t).Export(context.Background(), s, Options{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	out := decodePNG(t, res.Data)
	if r, g, b := rgb(out, 420, 220); r != 0 || g != 255 || b != 0 {
		t.Errorf("image pixel = (%d,%d,%d), want green", r, g, b)
	}
	r, _, b := rgb(out, 840, 240)
	if r < 110 || r > 145 || b < 110 || b > 145 {
		t.Errorf("half-transparent pixel = (%d,_,%d), want an even red/blue mix", r, b)
	}
}

func TestExportFormats(t *testing.T) {
	s := newScene(t)
	e := newExporter(t)
	for _, f := range []Format{JPEG, BMP, TIFF} {
		res, err := e.Export(context.Background(), s, Options{Format: f, Quality: 80})
		if err != nil {
			t.Fatalf("Export(%s) failed: %v", f, err)
		}
		if len(res.Data) == 0 || res.ContentType != "image/"+string(f) {
			t.Errorf("Export(%s) = %d bytes, %s", f, len(res.Data), res.ContentType)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Errorf("ParseFormat(gif) should fail")
	}
	if f, _ := ParseFormat("JPG"); f != JPEG {
		t.Errorf("ParseFormat(JPG) = %s, want jpeg", f)
	}
}

func TestThumbnail(t *testing.T) {
	s := newScene(t)
	res, err := newExporter(t).Thumbnail(context.Background(), s)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("jpeg.Decode failed: %v", err)
	}
	if w := img.Bounds().Dx(); w != ThumbnailWidth {
		t.Errorf("thumbnail width = %d, want %d", w, ThumbnailWidth)
	}
	if res.Multiplier != 0.6 {
		t.Errorf("Multiplier = %v, want 0.6", res.Multiplier)
	}
}

func TestSpacing(t *testing.T) {
	tests := []struct {
		width, mult, min, want float64
	}{
		{500, marginMultiplier, minMargin, 6},
		{1000, marginMultiplier, minMargin, 9},
		{2000, lineGapMultiplier, minLineGap, 9},
		{400, lineGapMultiplier, minLineGap, 3},
	}
	for _, tt := range tests {
		if got := Spacing(tt.width, tt.mult, tt.min); got != tt.want {
			t.Errorf("Spacing(%v, %v, %v) = %v, want %v", tt.width, tt.mult, tt.min, got, tt.want)
		}
	}
}

func TestLayoutWatermarkCorners(t *testing.T) {
	fonts, err := assets.NewFontBook()
	if err != nil {
		t.Fatal(err)
	}
	const w, h = 1000.0, 600.0
	for _, pos := range Positions {
		l, err := LayoutWatermark(fonts, w, h, pos)
		if err != nil {
			t.Fatalf("LayoutWatermark(%s) failed: %v", pos, err)
		}
		b := l.Box
		if b.Width <= 2*l.Padding || b.Height <= 2*l.Padding {
			t.Errorf("%s: box %+v smaller than its padding", pos, b)
		}
		var wantLeft, wantTop float64
		switch pos {
		case TopLeft:
			wantLeft, wantTop = 9, 9
		case TopRight:
			wantLeft, wantTop = w-9-b.Width, 9
		case BottomLeft:
			wantLeft, wantTop = 9, h-9-b.Height
		case BottomRight:
			wantLeft, wantTop = w-9-b.Width, h-9-b.Height
		}
		if b.Left != wantLeft || b.Top != wantTop {
			t.Errorf("%s: origin = (%v, %v), want (%v, %v)", pos, b.Left, b.Top, wantLeft, wantTop)
		}
	}
	if _, err := ParsePosition("center"); err == nil {
		t.Errorf("ParsePosition(center) should fail")
	}
}

package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/eringen/overlaystudio/scene"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestLoaderDataURL(t *testing.T) {
	l := NewLoader("", "", nil)
	img, err := l.Image(context.Background(), DataURL("image/png", pngBytes(t, 4, 3)))
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("bounds = %v, want 4x3", b)
	}
}

func TestLoaderLocalPaths(t *testing.T) {
	static := t.TempDir()
	uploads := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "logo.png"), pngBytes(t, 10, 5), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(uploads, "bg.png"), pngBytes(t, 20, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(static, uploads, nil)
	ctx := context.Background()

	img, err := l.Image(ctx, "/logo.png")
	if err != nil {
		t.Fatalf("Image(/logo.png) failed: %v", err)
	}
	if img.Bounds().Dx() != 10 {
		t.Errorf("logo width = %d, want 10", img.Bounds().Dx())
	}
	img, err = l.Image(ctx, "/uploads/bg.png")
	if err != nil {
		t.Fatalf("Image(/uploads/bg.png) failed: %v", err)
	}
	if img.Bounds().Dx() != 20 {
		t.Errorf("bg width = %d, want 20", img.Bounds().Dx())
	}

	// memoized: removing the file does not matter until the entry expires
	now := time.Now()
	l.now = func() time.Time { return now }
	l.remember("/uploads/bg.png", img)
	os.Remove(filepath.Join(uploads, "bg.png"))
	if _, err := l.Image(ctx, "/uploads/bg.png"); err != nil {
		t.Errorf("memoized image should load: %v", err)
	}
	now = now.Add(DefaultMemoTTL)
	if _, err := l.Image(ctx, "/uploads/bg.png"); err == nil {
		t.Errorf("expected error after the memo entry expired")
	}
}

func TestLoaderMemoBounded(t *testing.T) {
	static := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		if err := os.WriteFile(filepath.Join(static, name), pngBytes(t, 4, 4), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	l := NewLoader(static, "", nil)
	l.SetMemoLimits(time.Minute, 2)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, src := range []string{"/a.png", "/b.png", "/c.png"} {
		if _, err := l.Image(ctx, src); err != nil {
			t.Fatalf("Image(%s) failed: %v", src, err)
		}
		now = now.Add(time.Second)
	}
	if got := l.MemoLen(); got != 2 {
		t.Fatalf("MemoLen = %d, want 2", got)
	}
	// the oldest entry went first
	os.Remove(filepath.Join(static, "a.png"))
	if _, err := l.Image(ctx, "/a.png"); err == nil {
		t.Errorf("/a.png should have been evicted")
	}

	now = now.Add(2 * time.Minute)
	if _, err := l.Image(ctx, "/b.png"); err != nil {
		t.Fatalf("Image(/b.png) failed: %v", err)
	}
	if got := l.MemoLen(); got != 1 {
		t.Errorf("expired entries should be dropped on insert, MemoLen = %d", got)
	}

	if _, err := l.Image(ctx, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngBytes(t, 1, 1))); err != nil {
		t.Fatalf("data url failed: %v", err)
	}
	if got := l.MemoLen(); got != 1 {
		t.Errorf("data urls should not be memoized, MemoLen = %d", got)
	}
}

func TestLoaderRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	static := filepath.Join(root, "static")
	os.MkdirAll(static, 0o755)
	os.WriteFile(filepath.Join(root, "secret.png"), pngBytes(t, 1, 1), 0o644)

	l := NewLoader(static, "", nil)
	if _, err := l.Fetch(context.Background(), "/../secret.png"); err == nil {
		t.Errorf("path traversal should not escape the static dir")
	}
}

func TestLoaderHTTP(t *testing.T) {
	data := pngBytes(t, 7, 7)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/img.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	l := NewLoader("", "", srv.Client())
	img, err := l.Image(context.Background(), srv.URL+"/img.png")
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if img.Bounds().Dx() != 7 {
		t.Errorf("width = %d, want 7", img.Bounds().Dx())
	}
	if _, err := l.Image(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Errorf("expected error for 404")
	}
}

func TestLoaderUnsupported(t *testing.T) {
	l := NewLoader("", "", nil)
	_, err := l.Fetch(context.Background(), "ftp://example.com/x.png")
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("err = %v, want ErrUnsupportedSource", err)
	}
}

const testCatalog = `
logos:
  - url: /logos/a-dark.png
    displayName: A Dark
    variant: dark
  - url: /logos/a-light.png
    displayName: A Light
    variant: light
  - url: /logos/b-dark.png
    displayName: B Dark
    variant: dark
  - displayName: Broken
frames:
  - url: /frames/wide.png
    displayName: Wide
    variant: "16:9"
  - url: /frames/square.png
    displayName: Square
    variant: "1:1"
fonts:
  - source: custom
    fontFamily: Brand Sans
    fileUrl: /fonts/brand.ttf
  - source: google
    fontFamily: Manrope
    weights: ["400", "700"]
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(testCatalog))
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}
	if len(c.Logos) != 3 {
		t.Errorf("len(Logos) = %d, want 3", len(c.Logos))
	}
	if got := c.Fonts[0].Weights; !reflect.DeepEqual(got, []string{"400"}) {
		t.Errorf("default weights = %v, want [400]", got)
	}
	if got := LogoVariants(c.Logos); !reflect.DeepEqual(got, []string{"dark", "light"}) {
		t.Errorf("LogoVariants = %v", got)
	}
	if got := FilterLogos(c.Logos, "dark"); len(got) != 2 {
		t.Errorf("FilterLogos(dark) = %d logos, want 2", len(got))
	}
	if got := FilterLogos(c.Logos, ""); len(got) != 0 {
		t.Errorf("FilterLogos without a variant should be empty when variants exist")
	}
	if got := FilterFrames(c.Frames, "16:9"); len(got) != 1 || got[0].URL != "/frames/wide.png" {
		t.Errorf("FilterFrames(16:9) = %v", got)
	}
	if got := FilterFrames(c.Frames, ""); len(got) != 2 {
		t.Errorf("FilterFrames without ratio should keep every frame")
	}
}

func TestDefaultCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(c.Logos) != 3 || c.Logos[1].URL != "/TAI-White.png" {
		t.Errorf("default logos = %v", c.Logos)
	}
	if got := FilterLogos(c.Logos, ""); len(got) != 3 {
		t.Errorf("logos without variants should all be offered, got %d", len(got))
	}
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		w, h float64
		want string
	}{
		{1920, 1080, "16:9"},
		{1000, 1000, "1:1"},
		{1080, 1350, "4:5"},
		{799.6, 600.2, "4:3"},
		{0, 0, "0:0"},
	}
	for _, tt := range tests {
		if got := AspectRatio(tt.w, tt.h); got != tt.want {
			t.Errorf("AspectRatio(%v, %v) = %q, want %q", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestMeasureText(t *testing.T) {
	fb, err := NewFontBook()
	if err != nil {
		t.Fatalf("NewFontBook failed: %v", err)
	}
	props := &scene.TextProps{Content: "Hello", FontSize: 24, FontFamily: "Manrope", LineHeight: 1.2}
	w1, h1, err := fb.MeasureText(props)
	if err != nil {
		t.Fatalf("MeasureText failed: %v", err)
	}
	if w1 <= 0 || h1 <= 0 {
		t.Fatalf("size = %vx%v, want positive", w1, h1)
	}

	props.Content = "Hello\nHello"
	w2, h2, _ := fb.MeasureText(props)
	if w2 != w1 {
		t.Errorf("two identical lines width = %v, want %v", w2, w1)
	}
	if h2 <= h1 {
		t.Errorf("two lines height %v should exceed one line %v", h2, h1)
	}

	props.Content = "Hello"
	props.CharSpacing = 500
	w3, _, _ := fb.MeasureText(props)
	if w3 <= w1 {
		t.Errorf("char spacing should widen text: %v <= %v", w3, w1)
	}
}

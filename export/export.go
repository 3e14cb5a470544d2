package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/gommon/log"
	"golang.org/x/image/draw"

	"github.com/eringen/overlaystudio/scene"
)

// Thumbnail settings for saved sessions.
const (
	ThumbnailWidth   = 300
	ThumbnailQuality = 60
)

// Logger is the subset of gommon's logger the exporter uses.
type Logger interface {
	Infof(format string, args ...interface{})
}

// Options selects the encoding and watermark corner of an export.
type Options struct {
	Format   Format   `json:"format" query:"format"`
	Quality  int      `json:"quality" query:"quality"`
	Position Position `json:"position" query:"position"`
}

// Result is an encoded export.
type Result struct {
	Data        []byte
	Format      Format
	Width       int
	Height      int
	Multiplier  float64
	ContentType string
}

// Exporter composes the watermark onto a scene and encodes the flattened
// image.
type Exporter struct {
	Renderer *Renderer
	Logger   Logger
}

// NewExporter returns an exporter using r.
func NewExporter(r *Renderer) *Exporter {
	return &Exporter{Renderer: r, Logger: log.New("export")}
}

// Export renders s at its background's native resolution with the
// disclaimer watermark. The watermark is added to the scene only for the
// duration of the render and is removed even when rendering fails.
func (e *Exporter) Export(ctx context.Context, s *scene.Scene, opts Options) (*Result, error) {
	if !s.HasBackground() {
		return nil, scene.ErrNoBackground
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.Position == "" {
		opts.Position = DefaultPosition
	}
	w, h := s.Size()
	wm, err := NewWatermark(e.Renderer.Fonts, w, h, opts.Position)
	if err != nil {
		return nil, fmt.Errorf("export watermark: %w", err)
	}
	s.Add(wm)
	defer s.Remove(wm)

	start := time.Now()
	m := s.ExportMultiplier()
	img, err := e.Renderer.Render(ctx, s, m)
	if err != nil {
		return nil, fmt.Errorf("export render: %w", err)
	}
	res, err := encodeResult(img, opts.Format, opts.Quality)
	if err != nil {
		return nil, err
	}
	res.Multiplier = m
	if e.Logger != nil {
		e.Logger.Infof("exported %dx%d %s (%s) in %s", res.Width, res.Height, res.Format,
			humanize.Bytes(uint64(len(res.Data))), time.Since(start).Round(time.Millisecond))
	}
	return res, nil
}

// Thumbnail renders s without the watermark at a multiplier of
// min(1, 300/width) and encodes it as JPEG.
func (e *Exporter) Thumbnail(ctx context.Context, s *scene.Scene) (*Result, error) {
	w, _ := s.Size()
	if w <= 0 {
		return nil, scene.ErrNoBackground
	}
	m := math.Min(1, ThumbnailWidth/w)
	img, err := e.Renderer.Render(ctx, s, m)
	if err != nil {
		return nil, fmt.Errorf("thumbnail render: %w", err)
	}
	res, err := encodeResult(img, JPEG, ThumbnailQuality)
	if err != nil {
		return nil, err
	}
	res.Multiplier = m
	return res, nil
}

// Downscale fits img inside maxW x maxH, keeping the aspect ratio. Images
// that already fit are returned as is.
func Downscale(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	scale := math.Min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()))
	if scale >= 1 {
		return img
	}
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encodeResult(img image.Image, f Format, quality int) (*Result, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f, quality); err != nil {
		return nil, fmt.Errorf("export encode: %w", err)
	}
	b := img.Bounds()
	return &Result{
		Data:        buf.Bytes(),
		Format:      f,
		Width:       b.Dx(),
		Height:      b.Dy(),
		ContentType: f.ContentType(),
	}, nil
}

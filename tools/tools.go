// Package tools implements the overlay tool modules. Each tool owns a panel
// of settings, creates objects of its role and updates the targeted object
// from the panel.
package tools

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/labstack/gommon/log"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/scene"
)

var (
	// ErrInvalidInput is returned for rejected tool input, such as an
	// empty QR URL or an unknown shape.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoVariant is returned when a frame asset has no aspect ratio variant.
	ErrNoVariant = errors.New("frame has no variant")
	// ErrVariantMismatch is returned when a frame does not fit the canvas ratio.
	ErrVariantMismatch = errors.New("frame variant does not match canvas")
	// ErrNoCanvas is returned when a tool runs before a background is loaded.
	ErrNoCanvas = errors.New("no canvas loaded")
)

// Capturer records history snapshots.
type Capturer interface {
	Capture(immediate bool)
}

// ImageSource resolves image sources.
type ImageSource interface {
	Image(ctx context.Context, src string) (image.Image, error)
}

// Logger is the subset of the echo/gommon logger tools write to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}

// Env holds what every tool needs.
type Env struct {
	Scene   *scene.Scene
	History Capturer
	Images  ImageSource
	Fonts   *assets.FontBook
	Logger  Logger
}

func (e *Env) logger() Logger {
	if e.Logger == nil {
		e.Logger = log.New("tools")
	}
	return e.Logger
}

func (e *Env) requireCanvas() error {
	if e.Scene == nil || !e.Scene.HasBackground() {
		return ErrNoCanvas
	}
	return nil
}

// commit adds o on top, selects it and records an immediate snapshot.
func (e *Env) commit(o *scene.Object) {
	e.Scene.Add(o)
	e.Scene.SetActive(o)
	e.History.Capture(true)
}

// loadImageObject builds an image object for src sized so its larger side
// equals size, centered on the canvas.
func (e *Env) loadImageObject(ctx context.Context, what, src string, size, opacity int) (*scene.Object, error) {
	if err := e.requireCanvas(); err != nil {
		return nil, err
	}
	if src == "" {
		return nil, fmt.Errorf("%s: %w: empty source", what, ErrInvalidInput)
	}
	img, err := e.Images.Image(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", what, err)
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("load %s: %w: empty image", what, ErrInvalidInput)
	}
	scale := float64(size) / math.Max(w, h)
	cw, ch := e.Scene.Size()

	o := scene.NewObject(scene.KindImage)
	o.Src = src
	o.Width, o.Height = w, h
	o.ScaleX, o.ScaleY = scale, scale
	o.Left = cw/2 - w*scale/2
	o.Top = ch/2 - h*scale/2
	o.Opacity = percent(opacity)
	return o, nil
}

// resizeTo rescales o so its larger scaled side equals size. The factor
// composes with the current scale.
func resizeTo(o *scene.Object, size int) {
	maxDim := o.MaxDimension()
	if maxDim <= 0 || size <= 0 {
		return
	}
	o.ScaleUniform(float64(size) / maxDim)
}

func percent(v int) float64 { return float64(v) / 100 }

// OpacityPercent converts an object opacity to the 0-100 panel scale.
func OpacityPercent(o *scene.Object) int {
	return int(math.Round(o.Opacity * 100))
}

// SizeOf returns the rounded larger scaled side of o.
func SizeOf(o *scene.Object) int {
	return int(math.Round(o.MaxDimension()))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

package export

import (
	"fmt"
	"math"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/scene"
)

// Position anchors the disclaimer block to a canvas corner.
type Position string

const (
	TopRight    Position = "top-right"
	TopLeft     Position = "top-left"
	BottomLeft  Position = "bottom-left"
	BottomRight Position = "bottom-right"
)

// Positions lists the accepted anchors.
var Positions = []Position{TopRight, TopLeft, BottomLeft, BottomRight}

// DefaultPosition is used when none is given.
const DefaultPosition = BottomRight

// ParsePosition validates s. An empty string yields DefaultPosition.
func ParsePosition(s string) (Position, error) {
	if s == "" {
		return DefaultPosition, nil
	}
	for _, p := range Positions {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown watermark position %q", s)
}

const (
	watermarkLine1       = "CREATED BY SUPPORTERS WITH ETHICAL AI."
	watermarkLine2Prefix = "MORE AT: "
	watermarkLine2Brand  = "TECTONICA.AI"
	watermarkFontFamily  = "Arial"
	watermarkFontSize    = 6
	watermarkTextColor   = "rgba(255,255,255,1)"
	watermarkShadowColor = "rgba(0,0,0,0.35)"
	watermarkBackground  = "rgba(0,0,0,0.5)"

	marginMultiplier  = 0.009
	paddingMultiplier = 0.009
	lineGapMultiplier = 0.0045
	minMargin         = 6
	minPadding        = 6
	minLineGap        = 3

	// textHeightFactor converts a font size to the height of one text line.
	textHeightFactor = 1.13
)

// Spacing returns max(min, round(canvasWidth * multiplier)).
func Spacing(canvasWidth, multiplier, min float64) float64 {
	return math.Max(min, math.Round(canvasWidth*multiplier))
}

// WatermarkLayout is the disclaimer block geometry in display pixels.
type WatermarkLayout struct {
	Margin  float64
	Padding float64
	LineGap float64
	Box     scene.Box
}

// LayoutWatermark sizes the disclaimer for a canvas and anchors it.
func LayoutWatermark(fonts *assets.FontBook, canvasW, canvasH float64, pos Position) (WatermarkLayout, error) {
	face, err := fonts.Face(watermarkFontFamily, false, false, watermarkFontSize)
	if err != nil {
		return WatermarkLayout{}, err
	}
	defer face.Close()

	l := WatermarkLayout{
		Margin:  Spacing(canvasW, marginMultiplier, minMargin),
		Padding: Spacing(canvasW, paddingMultiplier, minPadding),
		LineGap: Spacing(canvasW, lineGapMultiplier, minLineGap),
	}
	line1 := assets.LineWidth(face, watermarkLine1, watermarkFontSize, 0)
	line2 := assets.LineWidth(face, watermarkLine2Prefix, watermarkFontSize, 0) +
		assets.LineWidth(face, watermarkLine2Brand, watermarkFontSize, 0)
	lineH := watermarkFontSize * textHeightFactor

	w := math.Max(line1, line2) + l.Padding*2
	h := lineH + l.LineGap + lineH + l.Padding*2

	var left, top float64
	switch pos {
	case TopRight:
		left, top = canvasW-l.Margin-w, l.Margin
	case TopLeft:
		left, top = l.Margin, l.Margin
	case BottomLeft:
		left, top = l.Margin, canvasH-l.Margin-h
	default:
		left, top = canvasW-l.Margin-w, canvasH-l.Margin-h
	}
	l.Box = scene.Box{Left: left, Top: top, Width: w, Height: h}
	return l, nil
}

// NewWatermark returns the transient, non-interactive disclaimer object for
// a canvas of the given size.
func NewWatermark(fonts *assets.FontBook, canvasW, canvasH float64, pos Position) (*scene.Object, error) {
	l, err := LayoutWatermark(fonts, canvasW, canvasH, pos)
	if err != nil {
		return nil, err
	}
	o := scene.NewObject(scene.KindWatermark)
	o.Left, o.Top = l.Box.Left, l.Box.Top
	o.Width, o.Height = l.Box.Width, l.Box.Height
	o.Transient = true
	o.Watermark = &scene.WatermarkProps{
		Line1:       watermarkLine1,
		Line2Prefix: watermarkLine2Prefix,
		Line2Brand:  watermarkLine2Brand,
		FontSize:    watermarkFontSize,
		Padding:     l.Padding,
		LineGap:     l.LineGap,
		TextColor:   watermarkTextColor,
		ShadowColor: watermarkShadowColor,
		Background:  watermarkBackground,
	}
	return o, nil
}

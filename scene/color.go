package scene

import (
	"fmt"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RGBA is a color as stored in tool panels: 0-255 channels and a 0-1 alpha.
type RGBA struct {
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
	A float64 `json:"a"`
}

// Transparent is the panel value used when an object has no background color.
var Transparent = RGBA{R: 255, G: 255, B: 255, A: 0}

var rgbaPattern = regexp.MustCompile(`rgba?\((\d+),\s*(\d+),\s*(\d+),?\s*([\d.]+)?\)`)

// String encodes c in the form objects store it: rgba(r,g,b,a).
func (c RGBA) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

// Color converts c to a non-premultiplied image color.
func (c RGBA) Color() color.NRGBA {
	return color.NRGBA{
		R: clampByte(c.R),
		G: clampByte(c.G),
		B: clampByte(c.B),
		A: uint8(math.Round(clampUnit(c.A) * 255)),
	}
}

// ParseRGBA decodes an rgb()/rgba() string. A missing alpha component is 1.
func ParseRGBA(s string) (RGBA, bool) {
	m := rgbaPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return RGBA{}, false
	}
	r, _ := strconv.Atoi(m[1])
	g, _ := strconv.Atoi(m[2])
	b, _ := strconv.Atoi(m[3])
	a := 1.0
	if m[4] != "" {
		v, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return RGBA{}, false
		}
		a = v
	}
	return RGBA{R: r, G: g, B: b, A: a}, true
}

// ParseColor is like ParseRGBA but also accepts #rgb and #rrggbb hex colors.
func ParseColor(s string) (RGBA, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return ParseRGBA(s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return RGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGBA{}, false
	}
	return RGBA{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff), A: 1}, true
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

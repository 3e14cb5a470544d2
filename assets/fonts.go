package assets

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/eringen/overlaystudio/scene"
)

type fontStyle int

const (
	styleRegular fontStyle = iota
	styleBold
	styleItalic
	styleBoldItalic
)

func styleOf(bold, italic bool) fontStyle {
	switch {
	case bold && italic:
		return styleBoldItalic
	case bold:
		return styleBold
	case italic:
		return styleItalic
	}
	return styleRegular
}

// FontBook maps font families to parsed fonts. Families without a
// registered file render with the built-in Go fonts.
type FontBook struct {
	mu       sync.RWMutex
	families map[string]map[fontStyle]*opentype.Font
	fallback map[fontStyle]*opentype.Font
}

// NewFontBook parses the built-in fonts.
func NewFontBook() (*FontBook, error) {
	fallback := make(map[fontStyle]*opentype.Font, 4)
	for style, data := range map[fontStyle][]byte{
		styleRegular:    goregular.TTF,
		styleBold:       gobold.TTF,
		styleItalic:     goitalic.TTF,
		styleBoldItalic: gobolditalic.TTF,
	} {
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse built-in font: %w", err)
		}
		fallback[style] = f
	}
	return &FontBook{
		families: make(map[string]map[fontStyle]*opentype.Font),
		fallback: fallback,
	}, nil
}

// Register adds a TrueType/OpenType font file for family.
func (b *FontBook) Register(family string, bold, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	key := strings.ToLower(family)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.families[key] == nil {
		b.families[key] = make(map[fontStyle]*opentype.Font)
	}
	b.families[key][styleOf(bold, italic)] = f
	return nil
}

// RegisterCatalog loads every custom font in fonts through l. Fonts that
// fail to load are returned as a joined error; the others stay registered.
func (b *FontBook) RegisterCatalog(ctx context.Context, l *Loader, fonts []FontAsset) error {
	var errs []string
	for _, fa := range fonts {
		if fa.Source != "custom" || fa.FileURL == "" {
			continue
		}
		data, err := l.Fetch(ctx, fa.FileURL)
		if err == nil {
			err = b.Register(fa.Family, isBoldWeight(firstWeight(fa.Weights)), false, data)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("register fonts: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Has reports whether family has a registered font file.
func (b *FontBook) Has(family string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.families[strings.ToLower(family)]
	return ok
}

func (b *FontBook) lookup(family string, bold, italic bool) *opentype.Font {
	style := styleOf(bold, italic)
	b.mu.RLock()
	defer b.mu.RUnlock()
	if set := b.families[strings.ToLower(family)]; set != nil {
		if f := set[style]; f != nil {
			return f
		}
		if f := set[styleRegular]; f != nil {
			return f
		}
	}
	return b.fallback[style]
}

// Face returns a new face for family at size pixels. Faces are not safe for
// concurrent use, so callers get their own and must Close it.
func (b *FontBook) Face(family string, bold, italic bool, size float64) (font.Face, error) {
	f := b.lookup(family, bold, italic)
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %s: %w", family, err)
	}
	return face, nil
}

// TextFace returns the face for a text object's style.
func (b *FontBook) TextFace(t *scene.TextProps) (font.Face, error) {
	return b.Face(t.FontFamily, isBoldWeight(t.FontWeight), t.Italic(), t.FontSize)
}

// MeasureText returns the unscaled width and height of t laid out as lines.
// Char spacing is in thousandths of an em, added after every glyph.
func (b *FontBook) MeasureText(t *scene.TextProps) (float64, float64, error) {
	face, err := b.TextFace(t)
	if err != nil {
		return 0, 0, err
	}
	defer face.Close()

	lines := strings.Split(t.Content, "\n")
	var width float64
	for _, line := range lines {
		width = math.Max(width, LineWidth(face, line, t.FontSize, t.CharSpacing))
	}
	lh := t.LineHeight
	if lh <= 0 {
		lh = 1
	}
	height := t.FontSize * lh * float64(len(lines))
	return math.Ceil(width), math.Ceil(height), nil
}

// LineWidth measures one line including char spacing.
func LineWidth(face font.Face, line string, size, charSpacing float64) float64 {
	w := float64(font.MeasureString(face, line)) / 64
	if n := len([]rune(line)); n > 0 {
		w += float64(n) * charSpacing / 1000 * size
	}
	return w
}

func firstWeight(weights []string) string {
	if len(weights) == 0 {
		return "400"
	}
	return weights[0]
}

func isBoldWeight(w string) bool {
	if w == "bold" || w == "bolder" {
		return true
	}
	n, err := strconv.Atoi(w)
	return err == nil && n >= 600
}

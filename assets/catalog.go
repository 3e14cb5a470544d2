package assets

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Asset is a logo or frame image offered by the catalog.
type Asset struct {
	URL         string `yaml:"url" json:"url"`
	DisplayName string `yaml:"displayName" json:"displayName"`
	Variant     string `yaml:"variant,omitempty" json:"variant,omitempty"`
}

// FontAsset is a font family offered by the catalog. Custom fonts carry a
// file URL; other sources rely on the built-in faces.
type FontAsset struct {
	Source  string   `yaml:"source" json:"source"`
	Family  string   `yaml:"fontFamily" json:"fontFamily"`
	Weights []string `yaml:"weights" json:"weights"`
	FileURL string   `yaml:"fileUrl,omitempty" json:"fileUrl,omitempty"`
}

// Catalog groups every asset list the editor offers.
type Catalog struct {
	Logos  []Asset     `yaml:"logos" json:"logos"`
	Frames []Asset     `yaml:"frames" json:"frames"`
	Fonts  []FontAsset `yaml:"fonts" json:"fonts"`
}

// DefaultLogos is the preset library used when no catalog lists logos.
var DefaultLogos = []Asset{
	{URL: "/TAI-FullColor.png", DisplayName: "Apply Color Version"},
	{URL: "/TAI-White.png", DisplayName: "Apply White Version"},
	{URL: "/TAI-Dark.png", DisplayName: "Apply Dark Version"},
}

// DefaultCatalog returns a catalog holding only the default logos.
func DefaultCatalog() *Catalog {
	logos := make([]Asset, len(DefaultLogos))
	copy(logos, DefaultLogos)
	return &Catalog{Logos: logos}
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the
// default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML catalog data. Entries without a URL are dropped
// and an empty logo list falls back to DefaultLogos.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.Logos = withURL(c.Logos)
	c.Frames = withURL(c.Frames)
	if len(c.Logos) == 0 {
		c.Logos = DefaultCatalog().Logos
	}
	for i := range c.Fonts {
		if len(c.Fonts[i].Weights) == 0 {
			c.Fonts[i].Weights = []string{"400"}
		}
	}
	return &c, nil
}

func withURL(list []Asset) []Asset {
	out := list[:0]
	for _, a := range list {
		if a.URL != "" {
			out = append(out, a)
		}
	}
	return out
}

// LogoVariants returns the sorted unique non-empty logo variants.
func LogoVariants(logos []Asset) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range logos {
		if a.Variant != "" && !seen[a.Variant] {
			seen[a.Variant] = true
			out = append(out, a.Variant)
		}
	}
	sort.Strings(out)
	return out
}

// FilterLogos returns the logos of variant. With no variant selected the
// list is empty when variants exist, and complete when none do.
func FilterLogos(logos []Asset, variant string) []Asset {
	if variant != "" {
		var out []Asset
		for _, a := range logos {
			if a.Variant == variant {
				out = append(out, a)
			}
		}
		return out
	}
	if len(LogoVariants(logos)) > 0 {
		return []Asset{}
	}
	return logos
}

// FilterFrames keeps the frames whose variant equals ratio. An empty ratio
// keeps every frame.
func FilterFrames(frames []Asset, ratio string) []Asset {
	if ratio == "" {
		return frames
	}
	out := []Asset{}
	for _, a := range frames {
		if a.Variant == ratio {
			out = append(out, a)
		}
	}
	return out
}

// Find returns the asset in list with url.
func Find(list []Asset, url string) (Asset, bool) {
	for _, a := range list {
		if a.URL == url {
			return a, true
		}
	}
	return Asset{}, false
}

// AspectRatio returns "w:h" reduced by the greatest common divisor of the
// rounded dimensions, e.g. 1920x1080 becomes "16:9".
func AspectRatio(width, height float64) string {
	w, h := int(math.Round(width)), int(math.Round(height))
	d := gcd(w, h)
	if d == 0 {
		return "0:0"
	}
	return fmt.Sprintf("%d:%d", w/d, h/d)
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

package style

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
)

// fileColorStop and fileDefinition mirror Definition's JSON-on-disk shape; a
// style file is loaded once, validated, and never touched again.
type fileColorStop struct {
	Value float64 `json:"value"`
	RGBA  [4]uint8 `json:"rgba"`
}

type fileDefinition struct {
	Kind string `json:"kind"`

	Lo         float64         `json:"lo,omitempty"`
	Hi         float64         `json:"hi,omitempty"`
	Stops      []fileColorStop `json:"stops,omitempty"`
	OutOfRange string          `json:"out_of_range,omitempty"`

	Interval  float64  `json:"interval,omitempty"`
	LineColor [4]uint8 `json:"line_color,omitempty"`
	LineWidth float64  `json:"line_width,omitempty"`
	Label     bool     `json:"label,omitempty"`

	SpacingPx float64  `json:"spacing_px,omitempty"`
	Scale     float64  `json:"scale,omitempty"`
	BarbColor [4]uint8 `json:"barb_color,omitempty"`
}

// Set is the fully loaded, validated collection of styles a running
// process serves, keyed by style name, with precomputed palettes for
// every gradient.
type Set struct {
	Definitions map[string]Definition
	Palettes    map[string]*Palette // gradient styles only
}

// Get returns the named style, or (zero, false) if unknown.
func (s *Set) Get(name string) (Definition, bool) {
	d, ok := s.Definitions[name]
	return d, ok
}

// Palette returns the precomputed palette for a gradient style, or
// (nil, false) if name is not a gradient style.
func (s *Set) Palette(name string) (*Palette, bool) {
	p, ok := s.Palettes[name]
	return p, ok
}

// LoadDir loads every *.json file in dir as a style definition, fail-fast:
// a missing directory, an unparseable file, or a Definition that fails
// Validate aborts with an error (the caller is expected to treat this as
// fatal at process start, per the style engine's fail-fast loading rule).
func LoadDir(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("style.LoadDir(%s): %w", dir, err)
	}

	set := &Set{
		Definitions: make(map[string]Definition),
		Palettes:    make(map[string]*Palette),
	}

	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".json" {
			continue
		}
		name := ent.Name()[:len(ent.Name())-len(".json")]
		path := filepath.Join(dir, ent.Name())

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("style.LoadDir: reading %s: %w", path, err)
		}
		var fd fileDefinition
		if err := json.Unmarshal(raw, &fd); err != nil {
			return nil, fmt.Errorf("style.LoadDir: parsing %s: %w", path, err)
		}

		def, err := fd.toDefinition(name)
		if err != nil {
			return nil, fmt.Errorf("style.LoadDir: %s: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("style.LoadDir: %s: %w", path, err)
		}

		set.Definitions[name] = def
		if def.Kind == KindGradient {
			palette, err := BuildPalette(def)
			if err != nil {
				return nil, fmt.Errorf("style.LoadDir: %s: building palette: %w", path, err)
			}
			set.Palettes[name] = palette
		}
	}

	return set, nil
}

func (fd fileDefinition) toDefinition(name string) (Definition, error) {
	d := Definition{Name: name}
	switch fd.Kind {
	case "gradient":
		d.Kind = KindGradient
		d.Lo, d.Hi = fd.Lo, fd.Hi
		for _, s := range fd.Stops {
			d.Stops = append(d.Stops, ColorStop{Value: s.Value, Color: rgbaOf(s.RGBA)})
		}
		switch fd.OutOfRange {
		case "", "transparent":
			d.OutOfRange = OutOfRangeTransparent
		case "clamp":
			d.OutOfRange = OutOfRangeClamp
		default:
			return Definition{}, fmt.Errorf("unknown out_of_range policy %q", fd.OutOfRange)
		}
	case "contour":
		d.Kind = KindContour
		d.Interval = fd.Interval
		d.LineColor = rgbaOf(fd.LineColor)
		d.LineWidth = fd.LineWidth
		d.Label = fd.Label
	case "vector_barb":
		d.Kind = KindVectorBarb
		d.SpacingPx = fd.SpacingPx
		d.Scale = fd.Scale
		d.BarbColor = rgbaOf(fd.BarbColor)
	default:
		return Definition{}, fmt.Errorf("unknown style kind %q", fd.Kind)
	}
	return d, nil
}

func rgbaOf(c [4]uint8) color.NRGBA {
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

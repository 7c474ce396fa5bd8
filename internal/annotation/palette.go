package annotation

import (
	"fmt"
	"image/color"
)

// Color pairs a display color with the name it was configured under.
type Color struct {
	Name string
	RGBA color.NRGBA
}

// defaultCycle is the built-in label color rotation.
var defaultCycle = []Color{
	{"red", color.NRGBA{R: 0xe5, G: 0x39, B: 0x35, A: 0xff}},
	{"blue", color.NRGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff}},
	{"green", color.NRGBA{R: 0x43, G: 0xa0, B: 0x47, A: 0xff}},
	{"orange", color.NRGBA{R: 0xfb, G: 0x8c, B: 0x00, A: 0xff}},
	{"purple", color.NRGBA{R: 0x8e, G: 0x24, B: 0xaa, A: 0xff}},
	{"yellow", color.NRGBA{R: 0xfd, G: 0xd8, B: 0x35, A: 0xff}},
	{"grey", color.NRGBA{R: 0x75, G: 0x75, B: 0x75, A: 0xff}},
	{"cyan", color.NRGBA{R: 0x00, G: 0xac, B: 0xc1, A: 0xff}},
	{"pink", color.NRGBA{R: 0xd8, G: 0x1b, B: 0x60, A: 0xff}},
	{"teal", color.NRGBA{R: 0x00, G: 0x89, B: 0x7b, A: 0xff}},
	{"indian red", color.NRGBA{R: 0xff, G: 0x6a, B: 0x6a, A: 0xff}},
	{"khaki", color.NRGBA{R: 0xbd, G: 0xb7, B: 0x6b, A: 0xff}},
}

// Palette assigns colors to labels from a fixed cycle on first use.
type Palette struct {
	cycle    []Color
	assigned map[string]*Color
	order    []string
	next     int
}

// NewPalette builds a palette over the given cycle, falling back to the
// built-in one when cycle is empty.
func NewPalette(cycle []Color) *Palette {
	if len(cycle) == 0 {
		cycle = defaultCycle
	}
	return &Palette{
		cycle:    cycle,
		assigned: make(map[string]*Color),
	}
}

// ColorFor returns the color assigned to label, claiming the next cycle
// entry for labels seen for the first time.
func (p *Palette) ColorFor(label string) *Color {
	if c, ok := p.assigned[label]; ok {
		return c
	}
	c := p.cycle[p.next%len(p.cycle)]
	p.next++
	p.assigned[label] = &c
	p.order = append(p.order, label)
	return &c
}

// ParseCycle builds a color cycle from "#rrggbb" strings, typically
// from the config file's colors list.
func ParseCycle(hex []string) ([]Color, error) {
	cycle := make([]Color, 0, len(hex))
	for _, h := range hex {
		var r, g, b uint8
		if _, err := fmt.Sscanf(h, "#%02x%02x%02x", &r, &g, &b); err != nil {
			return nil, fmt.Errorf("invalid color %q: %w", h, err)
		}
		cycle = append(cycle, Color{
			Name: h,
			RGBA: color.NRGBA{R: r, G: g, B: b, A: 0xff},
		})
	}
	return cycle, nil
}

// Assigned returns the labels that have colors, in assignment order.
func (p *Palette) Assigned() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

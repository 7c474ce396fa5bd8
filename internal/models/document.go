package models

import "image"

// BoundingBox is an axis-aligned rectangle annotation. Coordinates are
// pixel positions at the owning document's current DPI, with (X1,Y1)
// the top-left and (X2,Y2) the bottom-right corner.
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
	Label          string
	Type           string
	Properties     map[string]string
	Selected       bool
}

func NewBoundingBox(x1, y1, x2, y2 float64, label string) *BoundingBox {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return &BoundingBox{
		X1: x1, Y1: y1, X2: x2, Y2: y2,
		Label:      label,
		Properties: make(map[string]string),
	}
}

func (b *BoundingBox) Width() float64  { return b.X2 - b.X1 }
func (b *BoundingBox) Height() float64 { return b.Y2 - b.Y1 }

// Coords returns the box corners as [x1, y1, x2, y2].
func (b *BoundingBox) Coords() [4]float64 {
	return [4]float64{b.X1, b.Y1, b.X2, b.Y2}
}

// Contains reports whether the view-space point (x, y) falls inside the
// box when the page is displayed at the given zoom.
func (b *BoundingBox) Contains(x, y, zoom float64) bool {
	return b.X1*zoom <= x && x <= b.X2*zoom &&
		b.Y1*zoom <= y && y <= b.Y2*zoom
}

// OnAnchor reports whether the view-space point (x, y) falls on the
// resize anchor, a square of anchorSize view pixels ending at the
// bottom-right corner.
func (b *BoundingBox) OnAnchor(x, y, zoom, anchorSize float64) bool {
	ax2 := b.X2 * zoom
	ay2 := b.Y2 * zoom
	return ax2-anchorSize <= x && x <= ax2 &&
		ay2-anchorSize <= y && y <= ay2
}

// Clone returns a deep copy of the box.
func (b *BoundingBox) Clone() *BoundingBox {
	out := *b
	out.Properties = make(map[string]string, len(b.Properties))
	for k, v := range b.Properties {
		out.Properties[k] = v
	}
	return &out
}

// Translate moves the box by (dx, dy) page pixels.
func (b *BoundingBox) Translate(dx, dy float64) {
	b.X1 += dx
	b.X2 += dx
	b.Y1 += dy
	b.Y2 += dy
}

// Scale multiplies all four coordinates by factor.
func (b *BoundingBox) Scale(factor float64) {
	b.X1 *= factor
	b.Y1 *= factor
	b.X2 *= factor
	b.Y2 *= factor
}

// Page is a single rendered PDF page with its annotations.
type Page struct {
	Number int // 1-based
	Image  image.Image
	Width  int
	Height int
	Boxes  []*BoundingBox
}

// Clone returns a deep copy of the page. The rendered image is shared;
// page images are replaced wholesale, never drawn into.
func (p *Page) Clone() *Page {
	out := *p
	out.Boxes = make([]*BoundingBox, len(p.Boxes))
	for i, box := range p.Boxes {
		out.Boxes[i] = box.Clone()
	}
	return &out
}

// Document is an open PDF with its rendered pages and annotation state.
type Document struct {
	Path     string
	Checksum string
	DPI      int
	Pages    []*Page
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := *d
	out.Pages = make([]*Page, len(d.Pages))
	for i, page := range d.Pages {
		out.Pages[i] = page.Clone()
	}
	return &out
}

// Page returns the 1-based page number, or nil if out of range.
func (d *Document) Page(number int) *Page {
	if number < 1 || number > len(d.Pages) {
		return nil
	}
	return d.Pages[number-1]
}

// Rescale multiplies every box coordinate on every page by factor.
// Callers changing DPI from d1 to d2 pass factor = d2/d1 so that box
// coordinates stay normalized to the current DPI.
func (d *Document) Rescale(factor float64) {
	for _, page := range d.Pages {
		for _, box := range page.Boxes {
			box.Scale(factor)
		}
	}
}

// BoxCount returns the total number of boxes across all pages.
func (d *Document) BoxCount() int {
	n := 0
	for _, page := range d.Pages {
		n += len(page.Boxes)
	}
	return n
}

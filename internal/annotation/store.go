package annotation

import (
	"fmt"
	"sort"
	"sync"

	"pagemark/internal/logger"
	"pagemark/internal/models"
)

const (
	// DefaultLabel is assigned to boxes created by a drag gesture.
	DefaultLabel = "No Label"

	// MinDragThreshold is the gesture threshold in pixels. A drag whose
	// extent stays below it is treated as a simple deselection, and a
	// resize may not shrink a box below it.
	MinDragThreshold = 5.0

	// AnchorSize is the edge length in view pixels of the bottom-right
	// resize anchor.
	AnchorSize = 8.0
)

// Store holds the open document and all annotation state. Mutations
// come from GUI event handlers; background save and export goroutines
// read deep copies taken via Snapshot, never the live document.
type Store struct {
	mu sync.RWMutex

	doc          *models.Document
	selected     *models.BoundingBox
	selectedPage int

	properties map[string][]string
	palette    *Palette
	dirty      bool

	logger logger.Logger
}

func NewStore(log logger.Logger, palette *Palette) *Store {
	if palette == nil {
		palette = NewPalette(nil)
	}
	return &Store{
		properties: make(map[string][]string),
		palette:    palette,
		logger:     log,
	}
}

// SetDocument installs a freshly opened document, dropping any previous
// selection. Property definitions survive a document change.
func (s *Store) SetDocument(doc *models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = doc
	s.selected = nil
	s.selectedPage = 0
	s.dirty = false

	if doc != nil {
		s.logger.Info("AnnotationStore", "document installed", map[string]interface{}{
			"path":  doc.Path,
			"pages": len(doc.Pages),
			"dpi":   doc.DPI,
		})
	}
}

func (s *Store) Document() *models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Snapshot returns a deep copy of the document for background save and
// export work, so those goroutines never read fields the UI thread is
// mutating. Returns nil when no document is open.
func (s *Store) Snapshot() *models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.doc == nil {
		return nil
	}
	return s.doc.Clone()
}

// CreateBox adds a new box on the given page from a completed drag
// gesture. Coordinates are page pixels; corners may arrive in any
// order. Boxes smaller than the drag threshold in either axis are
// rejected.
func (s *Store) CreateBox(pageNum int, x1, y1, x2, y2 float64) (*models.BoundingBox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := s.page(pageNum)
	if page == nil {
		return nil, fmt.Errorf("no page %d", pageNum)
	}

	box := models.NewBoundingBox(x1, y1, x2, y2, DefaultLabel)
	if box.Width() < MinDragThreshold || box.Height() < MinDragThreshold {
		return nil, fmt.Errorf("box %.1fx%.1f below minimum size", box.Width(), box.Height())
	}

	page.Boxes = append(page.Boxes, box)
	s.dirty = true

	s.logger.Debug("AnnotationStore", "box created", map[string]interface{}{
		"page":   pageNum,
		"coords": box.Coords(),
	})
	return box, nil
}

// AppendBoxes adds pre-built boxes (for example region proposals) to a
// page.
func (s *Store) AppendBoxes(pageNum int, boxes []*models.BoundingBox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := s.page(pageNum)
	if page == nil {
		return fmt.Errorf("no page %d", pageNum)
	}
	if len(boxes) == 0 {
		return nil
	}
	page.Boxes = append(page.Boxes, boxes...)
	s.dirty = true
	return nil
}

// MoveBox translates a box by (dx, dy) page pixels and marks the
// document dirty.
func (s *Store) MoveBox(box *models.BoundingBox, dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	box.Translate(dx, dy)
	s.dirty = true
}

// ResizeBox sets a new bottom-right corner, clamped so the box never
// shrinks below the drag threshold.
func (s *Store) ResizeBox(box *models.BoundingBox, x2, y2 float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if x2-box.X1 < MinDragThreshold {
		x2 = box.X1 + MinDragThreshold
	}
	if y2-box.Y1 < MinDragThreshold {
		y2 = box.Y1 + MinDragThreshold
	}
	box.X2 = x2
	box.Y2 = y2
	s.dirty = true
}

// DeleteBox removes the box at index on the given page.
func (s *Store) DeleteBox(pageNum, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := s.page(pageNum)
	if page == nil {
		return fmt.Errorf("no page %d", pageNum)
	}
	if index < 0 || index >= len(page.Boxes) {
		return fmt.Errorf("no box %d on page %d", index, pageNum)
	}

	box := page.Boxes[index]
	if box == s.selected {
		s.selected = nil
		s.selectedPage = 0
	}
	page.Boxes = append(page.Boxes[:index], page.Boxes[index+1:]...)
	s.dirty = true

	s.logger.Debug("AnnotationStore", "box deleted", map[string]interface{}{
		"page":  pageNum,
		"index": index,
	})
	return nil
}

// HitTest locates the topmost box on the page under the view-space
// point (x, y) at the given zoom. Boxes later in the list are drawn on
// top, so the search runs back to front. onAnchor is true when the
// point falls on the selected box's resize anchor.
func (s *Store) HitTest(pageNum int, x, y, zoom float64) (box *models.BoundingBox, onAnchor bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := s.page(pageNum)
	if page == nil {
		return nil, false
	}

	if s.selected != nil && s.selectedPage == pageNum && s.selected.OnAnchor(x, y, zoom, AnchorSize) {
		return s.selected, true
	}

	for i := len(page.Boxes) - 1; i >= 0; i-- {
		if page.Boxes[i].Contains(x, y, zoom) {
			return page.Boxes[i], false
		}
	}
	return nil, false
}

// Select marks the box as the current selection, clearing any previous
// one. A nil box deselects everything.
func (s *Store) Select(pageNum int, box *models.BoundingBox) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected != nil {
		s.selected.Selected = false
	}
	s.selected = box
	if box == nil {
		s.selectedPage = 0
		return
	}
	box.Selected = true
	s.selectedPage = pageNum
}

func (s *Store) Selected() (*models.BoundingBox, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selectedPage
}

// SetDPI rescales every box by newDPI/oldDPI and records the new DPI.
// Page images must be re-rendered by the caller.
func (s *Store) SetDPI(newDPI int) (factor float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return 0, fmt.Errorf("no document open")
	}
	if newDPI <= 0 {
		return 0, fmt.Errorf("invalid DPI %d", newDPI)
	}
	if newDPI == s.doc.DPI {
		return 1, nil
	}

	factor = float64(newDPI) / float64(s.doc.DPI)
	s.doc.Rescale(factor)
	s.doc.DPI = newDPI
	s.dirty = true

	s.logger.Info("AnnotationStore", "rescaled annotations", map[string]interface{}{
		"dpi":    newDPI,
		"factor": factor,
	})
	return factor, nil
}

// ColorFor returns the display color for a label, assigning the next
// palette entry to labels seen for the first time.
func (s *Store) ColorFor(label string) *Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.palette.ColorFor(label)
}

// Labels returns all labels in use, sorted, for autocompletion.
func (s *Store) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, label := range s.palette.Assigned() {
		seen[label] = struct{}{}
	}
	if s.doc != nil {
		for _, page := range s.doc.Pages {
			for _, box := range page.Boxes {
				seen[box.Label] = struct{}{}
			}
		}
	}

	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Types returns all box types in use, sorted, for the edit dialog's
// dropdown.
func (s *Store) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	if s.doc != nil {
		for _, page := range s.doc.Pages {
			for _, box := range page.Boxes {
				if box.Type != "" {
					seen[box.Type] = struct{}{}
				}
			}
		}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// AddProperty registers a new property name with an empty value list.
func (s *Store) AddProperty(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.properties[name]; exists {
		return fmt.Errorf("property %q already exists", name)
	}
	s.properties[name] = nil
	s.dirty = true
	return nil
}

// AddPropertyValue records a value as known for the property,
// registering the property if needed. Duplicate values are ignored.
func (s *Store) AddPropertyValue(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addPropertyValue(name, value)
}

func (s *Store) addPropertyValue(name, value string) {
	for _, v := range s.properties[name] {
		if v == value {
			return
		}
	}
	s.properties[name] = append(s.properties[name], value)
	s.dirty = true
}

// RemovePropertyValue drops a value from the property's known list.
func (s *Store) RemovePropertyValue(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.properties[name]
	for i, v := range values {
		if v == value {
			s.properties[name] = append(values[:i], values[i+1:]...)
			s.dirty = true
			return
		}
	}
}

// PropertyNames returns the registered property names, sorted.
func (s *Store) PropertyNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.properties))
	for name := range s.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PropertyValues returns the known values for a property.
func (s *Store) PropertyValues(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]string, len(s.properties[name]))
	copy(values, s.properties[name])
	return values
}

// Properties returns a copy of the whole property dictionary.
func (s *Store) Properties() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.properties))
	for name, values := range s.properties {
		copied := make([]string, len(values))
		copy(copied, values)
		out[name] = copied
	}
	return out
}

// SetProperties replaces the property dictionary, typically from a
// loaded annotation file.
func (s *Store) SetProperties(props map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.properties = make(map[string][]string, len(props))
	for name, values := range props {
		copied := make([]string, len(values))
		copy(copied, values)
		s.properties[name] = copied
	}
}

// UpdateBox applies edits from the edit dialog: new label, type, and
// property values. Property values not seen before join the document's
// known-value lists. Empty values clear the property on the box.
func (s *Store) UpdateBox(box *models.BoundingBox, label, typ string, props map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	box.Label = label
	box.Type = typ
	for name, value := range props {
		if value == "" {
			delete(box.Properties, name)
			continue
		}
		box.Properties[name] = value
		s.addPropertyValue(name, value)
	}
	s.dirty = true
}

func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *Store) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

func (s *Store) MarkSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

func (s *Store) page(number int) *models.Page {
	if s.doc == nil {
		return nil
	}
	return s.doc.Page(number)
}

package components

import (
	"fmt"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"pagemark/internal/annotation"
	"pagemark/internal/models"
)

const (
	boxSelectedStroke   = 4
	boxUnselectedStroke = 2
	boxFillAlpha        = 0x30
	zoomInFactor        = 1.1
	zoomOutFactor       = 0.9
	minZoom             = 0.05
	maxZoom             = 8.0
)

type gestureMode int

const (
	gestureNone gestureMode = iota
	gestureDraw
	gestureMove
	gestureResize
)

// AnnotationCanvas displays one rendered page at the current zoom and
// turns mouse gestures into box operations on the store: drag on empty
// space draws a new box, drag inside a box moves it, drag on the
// selected box's anchor resizes it.
type AnnotationCanvas struct {
	widget.BaseWidget

	store   *annotation.Store
	page    *models.Page
	pageNum int
	zoom    float64

	mode       gestureMode
	dragging   bool
	startX     float64
	startY     float64
	currentX   float64
	currentY   float64
	lastX      float64
	lastY      float64
	resizeBRX  float64
	resizeBRY  float64
	gestureBox *models.BoundingBox

	// OnChanged fires after any box mutation so the surrounding UI can
	// refresh lists and the unsaved marker.
	OnChanged func()
	// OnSelectionChanged fires when the selected box changes.
	OnSelectionChanged func(box *models.BoundingBox)
	// OnEditBox asks the application to open the edit dialog.
	OnEditBox func(box *models.BoundingBox)
	// OnCoordinate reports the readout text for the sidebar.
	OnCoordinate func(text string)
	// OnZoomChanged fires after wheel zoom so scroll bounds update.
	OnZoomChanged func(zoom float64)
}

func NewAnnotationCanvas(store *annotation.Store) *AnnotationCanvas {
	c := &AnnotationCanvas{
		store: store,
		zoom:  1.0,
	}
	c.ExtendBaseWidget(c)
	return c
}

// SetPage switches the canvas to a page. Zoom is left untouched;
// callers wanting auto-fit call FitTo afterwards.
func (c *AnnotationCanvas) SetPage(page *models.Page, number int) {
	c.page = page
	c.pageNum = number
	c.mode = gestureNone
	c.dragging = false
	c.Refresh()
}

func (c *AnnotationCanvas) Page() (*models.Page, int) {
	return c.page, c.pageNum
}

func (c *AnnotationCanvas) Zoom() float64 {
	return c.zoom
}

// FitTo picks the largest zoom that shows the whole page inside the
// given viewport.
func (c *AnnotationCanvas) FitTo(viewport fyne.Size) {
	if c.page == nil || c.page.Width == 0 || c.page.Height == 0 {
		return
	}
	zoom := math.Min(
		float64(viewport.Width)/float64(c.page.Width),
		float64(viewport.Height)/float64(c.page.Height),
	)
	c.setZoom(zoom)
}

func (c *AnnotationCanvas) setZoom(zoom float64) {
	c.zoom = math.Max(minZoom, math.Min(maxZoom, zoom))
	c.Refresh()
	if c.OnZoomChanged != nil {
		c.OnZoomChanged(c.zoom)
	}
}

func (c *AnnotationCanvas) MinSize() fyne.Size {
	if c.page == nil {
		return fyne.NewSize(400, 300)
	}
	return fyne.NewSize(
		float32(float64(c.page.Width)*c.zoom),
		float32(float64(c.page.Height)*c.zoom),
	)
}

// Tapped selects the box under the cursor, or clears the selection on
// empty space.
func (c *AnnotationCanvas) Tapped(ev *fyne.PointEvent) {
	if c.page == nil {
		return
	}
	x, y := float64(ev.Position.X), float64(ev.Position.Y)
	box, _ := c.store.HitTest(c.pageNum, x, y, c.zoom)
	c.store.Select(c.pageNum, box)
	c.Refresh()
	if c.OnSelectionChanged != nil {
		c.OnSelectionChanged(box)
	}
}

// DoubleTapped opens the edit dialog for the box under the cursor.
func (c *AnnotationCanvas) DoubleTapped(ev *fyne.PointEvent) {
	if c.page == nil || c.OnEditBox == nil {
		return
	}
	x, y := float64(ev.Position.X), float64(ev.Position.Y)
	if box, _ := c.store.HitTest(c.pageNum, x, y, c.zoom); box != nil {
		c.selectBox(box)
		c.OnEditBox(box)
	}
}

// TappedSecondary opens the edit dialog for the box under the cursor,
// mirroring the double-tap path for right-click users.
func (c *AnnotationCanvas) TappedSecondary(ev *fyne.PointEvent) {
	c.DoubleTapped(ev)
}

func (c *AnnotationCanvas) selectBox(box *models.BoundingBox) {
	c.store.Select(c.pageNum, box)
	c.Refresh()
	if c.OnSelectionChanged != nil {
		c.OnSelectionChanged(box)
	}
}

func (c *AnnotationCanvas) Dragged(ev *fyne.DragEvent) {
	if c.page == nil {
		return
	}

	x, y := float64(ev.Position.X), float64(ev.Position.Y)
	if !c.dragging {
		c.dragging = true
		c.beginGesture(x-float64(ev.Dragged.DX), y-float64(ev.Dragged.DY))
	}
	c.updateGesture(x, y)
}

func (c *AnnotationCanvas) beginGesture(x, y float64) {
	c.startX, c.startY = x, y
	c.lastX, c.lastY = x, y

	box, onAnchor := c.store.HitTest(c.pageNum, x, y, c.zoom)
	switch {
	case onAnchor:
		c.mode = gestureResize
		c.gestureBox = box
		c.resizeBRX = box.X2
		c.resizeBRY = box.Y2
	case box != nil:
		c.mode = gestureMove
		c.gestureBox = box
		c.selectBox(box)
	default:
		c.mode = gestureDraw
		c.gestureBox = nil
		c.store.Select(c.pageNum, nil)
		if c.OnSelectionChanged != nil {
			c.OnSelectionChanged(nil)
		}
	}
}

func (c *AnnotationCanvas) updateGesture(x, y float64) {
	c.currentX, c.currentY = x, y

	switch c.mode {
	case gestureResize:
		newX2 := c.resizeBRX + (x-c.startX)/c.zoom
		newY2 := c.resizeBRY + (y-c.startY)/c.zoom
		c.store.ResizeBox(c.gestureBox, newX2, newY2)
		c.reportGestureCoords()
	case gestureMove:
		c.store.MoveBox(c.gestureBox, (x-c.lastX)/c.zoom, (y-c.lastY)/c.zoom)
		c.lastX, c.lastY = x, y
		c.reportGestureCoords()
	case gestureDraw:
		c.reportDrawCoords()
	}
	c.Refresh()
}

func (c *AnnotationCanvas) DragEnd() {
	defer func() {
		c.mode = gestureNone
		c.dragging = false
		c.gestureBox = nil
		c.Refresh()
	}()

	switch c.mode {
	case gestureDraw:
		// Tiny drags are treated as a deselection, matching the tap
		// path.
		if math.Abs(c.currentX-c.startX) < annotation.MinDragThreshold ||
			math.Abs(c.currentY-c.startY) < annotation.MinDragThreshold {
			return
		}
		box, err := c.store.CreateBox(c.pageNum,
			c.startX/c.zoom, c.startY/c.zoom,
			c.currentX/c.zoom, c.currentY/c.zoom)
		if err != nil {
			return
		}
		c.store.Select(c.pageNum, box)
		if c.OnSelectionChanged != nil {
			c.OnSelectionChanged(box)
		}
		if c.OnChanged != nil {
			c.OnChanged()
		}
	case gestureMove, gestureResize:
		if c.OnChanged != nil {
			c.OnChanged()
		}
	}
}

// Scrolled zooms around the current view on wheel input.
func (c *AnnotationCanvas) Scrolled(ev *fyne.ScrollEvent) {
	if c.page == nil {
		return
	}
	if ev.Scrolled.DY > 0 {
		c.setZoom(c.zoom * zoomInFactor)
	} else if ev.Scrolled.DY < 0 {
		c.setZoom(c.zoom * zoomOutFactor)
	}
}

func (c *AnnotationCanvas) MouseIn(*desktop.MouseEvent) {}

func (c *AnnotationCanvas) MouseMoved(ev *desktop.MouseEvent) {
	if c.page == nil || c.mode != gestureNone || c.OnCoordinate == nil {
		return
	}
	x := float64(ev.Position.X) / c.zoom
	y := float64(ev.Position.Y) / c.zoom
	c.OnCoordinate(fmt.Sprintf("Pos.: %.1f, %.1f", x, y))
}

func (c *AnnotationCanvas) MouseOut() {}

func (c *AnnotationCanvas) Cursor() desktop.Cursor {
	return desktop.CrosshairCursor
}

func (c *AnnotationCanvas) reportGestureCoords() {
	if c.OnCoordinate == nil || c.gestureBox == nil {
		return
	}
	c.OnCoordinate(fmt.Sprintf("Start: %.1f, %.1f\nEnd: %.1f, %.1f",
		c.gestureBox.X1, c.gestureBox.Y1, c.gestureBox.X2, c.gestureBox.Y2))
}

func (c *AnnotationCanvas) reportDrawCoords() {
	if c.OnCoordinate == nil {
		return
	}
	c.OnCoordinate(fmt.Sprintf("Drawing from: %.1f, %.1f\nCurrent: %.1f, %.1f",
		c.startX/c.zoom, c.startY/c.zoom,
		c.currentX/c.zoom, c.currentY/c.zoom))
}

func (c *AnnotationCanvas) CreateRenderer() fyne.WidgetRenderer {
	pageImage := canvas.NewImageFromImage(nil)
	pageImage.FillMode = canvas.ImageFillStretch
	return &annotationCanvasRenderer{
		canvas:    c,
		pageImage: pageImage,
	}
}

type annotationCanvasRenderer struct {
	canvas    *AnnotationCanvas
	pageImage *canvas.Image
	overlays  []fyne.CanvasObject
}

func (r *annotationCanvasRenderer) MinSize() fyne.Size {
	return r.canvas.MinSize()
}

func (r *annotationCanvasRenderer) Layout(fyne.Size) {
	r.rebuild()
}

func (r *annotationCanvasRenderer) Refresh() {
	r.rebuild()
	canvas.Refresh(r.canvas)
}

// rebuild recreates the overlay object list from the page's boxes at
// the current zoom.
func (r *annotationCanvasRenderer) rebuild() {
	page := r.canvas.page
	zoom := r.canvas.zoom

	r.overlays = r.overlays[:0]

	if page == nil {
		r.pageImage.Image = nil
		r.pageImage.Resize(fyne.NewSize(0, 0))
		return
	}

	r.pageImage.Image = page.Image
	r.pageImage.Resize(fyne.NewSize(
		float32(float64(page.Width)*zoom),
		float32(float64(page.Height)*zoom),
	))
	r.pageImage.Move(fyne.NewPos(0, 0))

	for _, box := range page.Boxes {
		r.overlays = append(r.overlays, r.boxObjects(box, zoom)...)
	}

	if r.canvas.mode == gestureDraw && r.canvas.dragging {
		r.overlays = append(r.overlays, rubberBand(
			r.canvas.startX, r.canvas.startY,
			r.canvas.currentX, r.canvas.currentY))
	}
}

func (r *annotationCanvasRenderer) boxObjects(box *models.BoundingBox, zoom float64) []fyne.CanvasObject {
	labelColor := r.canvas.store.ColorFor(box.Label).RGBA

	x1 := float32(box.X1 * zoom)
	y1 := float32(box.Y1 * zoom)
	w := float32(box.Width() * zoom)
	h := float32(box.Height() * zoom)

	rect := canvas.NewRectangle(color.NRGBA{
		R: labelColor.R, G: labelColor.G, B: labelColor.B, A: boxFillAlpha,
	})
	rect.StrokeColor = labelColor
	rect.StrokeWidth = boxUnselectedStroke
	if box.Selected {
		rect.StrokeWidth = boxSelectedStroke
	}
	rect.Move(fyne.NewPos(x1, y1))
	rect.Resize(fyne.NewSize(w, h))

	label := canvas.NewText(box.Label, color.Black)
	label.TextSize = 12
	labelSize := label.MinSize()
	label.Move(fyne.NewPos(x1+w/2-labelSize.Width/2, y1-labelSize.Height-2))

	objects := []fyne.CanvasObject{rect, label}

	if box.Selected {
		anchor := canvas.NewRectangle(color.Black)
		anchor.Move(fyne.NewPos(
			float32(box.X2*zoom-annotation.AnchorSize),
			float32(box.Y2*zoom-annotation.AnchorSize),
		))
		anchor.Resize(fyne.NewSize(annotation.AnchorSize, annotation.AnchorSize))
		objects = append(objects, anchor)
	}
	return objects
}

func rubberBand(x1, y1, x2, y2 float64) fyne.CanvasObject {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	rect := canvas.NewRectangle(color.Transparent)
	rect.StrokeColor = color.Black
	rect.StrokeWidth = boxUnselectedStroke
	rect.Move(fyne.NewPos(float32(x1), float32(y1)))
	rect.Resize(fyne.NewSize(float32(x2-x1), float32(y2-y1)))
	return rect
}

func (r *annotationCanvasRenderer) Objects() []fyne.CanvasObject {
	objects := make([]fyne.CanvasObject, 0, len(r.overlays)+1)
	objects = append(objects, r.pageImage)
	objects = append(objects, r.overlays...)
	return objects
}

func (r *annotationCanvasRenderer) Destroy() {}

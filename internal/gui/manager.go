// Package gui builds the PageMark window: a sidebar next to a
// scrollable annotation canvas, with a status bar underneath.
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"

	"pagemark/internal/annotation"
	"pagemark/internal/gui/components"
	"pagemark/internal/logger"
	"pagemark/internal/models"
)

const sidebarSplit = 0.22

type Manager struct {
	window fyne.Window
	logger logger.Logger
	store  *annotation.Store

	sidebar *components.Sidebar
	canvas  *components.AnnotationCanvas
	status  *components.StatusBar
	scroll  *container.Scroll
	content *container.Split

	currentPage int

	dpiChangeHandler        func(dpi int)
	editBoxHandler          func(box *models.BoundingBox)
	deleteBoxHandler        func(page, index int)
	addPropertyHandler      func()
	propertyValueAddHandler func(name string)
	changedHandler          func()
}

func NewManager(window fyne.Window, store *annotation.Store, log logger.Logger, initialDPI int) *Manager {
	m := &Manager{
		window:  window,
		logger:  log,
		store:   store,
		sidebar: components.NewSidebar(initialDPI),
		canvas:  components.NewAnnotationCanvas(store),
		status:  components.NewStatusBar(),
	}

	m.scroll = container.NewScroll(m.canvas)
	m.content = container.NewHSplit(m.sidebar.GetContainer(), m.scroll)
	m.content.SetOffset(sidebarSplit)

	m.wireSidebar()
	m.wireCanvas()

	log.Info("GUIManager", "interface initialized", nil)
	return m
}

func (m *Manager) wireSidebar() {
	m.sidebar.OnDPIChange = func(dpi int) {
		if m.dpiChangeHandler != nil {
			m.dpiChangeHandler(dpi)
		}
	}
	m.sidebar.OnInvalidDPI = func(raw string) {
		dialog.ShowError(fmt.Errorf("invalid DPI value %q", raw), m.window)
	}
	m.sidebar.OnPageSelected = func(page int) {
		m.ShowPage(page)
	}
	m.sidebar.OnBoxSelected = func(index int) {
		box := m.boxAt(index)
		if box == nil {
			return
		}
		m.store.Select(m.currentPage, box)
		m.canvas.Refresh()
		m.centerOnBox(box)
	}
	m.sidebar.OnBoxEdit = func(index int) {
		if box := m.boxAt(index); box != nil && m.editBoxHandler != nil {
			m.editBoxHandler(box)
		}
	}
	m.sidebar.OnBoxDelete = func(index int) {
		if m.deleteBoxHandler != nil {
			m.deleteBoxHandler(m.currentPage, index)
		}
	}
	m.sidebar.OnAddProperty = func() {
		if m.addPropertyHandler != nil {
			m.addPropertyHandler()
		}
	}
	m.sidebar.OnPropertyValueAdd = func(name string) {
		if m.propertyValueAddHandler != nil {
			m.propertyValueAddHandler(name)
		}
	}
	m.sidebar.OnPropertyValueRemove = func(name, value string) {
		m.store.RemovePropertyValue(name, value)
		m.RefreshProperties()
		m.markChanged()
	}
}

func (m *Manager) wireCanvas() {
	m.canvas.OnChanged = func() {
		m.RefreshBoxes()
		m.markChanged()
	}
	m.canvas.OnSelectionChanged = func(box *models.BoundingBox) {
		m.sidebar.SelectBox(m.boxIndex(box))
	}
	m.canvas.OnEditBox = func(box *models.BoundingBox) {
		if m.editBoxHandler != nil {
			m.editBoxHandler(box)
		}
	}
	m.canvas.OnCoordinate = m.sidebar.SetCoordinates
	m.canvas.OnZoomChanged = func(zoom float64) {
		m.status.SetZoom(zoom)
		m.scroll.Refresh()
	}
}

func (m *Manager) markChanged() {
	if m.changedHandler != nil {
		m.changedHandler()
	}
}

func (m *Manager) boxAt(index int) *models.BoundingBox {
	doc := m.store.Document()
	if doc == nil {
		return nil
	}
	page := doc.Page(m.currentPage)
	if page == nil || index < 0 || index >= len(page.Boxes) {
		return nil
	}
	return page.Boxes[index]
}

func (m *Manager) boxIndex(box *models.BoundingBox) int {
	doc := m.store.Document()
	if doc == nil || box == nil {
		return -1
	}
	page := doc.Page(m.currentPage)
	if page == nil {
		return -1
	}
	for i, b := range page.Boxes {
		if b == box {
			return i
		}
	}
	return -1
}

// centerOnBox scrolls the viewport so the box's center is as close to
// the viewport center as the page bounds allow.
func (m *Manager) centerOnBox(box *models.BoundingBox) {
	zoom := m.canvas.Zoom()
	cx := float32((box.X1 + box.X2) / 2 * zoom)
	cy := float32((box.Y1 + box.Y2) / 2 * zoom)
	view := m.scroll.Size()

	m.scroll.Offset = fyne.NewPos(
		clampOffset(cx-view.Width/2, m.canvas.MinSize().Width-view.Width),
		clampOffset(cy-view.Height/2, m.canvas.MinSize().Height-view.Height),
	)
	m.scroll.Refresh()
}

func clampOffset(v, max float32) float32 {
	if max < 0 {
		max = 0
	}
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// GetMainContainer returns the window content layout.
func (m *Manager) GetMainContainer() fyne.CanvasObject {
	return container.NewBorder(
		nil,
		m.status.GetContainer(),
		nil, nil,
		m.content,
	)
}

func (m *Manager) GetWindow() fyne.Window {
	return m.window
}

// ShowDocument resets the page list for a freshly opened or reloaded
// document and displays its first page.
func (m *Manager) ShowDocument(doc *models.Document) {
	if doc == nil {
		return
	}
	m.sidebar.SetPages(len(doc.Pages))
	m.sidebar.SetDPIValue(doc.DPI)
	m.RefreshProperties()
	m.ShowPage(1)
	m.sidebar.SelectPage(1)
}

// ShowPage displays the 1-based page number with auto-fit zoom.
func (m *Manager) ShowPage(number int) {
	doc := m.store.Document()
	if doc == nil {
		return
	}
	page := doc.Page(number)
	if page == nil {
		return
	}

	m.currentPage = number
	m.canvas.SetPage(page, number)
	m.canvas.FitTo(m.scroll.Size())
	m.scroll.Offset = fyne.NewPos(0, 0)
	m.scroll.Refresh()
	m.status.SetZoom(m.canvas.Zoom())
	m.sidebar.SelectPage(number)
	m.RefreshBoxes()

	m.logger.Debug("GUIManager", "page shown", map[string]interface{}{
		"page": number,
		"zoom": m.canvas.Zoom(),
	})
}

// CurrentPage returns the 1-based displayed page number, 0 when no
// document is open.
func (m *Manager) CurrentPage() int {
	return m.currentPage
}

// RefreshBoxes resyncs the sidebar box list with the current page.
func (m *Manager) RefreshBoxes() {
	doc := m.store.Document()
	if doc == nil {
		m.sidebar.SetBoxes(nil)
		return
	}
	page := doc.Page(m.currentPage)
	if page == nil {
		m.sidebar.SetBoxes(nil)
		return
	}

	labels := make([]string, len(page.Boxes))
	for i, box := range page.Boxes {
		labels[i] = box.Label
	}
	m.sidebar.SetBoxes(labels)

	if selected, pageNum := m.store.Selected(); pageNum == m.currentPage {
		m.sidebar.SelectBox(m.boxIndex(selected))
	}
	m.canvas.Refresh()
}

// RefreshProperties resyncs the property accordion with the store.
func (m *Manager) RefreshProperties() {
	m.sidebar.SetProperties(m.store.Properties(), m.store.PropertyNames())
}

func (m *Manager) UpdateStatus(status string) {
	m.status.SetStatus(status)
}

func (m *Manager) UpdateProgress(value float64) {
	m.status.SetProgress(value)
}

func (m *Manager) SetDPIChangeHandler(handler func(dpi int)) {
	m.dpiChangeHandler = handler
}

func (m *Manager) SetEditBoxHandler(handler func(box *models.BoundingBox)) {
	m.editBoxHandler = handler
}

func (m *Manager) SetDeleteBoxHandler(handler func(page, index int)) {
	m.deleteBoxHandler = handler
}

func (m *Manager) SetAddPropertyHandler(handler func()) {
	m.addPropertyHandler = handler
}

func (m *Manager) SetPropertyValueAddHandler(handler func(name string)) {
	m.propertyValueAddHandler = handler
}

func (m *Manager) SetChangedHandler(handler func()) {
	m.changedHandler = handler
}

// ShowError surfaces an error dialog.
func (m *Manager) ShowError(err error) {
	dialog.ShowError(err, m.window)
}

package components

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Sidebar holds the DPI control, page list, property panel, box list,
// and the coordinate readout.
type Sidebar struct {
	container *fyne.Container

	dpiEntry  *widget.Entry
	pageList  *widget.List
	boxList   *widget.List
	propPanel *widget.Accordion
	pageLabel *widget.Label
	coords    *widget.Label

	pageCount   int
	pageNames   []string
	boxNames    []string
	selectedBox int

	// OnDPIChange fires when the user applies a new DPI value.
	OnDPIChange func(dpi int)
	// OnPageSelected fires with the 1-based page number.
	OnPageSelected func(page int)
	// OnBoxSelected fires with the box index on the current page.
	OnBoxSelected func(index int)
	// OnBoxEdit asks for the edit dialog on the box at index.
	OnBoxEdit func(index int)
	// OnBoxDelete asks for deletion of the box at index.
	OnBoxDelete func(index int)
	// OnAddProperty asks for a new property name prompt.
	OnAddProperty func()
	// OnPropertyValueAdd / Remove mutate a property's value list.
	OnPropertyValueAdd    func(property string)
	OnPropertyValueRemove func(property, value string)

	// OnInvalidDPI reports a rejected DPI input.
	OnInvalidDPI func(raw string)
}

func NewSidebar(initialDPI int) *Sidebar {
	s := &Sidebar{selectedBox: -1}

	s.dpiEntry = widget.NewEntry()
	s.dpiEntry.SetText(strconv.Itoa(initialDPI))
	setButton := widget.NewButton("Set", func() {
		dpi, err := strconv.Atoi(s.dpiEntry.Text)
		if err != nil || dpi <= 0 {
			if s.OnInvalidDPI != nil {
				s.OnInvalidDPI(s.dpiEntry.Text)
			}
			return
		}
		if s.OnDPIChange != nil {
			s.OnDPIChange(dpi)
		}
	})
	dpiRow := container.NewBorder(nil, nil, widget.NewLabel("DPI:"), setButton, s.dpiEntry)

	s.pageList = widget.NewList(
		func() int { return len(s.pageNames) },
		func() fyne.CanvasObject { return widget.NewLabel("Page 00") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(s.pageNames[i])
		},
	)
	s.pageList.OnSelected = func(i widget.ListItemID) {
		if s.OnPageSelected != nil {
			s.OnPageSelected(i + 1)
		}
	}
	s.pageLabel = widget.NewLabel("Current Page: --")

	s.propPanel = widget.NewAccordion()
	addPropButton := widget.NewButton("Add Property", func() {
		if s.OnAddProperty != nil {
			s.OnAddProperty()
		}
	})

	s.boxList = widget.NewList(
		func() int { return len(s.boxNames) },
		func() fyne.CanvasObject { return widget.NewLabel("00. label") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(s.boxNames[i])
		},
	)
	s.boxList.OnSelected = func(i widget.ListItemID) {
		s.selectedBox = i
		if s.OnBoxSelected != nil {
			s.OnBoxSelected(i)
		}
	}
	editButton := widget.NewButton("Edit", func() { s.withBoxSelection(s.OnBoxEdit) })
	deleteButton := widget.NewButton("Delete", func() { s.withBoxSelection(s.OnBoxDelete) })
	boxButtons := container.NewGridWithColumns(2, editButton, deleteButton)

	s.coords = widget.NewLabel("")
	s.coords.Wrapping = fyne.TextWrapOff

	pagesSection := container.NewBorder(
		widget.NewLabel("Pages:"),
		container.NewVBox(s.pageLabel, widget.NewSeparator()),
		nil, nil,
		s.pageList,
	)
	propsSection := container.NewBorder(
		widget.NewLabel("Properties:"),
		addPropButton,
		nil, nil,
		container.NewVScroll(s.propPanel),
	)
	boxSection := container.NewBorder(
		widget.NewLabel("Bounding Boxes:"),
		boxButtons,
		nil, nil,
		s.boxList,
	)

	split := container.NewVSplit(pagesSection, container.NewVSplit(propsSection, boxSection))

	s.container = container.NewBorder(
		dpiRow,
		s.coords,
		nil, nil,
		split,
	)
	return s
}

func (s *Sidebar) GetContainer() *fyne.Container {
	return s.container
}

func (s *Sidebar) withBoxSelection(fn func(int)) {
	if fn == nil {
		return
	}
	// The list widget keeps no public selection accessor, so the
	// sidebar tracks the last selected index itself.
	if s.selectedBox >= 0 && s.selectedBox < len(s.boxNames) {
		fn(s.selectedBox)
	}
}

// SetPages resets the page list to count entries.
func (s *Sidebar) SetPages(count int) {
	s.pageCount = count
	s.pageNames = make([]string, count)
	for i := range s.pageNames {
		s.pageNames[i] = fmt.Sprintf(" Page %d", i+1)
	}
	s.pageList.UnselectAll()
	s.pageList.Refresh()
}

// SelectPage highlights the 1-based page number and updates the
// current-page label.
func (s *Sidebar) SelectPage(page int) {
	if page < 1 || page > s.pageCount {
		return
	}
	s.pageList.Select(page - 1)
	s.pageLabel.SetText(fmt.Sprintf("Current Page: %02d", page))
}

// SetBoxes replaces the box list entries with "NN. label" rows.
func (s *Sidebar) SetBoxes(labels []string) {
	s.boxNames = make([]string, len(labels))
	for i, label := range labels {
		s.boxNames[i] = fmt.Sprintf("%02d. %s", i+1, label)
	}
	s.selectedBox = -1
	s.boxList.UnselectAll()
	s.boxList.Refresh()
}

// SelectBox highlights the box at index without firing OnBoxSelected
// recursion; pass -1 to clear.
func (s *Sidebar) SelectBox(index int) {
	s.selectedBox = index
	if index < 0 {
		s.boxList.UnselectAll()
		return
	}
	s.boxList.Select(index)
}

// SetDPIValue updates the entry, used when a loaded file changes DPI.
func (s *Sidebar) SetDPIValue(dpi int) {
	s.dpiEntry.SetText(strconv.Itoa(dpi))
}

// SetCoordinates updates the readout under the box list.
func (s *Sidebar) SetCoordinates(text string) {
	s.coords.SetText(text)
}

// SetProperties rebuilds the accordion, one collapsible item per
// property with its value list and add/remove buttons.
func (s *Sidebar) SetProperties(properties map[string][]string, names []string) {
	items := make([]*widget.AccordionItem, 0, len(names))
	for _, name := range names {
		items = append(items, s.propertyItem(name, properties[name]))
	}

	s.propPanel.Items = nil
	for _, item := range items {
		s.propPanel.Append(item)
	}
	s.propPanel.Refresh()
}

func (s *Sidebar) propertyItem(name string, values []string) *widget.AccordionItem {
	rows := make([]fyne.CanvasObject, 0, len(values)+1)
	for _, value := range values {
		value := value
		removeButton := widget.NewButton("Del", func() {
			if s.OnPropertyValueRemove != nil {
				s.OnPropertyValueRemove(name, value)
			}
		})
		rows = append(rows, container.NewBorder(nil, nil, nil, removeButton, widget.NewLabel(value)))
	}
	addButton := widget.NewButton("Add", func() {
		if s.OnPropertyValueAdd != nil {
			s.OnPropertyValueAdd(name)
		}
	})
	rows = append(rows, addButton)

	return widget.NewAccordionItem(name, container.NewVBox(rows...))
}

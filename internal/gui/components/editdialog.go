package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"pagemark/internal/models"
)

// BoxEdit carries the values applied from the edit dialog.
type BoxEdit struct {
	Label      string
	Type       string
	Properties map[string]string
}

// ShowEditDialog opens the label/type/properties form for a box.
// labels and types feed the dropdowns; properties maps each document
// property to its known values. onApply receives the edited values
// only when the dialog is confirmed.
func ShowEditDialog(window fyne.Window, box *models.BoundingBox,
	labels, types []string, properties map[string][]string,
	propertyNames []string, onApply func(BoxEdit)) {

	labelEntry := widget.NewSelectEntry(labels)
	labelEntry.SetText(box.Label)

	typeEntry := widget.NewSelectEntry(types)
	typeEntry.SetText(box.Type)

	items := []*widget.FormItem{
		widget.NewFormItem("Label", labelEntry),
		widget.NewFormItem("Type", typeEntry),
	}

	propEntries := make(map[string]*widget.SelectEntry, len(propertyNames))
	for _, name := range propertyNames {
		entry := widget.NewSelectEntry(properties[name])
		entry.SetText(box.Properties[name])
		propEntries[name] = entry
		items = append(items, widget.NewFormItem(name, entry))
	}

	dialog.ShowForm("Edit Bounding Box", "Apply", "Cancel", items, func(confirmed bool) {
		if !confirmed {
			return
		}
		edit := BoxEdit{
			Label:      labelEntry.Text,
			Type:       typeEntry.Text,
			Properties: make(map[string]string, len(propEntries)),
		}
		if edit.Label == "" {
			edit.Label = box.Label
		}
		for name, entry := range propEntries {
			edit.Properties[name] = entry.Text
		}
		onApply(edit)
	}, window)
}

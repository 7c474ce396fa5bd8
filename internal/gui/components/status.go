package components

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type StatusBar struct {
	container   *fyne.Container
	statusLabel *widget.Label
	zoomLabel   *widget.Label
	progress    *widget.ProgressBar
}

func NewStatusBar() *StatusBar {
	statusLabel := widget.NewLabel("Ready")
	zoomLabel := widget.NewLabel("Zoom: --")

	progress := widget.NewProgressBar()
	progress.Hide()

	mainContainer := container.NewBorder(
		nil, nil,
		statusLabel,
		container.NewHBox(progress, widget.NewSeparator(), zoomLabel),
	)

	return &StatusBar{
		container:   mainContainer,
		statusLabel: statusLabel,
		zoomLabel:   zoomLabel,
		progress:    progress,
	}
}

func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}

func (sb *StatusBar) SetStatus(status string) {
	sb.statusLabel.SetText(status)
}

func (sb *StatusBar) SetZoom(zoom float64) {
	sb.zoomLabel.SetText(fmt.Sprintf("Zoom: %d%%", int(zoom*100)))
}

// SetProgress shows the bar while value is in (0, 1) and hides it at
// the ends.
func (sb *StatusBar) SetProgress(value float64) {
	if value <= 0 || value >= 1 {
		sb.progress.Hide()
		return
	}
	sb.progress.Show()
	sb.progress.SetValue(value)
}

package app

import (
	"fmt"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"pagemark/internal/annotation"
	"pagemark/internal/gui"
	"pagemark/internal/gui/components"
	"pagemark/internal/logger"
	"pagemark/internal/models"
	"pagemark/internal/pipeline"
	"pagemark/internal/render"
	"pagemark/internal/suggest"
)

// Handlers implements the user-facing operations behind menus, dialogs,
// and sidebar actions. Long work (rendering, file I/O) runs in a
// goroutine with results marshalled back through fyne.Do.
type Handlers struct {
	store      *annotation.Store
	guiManager *gui.Manager
	renderer   *render.Renderer
	saver      *pipeline.Saver
	loader     *pipeline.Loader
	exporter   *pipeline.Exporter
	suggester  *suggest.Suggester
	logger     logger.Logger

	currentDPI   int
	lastSavePath string
	updateTitle  func()
}

func NewHandlers(store *annotation.Store, gm *gui.Manager, renderer *render.Renderer,
	saver *pipeline.Saver, loader *pipeline.Loader, exporter *pipeline.Exporter,
	suggester *suggest.Suggester, log logger.Logger, dpi int) *Handlers {

	return &Handlers{
		store:       store,
		guiManager:  gm,
		renderer:    renderer,
		saver:       saver,
		loader:      loader,
		exporter:    exporter,
		suggester:   suggester,
		logger:      log,
		currentDPI:  dpi,
		updateTitle: func() {},
	}
}

func (h *Handlers) SetTitleUpdater(update func()) {
	h.updateTitle = update
}

// HandleOpenPDF prompts for a PDF and renders it at the current DPI.
func (h *Handlers) HandleOpenPDF() {
	fo := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			h.guiManager.ShowError(err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()
		h.OpenPDFPath(path)
	}, h.guiManager.GetWindow())
	fo.SetFilter(storage.NewExtensionFileFilter([]string{".pdf"}))
	fo.Show()
}

// OpenPDFPath renders the PDF at path and installs it as the open
// document.
func (h *Handlers) OpenPDFPath(path string) {
	h.guiManager.UpdateStatus("Rendering PDF...")

	go func() {
		doc, err := h.renderer.OpenDocument(path, h.currentDPI, h.progress)
		fyne.Do(func() {
			h.guiManager.UpdateProgress(1)
			if err != nil {
				h.guiManager.ShowError(fmt.Errorf("failed to convert PDF: %w", err))
				h.guiManager.UpdateStatus("Ready")
				return
			}
			h.store.SetDocument(doc)
			h.lastSavePath = ""
			h.guiManager.ShowDocument(doc)
			h.guiManager.UpdateStatus(fmt.Sprintf("Loaded %d pages at %d DPI", len(doc.Pages), doc.DPI))
			h.updateTitle()
		})
	}()
}

func (h *Handlers) progress(page, total int) {
	fyne.Do(func() {
		h.guiManager.UpdateProgress(float64(page) / float64(total))
	})
}

// HandleDPIChange rescales all boxes by newDPI/oldDPI and re-renders
// the pages at the new resolution.
func (h *Handlers) HandleDPIChange(dpi int) {
	doc := h.store.Document()
	if doc == nil {
		h.currentDPI = dpi
		return
	}

	factor, err := h.store.SetDPI(dpi)
	if err != nil {
		h.guiManager.ShowError(err)
		return
	}
	h.currentDPI = dpi
	h.updateTitle()
	if factor == 1 {
		return
	}
	h.rerenderPages(doc)
}

// rerenderPages replaces the document's page images at its current
// DPI, keeping all boxes.
func (h *Handlers) rerenderPages(doc *models.Document) {
	h.guiManager.UpdateStatus("Re-rendering PDF...")

	go func() {
		pages, err := h.renderer.RenderPages(doc.Path, doc.DPI, h.progress)
		fyne.Do(func() {
			h.guiManager.UpdateProgress(1)
			if err != nil {
				h.guiManager.ShowError(fmt.Errorf("failed to convert PDF at new DPI: %w", err))
				h.guiManager.UpdateStatus("Ready")
				return
			}
			for i, page := range pages {
				if i >= len(doc.Pages) {
					break
				}
				doc.Pages[i].Image = page.Image
				doc.Pages[i].Width = page.Width
				doc.Pages[i].Height = page.Height
			}
			current := h.guiManager.CurrentPage()
			if current == 0 {
				current = 1
			}
			h.guiManager.ShowPage(current)
			h.guiManager.UpdateStatus(fmt.Sprintf("Re-rendered at %d DPI", doc.DPI))
		})
	}()
}

// HandleLoadAnnotations loads a saved annotation file, prompting when
// it references a different PDF than the open one.
func (h *Handlers) HandleLoadAnnotations() {
	fo := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			h.guiManager.ShowError(err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()
		h.loadAnnotationsPath(path)
	}, h.guiManager.GetWindow())
	fo.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	fo.Show()
}

func (h *Handlers) loadAnnotationsPath(path string) {
	file, err := h.loader.LoadPath(path)
	if err != nil {
		h.guiManager.ShowError(fmt.Errorf("failed to load annotations: %w", err))
		return
	}

	doc := h.store.Document()
	if doc == nil {
		if file.Filename == "" || !fileExists(file.Filename) {
			h.store.SetProperties(file.Properties)
			h.guiManager.RefreshProperties()
			dialog.ShowInformation("Annotations",
				"Annotations loaded, but no PDF is open.", h.guiManager.GetWindow())
			return
		}
		h.openReferencedPDF(file, path)
		return
	}

	mismatch := h.loader.CompareWith(doc, file)
	if (mismatch.FilenameDiffers || mismatch.ChecksumDiffers) && fileExists(file.Filename) {
		dialog.ShowConfirm("PDF Mismatch",
			"The annotations file references a PDF that may differ from the open one.\n"+
				"Load the referenced PDF? (No keeps the current document.)",
			func(loadReferenced bool) {
				if loadReferenced {
					h.openReferencedPDF(file, path)
				} else {
					h.applyAnnotations(doc, file, path)
				}
			}, h.guiManager.GetWindow())
		return
	}

	h.applyAnnotations(doc, file, path)
}

// openReferencedPDF renders the PDF named inside the annotation file at
// the file's DPI, then applies the annotations to it.
func (h *Handlers) openReferencedPDF(file *pipeline.AnnotationFile, savePath string) {
	dpi := file.DPI
	if dpi == 0 {
		dpi = h.currentDPI
	}
	h.guiManager.UpdateStatus("Rendering PDF...")

	go func() {
		doc, err := h.renderer.OpenDocument(file.Filename, dpi, h.progress)
		fyne.Do(func() {
			h.guiManager.UpdateProgress(1)
			if err != nil {
				h.guiManager.ShowError(fmt.Errorf("failed to convert PDF: %w", err))
				h.guiManager.UpdateStatus("Ready")
				return
			}
			if file.Checksum != "" && doc.Checksum != file.Checksum {
				h.logger.Warning("Handlers", "checksum mismatch on referenced PDF", map[string]interface{}{
					"expected": file.Checksum,
					"actual":   doc.Checksum,
				})
			}
			h.store.SetDocument(doc)
			h.applyAnnotations(doc, file, savePath)
		})
	}()
}

// applyAnnotations installs the file's boxes and properties on the
// document, re-rendering when the file was saved at a different DPI.
// Box coordinates in the file are already at the file's DPI, so no
// rescale happens here.
func (h *Handlers) applyAnnotations(doc *models.Document, file *pipeline.AnnotationFile, savePath string) {
	h.store.SetProperties(file.Properties)
	h.loader.Apply(doc, file)

	if file.DPI != 0 && file.DPI != doc.DPI {
		doc.DPI = file.DPI
		h.currentDPI = file.DPI
		h.rerenderPages(doc)
	}

	h.lastSavePath = savePath
	h.store.MarkSaved()
	h.guiManager.ShowDocument(doc)
	h.guiManager.UpdateStatus("Annotations loaded")
	h.updateTitle()
}

// HandleSave writes to the last save path, falling back to Save As.
func (h *Handlers) HandleSave() {
	if h.lastSavePath == "" {
		h.HandleSaveAs()
		return
	}
	doc := h.snapshotDocument()
	if doc == nil {
		return
	}

	path := h.lastSavePath
	props := h.store.Properties()
	go func() {
		err := h.saver.SaveToPath(path, doc, props)
		fyne.Do(func() {
			if err != nil {
				h.guiManager.ShowError(fmt.Errorf("failed to save annotations: %w", err))
				return
			}
			h.store.MarkSaved()
			h.updateTitle()
			h.guiManager.UpdateStatus("Annotations saved")
		})
	}()
}

func (h *Handlers) HandleSaveAs() {
	if h.store.Document() == nil {
		h.guiManager.ShowError(fmt.Errorf("no PDF loaded"))
		return
	}

	fs := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			h.guiManager.ShowError(err)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		doc := h.snapshotDocument()
		if doc == nil {
			writer.Close()
			return
		}
		props := h.store.Properties()

		go func() {
			saveErr := h.saver.Save(writer, doc, props)
			writer.Close()
			fyne.Do(func() {
				if saveErr != nil {
					h.guiManager.ShowError(fmt.Errorf("failed to save annotations: %w", saveErr))
					return
				}
				h.lastSavePath = path
				h.store.MarkSaved()
				h.updateTitle()
				h.guiManager.UpdateStatus("Annotations saved")
			})
		}()
	}, h.guiManager.GetWindow())
	fs.SetFileName("annotations.json")
	fs.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	fs.Show()
}

// HandleExportImage saves the displayed page as PNG.
func (h *Handlers) HandleExportImage() {
	doc := h.snapshotDocument()
	if doc == nil {
		return
	}
	page := doc.Page(h.guiManager.CurrentPage())
	if page == nil {
		h.guiManager.ShowError(fmt.Errorf("no page loaded"))
		return
	}

	fs := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			h.guiManager.ShowError(err)
			return
		}
		if writer == nil {
			return
		}
		go func() {
			exportErr := h.exporter.ExportPage(writer, page)
			writer.Close()
			fyne.Do(func() {
				if exportErr != nil {
					h.guiManager.ShowError(fmt.Errorf("failed to export image: %w", exportErr))
					return
				}
				h.guiManager.UpdateStatus("Image exported")
			})
		}()
	}, h.guiManager.GetWindow())
	fs.SetFileName(fmt.Sprintf("page-%02d.png", page.Number))
	fs.SetFilter(storage.NewExtensionFileFilter([]string{".png"}))
	fs.Show()
}

// HandleExportAllImages saves every page as a numbered PNG in a ZIP.
func (h *Handlers) HandleExportAllImages() {
	doc := h.snapshotDocument()
	if doc == nil {
		return
	}

	fs := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			h.guiManager.ShowError(err)
			return
		}
		if writer == nil {
			return
		}
		go func() {
			exportErr := h.exporter.ExportArchive(writer, doc)
			writer.Close()
			fyne.Do(func() {
				if exportErr != nil {
					h.guiManager.ShowError(fmt.Errorf("failed to export zip: %w", exportErr))
					return
				}
				h.guiManager.UpdateStatus("All images exported")
			})
		}()
	}, h.guiManager.GetWindow())
	fs.SetFileName(pipeline.ArchiveName(doc.Path))
	fs.SetFilter(storage.NewExtensionFileFilter([]string{".zip"}))
	fs.Show()
}

// HandleExportBoxes writes the flat bboxes/labels JSON.
func (h *Handlers) HandleExportBoxes() {
	doc := h.snapshotDocument()
	if doc == nil {
		return
	}

	fs := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			h.guiManager.ShowError(err)
			return
		}
		if writer == nil {
			return
		}
		go func() {
			exportErr := h.exporter.ExportBoxes(writer, doc)
			writer.Close()
			fyne.Do(func() {
				if exportErr != nil {
					h.guiManager.ShowError(fmt.Errorf("failed to export bounding boxes: %w", exportErr))
					return
				}
				h.guiManager.UpdateStatus("Bounding boxes exported")
			})
		}()
	}, h.guiManager.GetWindow())
	fs.SetFileName("bboxes.json")
	fs.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	fs.Show()
}

// HandleEditBox opens the label/type/properties dialog for a box.
func (h *Handlers) HandleEditBox(box *models.BoundingBox) {
	components.ShowEditDialog(
		h.guiManager.GetWindow(),
		box,
		h.store.Labels(),
		h.store.Types(),
		h.store.Properties(),
		h.store.PropertyNames(),
		func(edit components.BoxEdit) {
			h.store.UpdateBox(box, edit.Label, edit.Type, edit.Properties)
			h.guiManager.RefreshBoxes()
			h.guiManager.RefreshProperties()
			h.updateTitle()
		},
	)
}

// HandleDeleteBox removes a box after confirmation.
func (h *Handlers) HandleDeleteBox(page, index int) {
	dialog.ShowConfirm("Delete Bounding Box",
		"Are you sure you want to delete this box?",
		func(confirmed bool) {
			if !confirmed {
				return
			}
			if err := h.store.DeleteBox(page, index); err != nil {
				h.guiManager.ShowError(err)
				return
			}
			h.guiManager.RefreshBoxes()
			h.updateTitle()
		}, h.guiManager.GetWindow())
}

// HandleAddProperty prompts for a new property name.
func (h *Handlers) HandleAddProperty() {
	h.promptText("Add Property", "Property name", func(name string) {
		if err := h.store.AddProperty(name); err != nil {
			dialog.ShowInformation("Duplicate", err.Error(), h.guiManager.GetWindow())
			return
		}
		h.guiManager.RefreshProperties()
		h.updateTitle()
	})
}

// HandleAddPropertyValue prompts for a new value on a property.
func (h *Handlers) HandleAddPropertyValue(name string) {
	h.promptText("Add Value", fmt.Sprintf("New value for %q", name), func(value string) {
		h.store.AddPropertyValue(name, value)
		h.guiManager.RefreshProperties()
		h.updateTitle()
	})
}

// HandleSuggestRegions proposes boxes on the displayed page.
func (h *Handlers) HandleSuggestRegions() {
	doc := h.snapshotDocument()
	if doc == nil {
		return
	}
	pageNum := h.guiManager.CurrentPage()
	page := doc.Page(pageNum)
	if page == nil {
		h.guiManager.ShowError(fmt.Errorf("no page loaded"))
		return
	}

	h.guiManager.UpdateStatus("Detecting regions...")
	go func() {
		boxes, err := h.suggester.Suggest(page)
		fyne.Do(func() {
			if err != nil {
				h.guiManager.ShowError(fmt.Errorf("region suggestion failed: %w", err))
				h.guiManager.UpdateStatus("Ready")
				return
			}
			if err := h.store.AppendBoxes(pageNum, boxes); err != nil {
				h.guiManager.ShowError(err)
				return
			}
			h.guiManager.RefreshBoxes()
			h.updateTitle()
			h.guiManager.UpdateStatus(fmt.Sprintf("Added %d suggested regions", len(boxes)))
		})
	}()
}

func (h *Handlers) promptText(title, label string, onConfirm func(string)) {
	entry := widget.NewEntry()
	items := []*widget.FormItem{widget.NewFormItem(label, entry)}
	dialog.ShowForm(title, "Add", "Cancel", items, func(confirmed bool) {
		value := strings.TrimSpace(entry.Text)
		if !confirmed || value == "" {
			return
		}
		onConfirm(value)
	}, h.guiManager.GetWindow())
}

// snapshotDocument deep-copies the open document so a background
// goroutine can read it while the UI thread keeps mutating the live
// one.
func (h *Handlers) snapshotDocument() *models.Document {
	doc := h.store.Snapshot()
	if doc == nil {
		h.guiManager.ShowError(fmt.Errorf("no PDF loaded"))
	}
	return doc
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

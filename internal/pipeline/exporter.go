package pipeline

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"pagemark/internal/logger"
	"pagemark/internal/models"
)

type Exporter struct {
	logger logger.Logger
}

func NewExporter(log logger.Logger) *Exporter {
	return &Exporter{logger: log}
}

// ExportBoxes writes the flat bounding-box export: all boxes across all
// pages in page order, as parallel bboxes/labels/types arrays.
func (e *Exporter) ExportBoxes(w io.Writer, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("no document to export")
	}

	export := BoxExport{
		BBoxes: make([][4]float64, 0, doc.BoxCount()),
		Labels: make([]string, 0, doc.BoxCount()),
		Types:  make([]string, 0, doc.BoxCount()),
	}
	for _, page := range doc.Pages {
		for _, box := range page.Boxes {
			export.BBoxes = append(export.BBoxes, box.Coords())
			export.Labels = append(export.Labels, box.Label)
			export.Types = append(export.Types, box.Type)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("encode box export: %w", err)
	}

	e.logger.Info("Exporter", "boxes exported", map[string]interface{}{
		"boxes": len(export.BBoxes),
	})
	return nil
}

// ExportPage writes one rendered page as PNG.
func (e *Exporter) ExportPage(w io.Writer, page *models.Page) error {
	if page == nil || page.Image == nil {
		return fmt.Errorf("no rendered page to export")
	}
	if err := png.Encode(w, page.Image); err != nil {
		return fmt.Errorf("encode page %d: %w", page.Number, err)
	}

	e.logger.Info("Exporter", "page exported", map[string]interface{}{
		"page":   page.Number,
		"width":  page.Width,
		"height": page.Height,
	})
	return nil
}

// ExportArchive writes every rendered page as a numbered PNG entry
// (01.png, 02.png, …) in a deflate ZIP archive.
func (e *Exporter) ExportArchive(w io.Writer, doc *models.Document) error {
	if doc == nil || len(doc.Pages) == 0 {
		return fmt.Errorf("no rendered pages to export")
	}

	zw := zip.NewWriter(w)
	for _, page := range doc.Pages {
		entry, err := zw.Create(fmt.Sprintf("%02d.png", page.Number))
		if err != nil {
			return fmt.Errorf("create archive entry for page %d: %w", page.Number, err)
		}
		if err := png.Encode(entry, page.Image); err != nil {
			return fmt.Errorf("encode page %d: %w", page.Number, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	e.logger.Info("Exporter", "archive exported", map[string]interface{}{
		"pages": len(doc.Pages),
	})
	return nil
}

// ArchiveName derives the default archive file name from the PDF path:
// the file stem plus ".images.zip".
func ArchiveName(pdfPath string) string {
	if pdfPath == "" {
		return "images.zip"
	}
	base := filepath.Base(pdfPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + ".images.zip"
}

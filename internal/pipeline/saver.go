package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"pagemark/internal/logger"
	"pagemark/internal/models"
)

type Saver struct {
	logger logger.Logger
	now    func() time.Time
}

func NewSaver(log logger.Logger) *Saver {
	return &Saver{logger: log, now: time.Now}
}

// Save writes the document's annotations in the save format.
func (s *Saver) Save(w io.Writer, doc *models.Document, properties map[string][]string) error {
	if doc == nil {
		return fmt.Errorf("no document to save")
	}

	file := AnnotationFile{
		Filename:   doc.Path,
		Date:       s.now().Format(time.RFC3339),
		Checksum:   doc.Checksum,
		DPI:        doc.DPI,
		Properties: properties,
	}
	if file.Properties == nil {
		file.Properties = map[string][]string{}
	}

	for _, page := range doc.Pages {
		record := PageRecord{
			Page:   page.Number,
			BBoxes: make([]BoxRecord, 0, len(page.Boxes)),
		}
		if page.Width > 0 && page.Height > 0 {
			record.Dimensions = &Dimensions{Width: page.Width, Height: page.Height}
		}
		for _, box := range page.Boxes {
			record.BBoxes = append(record.BBoxes, boxRecord(box))
		}
		file.Pages = append(file.Pages, record)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode annotations: %w", err)
	}

	s.logger.Info("Saver", "annotations saved", map[string]interface{}{
		"pages": len(file.Pages),
		"boxes": doc.BoxCount(),
	})
	return nil
}

// SaveToPath writes the save format to a file, creating or truncating
// it.
func (s *Saver) SaveToPath(path string, doc *models.Document, properties map[string][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	return s.Save(f, doc, properties)
}

func boxRecord(box *models.BoundingBox) BoxRecord {
	record := BoxRecord{
		Label: box.Label,
		Type:  box.Type,
		BBox: [4]float64{
			round2(box.X1), round2(box.Y1),
			round2(box.X2), round2(box.Y2),
		},
		Properties: make([]PropertyRecord, 0, len(box.Properties)),
	}
	for _, name := range sortedKeys(box.Properties) {
		record.Properties = append(record.Properties, PropertyRecord{
			Property: name,
			Value:    box.Properties[name],
		})
	}
	return record
}

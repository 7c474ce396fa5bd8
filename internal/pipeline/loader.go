package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"pagemark/internal/logger"
	"pagemark/internal/models"
)

type Loader struct {
	logger logger.Logger
}

func NewLoader(log logger.Logger) *Loader {
	return &Loader{logger: log}
}

// Load parses an annotation file. Files written before the property
// dictionary existed get theirs rebuilt from the per-box properties.
func (l *Loader) Load(r io.Reader) (*AnnotationFile, error) {
	var file AnnotationFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode annotations: %w", err)
	}

	if file.Properties == nil {
		file.Properties = rebuildProperties(file.Pages)
	}

	l.logger.Info("Loader", "annotations loaded", map[string]interface{}{
		"filename": file.Filename,
		"dpi":      file.DPI,
		"pages":    len(file.Pages),
	})
	return &file, nil
}

// LoadPath parses the annotation file at path.
func (l *Loader) LoadPath(path string) (*AnnotationFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return l.Load(f)
}

// Apply attaches the file's boxes to the document's pages. Records for
// pages the document does not have are skipped. Existing boxes on the
// document are replaced.
func (l *Loader) Apply(doc *models.Document, file *AnnotationFile) {
	for _, page := range doc.Pages {
		page.Boxes = nil
	}

	skipped := 0
	for _, record := range file.Pages {
		page := doc.Page(record.Page)
		if page == nil {
			skipped += len(record.BBoxes)
			continue
		}
		for _, rec := range record.BBoxes {
			box := models.NewBoundingBox(rec.BBox[0], rec.BBox[1], rec.BBox[2], rec.BBox[3], rec.Label)
			box.Type = rec.Type
			for _, prop := range rec.Properties {
				if prop.Property == "" {
					continue
				}
				box.Properties[prop.Property] = prop.Value
			}
			page.Boxes = append(page.Boxes, box)
		}
	}

	if skipped > 0 {
		l.logger.Warning("Loader", "boxes referenced missing pages", map[string]interface{}{
			"skipped": skipped,
		})
	}
}

// Mismatch describes differences between an annotation file and the
// currently open document. The GUI turns these into user prompts.
type Mismatch struct {
	FilenameDiffers bool
	ChecksumDiffers bool
	DPIDiffers      bool
}

func (m Mismatch) Any() bool {
	return m.FilenameDiffers || m.ChecksumDiffers || m.DPIDiffers
}

// CompareWith reports how the file relates to an open document.
func (l *Loader) CompareWith(doc *models.Document, file *AnnotationFile) Mismatch {
	if doc == nil {
		return Mismatch{}
	}
	return Mismatch{
		FilenameDiffers: file.Filename != "" && file.Filename != doc.Path,
		ChecksumDiffers: file.Checksum != "" && file.Checksum != doc.Checksum,
		DPIDiffers:      file.DPI != 0 && file.DPI != doc.DPI,
	}
}

func rebuildProperties(pages []PageRecord) map[string][]string {
	props := make(map[string][]string)
	for _, page := range pages {
		for _, box := range page.BBoxes {
			for _, prop := range box.Properties {
				name := prop.Property
				value := strings.TrimSpace(prop.Value)
				if name == "" {
					continue
				}
				if value != "" && !contains(props[name], value) {
					props[name] = append(props[name], value)
				} else if _, ok := props[name]; !ok {
					props[name] = nil
				}
			}
		}
	}
	return props
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

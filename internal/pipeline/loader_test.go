package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagemark/internal/logger"
	"pagemark/internal/models"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	doc := testDocument()
	props := map[string][]string{"language": {"lv", "en"}}
	require.NoError(t, fixedSaver().Save(&buf, doc, props))

	loader := NewLoader(&logger.Nop{})
	file, err := loader.Load(&buf)
	require.NoError(t, err)

	fresh := &models.Document{
		Path: doc.Path,
		DPI:  doc.DPI,
		Pages: []*models.Page{
			{Number: 1, Width: 2480, Height: 3508},
			{Number: 2, Width: 2480, Height: 3508},
		},
	}
	loader.Apply(fresh, file)

	require.Len(t, fresh.Pages[0].Boxes, 2)
	box := fresh.Pages[0].Boxes[0]
	assert.Equal(t, "title", box.Label)
	assert.Equal(t, "heading", box.Type)
	assert.Equal(t, [4]float64{100.12, 50.46, 300.79, 120}, box.Coords())
	assert.Equal(t, "lv", box.Properties["language"])
	assert.Equal(t, "latin", box.Properties["script"])
	assert.Empty(t, fresh.Pages[1].Boxes)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	loader := NewLoader(&logger.Nop{})
	_, err := loader.Load(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestLoadPathMissingFile(t *testing.T) {
	loader := NewLoader(&logger.Nop{})
	_, err := loader.LoadPath("/nonexistent/annotations.json")
	assert.Error(t, err)
}

func TestLoadRebuildsPropertiesFromBoxes(t *testing.T) {
	// Older files carry no property dictionary.
	input := `{
		"filename": "a.pdf",
		"dpi": 300,
		"pages": [
			{"page": 1, "bboxes": [
				{"label": "title", "bbox": [1, 2, 30, 40], "properties": [
					{"property": "language", "value": "lv"},
					{"property": "quality", "value": ""}
				]},
				{"label": "body", "bbox": [1, 50, 30, 90], "properties": [
					{"property": "language", "value": "lv"}
				]}
			]}
		]
	}`

	loader := NewLoader(&logger.Nop{})
	file, err := loader.Load(strings.NewReader(input))
	require.NoError(t, err)

	require.Contains(t, file.Properties, "language")
	assert.Equal(t, []string{"lv"}, file.Properties["language"])

	// Empty values register the property name without a value.
	require.Contains(t, file.Properties, "quality")
	assert.Empty(t, file.Properties["quality"])
}

func TestApplyReplacesExistingBoxes(t *testing.T) {
	doc := &models.Document{
		DPI: 300,
		Pages: []*models.Page{
			{Number: 1, Boxes: []*models.BoundingBox{
				models.NewBoundingBox(0, 0, 10, 10, "stale"),
			}},
		},
	}
	file := &AnnotationFile{
		Pages: []PageRecord{
			{Page: 1, BBoxes: []BoxRecord{{Label: "fresh", BBox: [4]float64{5, 5, 50, 50}}}},
		},
	}

	NewLoader(&logger.Nop{}).Apply(doc, file)

	require.Len(t, doc.Pages[0].Boxes, 1)
	assert.Equal(t, "fresh", doc.Pages[0].Boxes[0].Label)
}

func TestApplySkipsMissingPages(t *testing.T) {
	doc := &models.Document{
		DPI:   300,
		Pages: []*models.Page{{Number: 1}},
	}
	file := &AnnotationFile{
		Pages: []PageRecord{
			{Page: 1, BBoxes: []BoxRecord{{Label: "keep", BBox: [4]float64{0, 0, 10, 10}}}},
			{Page: 7, BBoxes: []BoxRecord{{Label: "drop", BBox: [4]float64{0, 0, 10, 10}}}},
		},
	}

	NewLoader(&logger.Nop{}).Apply(doc, file)

	assert.Equal(t, 1, doc.BoxCount())
	assert.Equal(t, "keep", doc.Pages[0].Boxes[0].Label)
}

func TestCompareWith(t *testing.T) {
	doc := &models.Document{
		Path:     "/scans/manuscript.pdf",
		Checksum: "abc",
		DPI:      300,
	}
	loader := NewLoader(&logger.Nop{})

	tests := []struct {
		name string
		file AnnotationFile
		want Mismatch
	}{
		{
			"identical",
			AnnotationFile{Filename: doc.Path, Checksum: "abc", DPI: 300},
			Mismatch{},
		},
		{
			"different filename",
			AnnotationFile{Filename: "/other.pdf", Checksum: "abc", DPI: 300},
			Mismatch{FilenameDiffers: true},
		},
		{
			"different checksum",
			AnnotationFile{Filename: doc.Path, Checksum: "xyz", DPI: 300},
			Mismatch{ChecksumDiffers: true},
		},
		{
			"different dpi",
			AnnotationFile{Filename: doc.Path, Checksum: "abc", DPI: 150},
			Mismatch{DPIDiffers: true},
		},
		{
			"blank fields never mismatch",
			AnnotationFile{},
			Mismatch{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := loader.CompareWith(doc, &tt.file)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != Mismatch{}, got.Any())
		})
	}
}

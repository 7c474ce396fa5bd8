package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagemark/internal/logger"
	"pagemark/internal/models"
)

func testDocument() *models.Document {
	title := models.NewBoundingBox(100.123, 50.456, 300.789, 120, "title")
	title.Type = "heading"
	title.Properties["language"] = "lv"
	title.Properties["script"] = "latin"

	body := models.NewBoundingBox(80, 140, 520, 700, "body")

	return &models.Document{
		Path:     "/scans/manuscript.pdf",
		Checksum: "d41d8cd98f00b204e9800998ecf8427e",
		DPI:      300,
		Pages: []*models.Page{
			{Number: 1, Width: 2480, Height: 3508, Boxes: []*models.BoundingBox{title, body}},
			{Number: 2, Width: 2480, Height: 3508},
		},
	}
}

func fixedSaver() *Saver {
	s := NewSaver(&logger.Nop{})
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return s
}

func TestSaveFormat(t *testing.T) {
	var buf bytes.Buffer
	doc := testDocument()
	props := map[string][]string{"language": {"lv", "en"}}

	require.NoError(t, fixedSaver().Save(&buf, doc, props))

	var file AnnotationFile
	require.NoError(t, json.Unmarshal(buf.Bytes(), &file))

	assert.Equal(t, "/scans/manuscript.pdf", file.Filename)
	assert.Equal(t, "2026-03-14T09:26:53Z", file.Date)
	assert.Equal(t, doc.Checksum, file.Checksum)
	assert.Equal(t, 300, file.DPI)
	assert.Equal(t, props, file.Properties)

	require.Len(t, file.Pages, 2)
	assert.Equal(t, 1, file.Pages[0].Page)
	require.NotNil(t, file.Pages[0].Dimensions)
	assert.Equal(t, 2480, file.Pages[0].Dimensions.Width)
	assert.Equal(t, 3508, file.Pages[0].Dimensions.Height)
	assert.Empty(t, file.Pages[1].BBoxes)

	require.Len(t, file.Pages[0].BBoxes, 2)
	rec := file.Pages[0].BBoxes[0]
	assert.Equal(t, "title", rec.Label)
	assert.Equal(t, "heading", rec.Type)
	assert.Equal(t, [4]float64{100.12, 50.46, 300.79, 120}, rec.BBox)

	// Per-box properties come out sorted by name.
	require.Len(t, rec.Properties, 2)
	assert.Equal(t, PropertyRecord{Property: "language", Value: "lv"}, rec.Properties[0])
	assert.Equal(t, PropertyRecord{Property: "script", Value: "latin"}, rec.Properties[1])
}

func TestSaveNilDocument(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, fixedSaver().Save(&buf, nil, nil))
}

func TestSaveNilPropertiesBecomesEmptyObject(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedSaver().Save(&buf, testDocument(), nil))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.JSONEq(t, "{}", string(raw["properties"]))
}

func TestSaveToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.json")
	require.NoError(t, fixedSaver().SaveToPath(path, testDocument(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var file AnnotationFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Len(t, file.Pages, 2)
}

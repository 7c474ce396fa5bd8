package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagemark/internal/logger"
	"pagemark/internal/models"
)

func newTestStore(t *testing.T, pages int) *Store {
	t.Helper()

	store := NewStore(&logger.Nop{}, nil)
	doc := &models.Document{Path: "test.pdf", DPI: 300}
	for i := 1; i <= pages; i++ {
		doc.Pages = append(doc.Pages, &models.Page{Number: i, Width: 1000, Height: 1400})
	}
	store.SetDocument(doc)
	return store
}

func TestCreateBox(t *testing.T) {
	tests := []struct {
		name           string
		page           int
		x1, y1, x2, y2 float64
		wantErr        bool
	}{
		{"valid box", 1, 10, 10, 100, 50, false},
		{"swapped corners", 1, 100, 50, 10, 10, false},
		{"too narrow", 1, 10, 10, 12, 100, true},
		{"too short", 1, 10, 10, 100, 13, true},
		{"click without drag", 1, 10, 10, 10, 10, true},
		{"missing page", 9, 10, 10, 100, 50, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, 2)
			box, err := store.CreateBox(tt.page, tt.x1, tt.y1, tt.x2, tt.y2)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, store.Dirty())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultLabel, box.Label)
			assert.Equal(t, [4]float64{10, 10, 100, 50}, box.Coords())
			assert.True(t, store.Dirty())
			assert.Equal(t, 1, store.Document().BoxCount())
		})
	}
}

func TestResizeBoxClampsToMinimum(t *testing.T) {
	store := newTestStore(t, 1)
	box, err := store.CreateBox(1, 100, 100, 200, 200)
	require.NoError(t, err)

	store.ResizeBox(box, 300, 250)
	assert.Equal(t, [4]float64{100, 100, 300, 250}, box.Coords())

	// Dragging the anchor past the top-left corner must not invert the
	// box.
	store.ResizeBox(box, 50, 90)
	assert.Equal(t, 100+MinDragThreshold, box.X2)
	assert.Equal(t, 100+MinDragThreshold, box.Y2)
}

func TestMoveBox(t *testing.T) {
	store := newTestStore(t, 1)
	box, err := store.CreateBox(1, 100, 100, 200, 200)
	require.NoError(t, err)
	store.MarkSaved()

	store.MoveBox(box, -20, 35)
	assert.Equal(t, [4]float64{80, 135, 180, 235}, box.Coords())
	assert.True(t, store.Dirty())
}

func TestDeleteBox(t *testing.T) {
	store := newTestStore(t, 1)
	first, err := store.CreateBox(1, 10, 10, 100, 100)
	require.NoError(t, err)
	_, err = store.CreateBox(1, 200, 200, 300, 300)
	require.NoError(t, err)

	store.Select(1, first)

	require.NoError(t, store.DeleteBox(1, 0))
	assert.Equal(t, 1, store.Document().BoxCount())

	// Deleting the selected box clears the selection.
	selected, _ := store.Selected()
	assert.Nil(t, selected)

	assert.Error(t, store.DeleteBox(1, 5))
	assert.Error(t, store.DeleteBox(3, 0))
}

func TestHitTest(t *testing.T) {
	store := newTestStore(t, 1)
	bottom, err := store.CreateBox(1, 10, 10, 200, 200)
	require.NoError(t, err)
	top, err := store.CreateBox(1, 50, 50, 150, 150)
	require.NoError(t, err)

	// Overlapping region resolves to the box drawn last.
	box, onAnchor := store.HitTest(1, 100, 100, 1)
	assert.Same(t, top, box)
	assert.False(t, onAnchor)

	// Region covered only by the earlier box.
	box, _ = store.HitTest(1, 20, 20, 1)
	assert.Same(t, bottom, box)

	// Empty area.
	box, _ = store.HitTest(1, 500, 500, 1)
	assert.Nil(t, box)

	// The resize anchor only responds on the selected box.
	box, onAnchor = store.HitTest(1, 148, 148, 1)
	assert.Same(t, top, box)
	assert.False(t, onAnchor)

	store.Select(1, top)
	box, onAnchor = store.HitTest(1, 148, 148, 1)
	assert.Same(t, top, box)
	assert.True(t, onAnchor)
}

func TestHitTestAtZoom(t *testing.T) {
	store := newTestStore(t, 1)
	box, err := store.CreateBox(1, 100, 100, 200, 200)
	require.NoError(t, err)

	// View coordinates double at 2x zoom.
	hit, _ := store.HitTest(1, 300, 300, 2)
	assert.Same(t, box, hit)

	hit, _ = store.HitTest(1, 150, 150, 0.5)
	assert.Nil(t, hit)
}

func TestSelect(t *testing.T) {
	store := newTestStore(t, 2)
	a, err := store.CreateBox(1, 10, 10, 100, 100)
	require.NoError(t, err)
	b, err := store.CreateBox(2, 10, 10, 100, 100)
	require.NoError(t, err)

	store.Select(1, a)
	assert.True(t, a.Selected)

	store.Select(2, b)
	assert.False(t, a.Selected)
	assert.True(t, b.Selected)

	selected, page := store.Selected()
	assert.Same(t, b, selected)
	assert.Equal(t, 2, page)

	store.Select(0, nil)
	assert.False(t, b.Selected)
	selected, _ = store.Selected()
	assert.Nil(t, selected)
}

func TestSetDPI(t *testing.T) {
	store := newTestStore(t, 1)
	box, err := store.CreateBox(1, 100, 100, 200, 300)
	require.NoError(t, err)

	factor, err := store.SetDPI(150)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, factor, 1e-9)
	assert.Equal(t, [4]float64{50, 50, 100, 150}, box.Coords())
	assert.Equal(t, 150, store.Document().DPI)

	// Same DPI is a no-op.
	factor, err = store.SetDPI(150)
	require.NoError(t, err)
	assert.Equal(t, 1.0, factor)
	assert.Equal(t, [4]float64{50, 50, 100, 150}, box.Coords())

	_, err = store.SetDPI(0)
	assert.Error(t, err)
	_, err = store.SetDPI(-300)
	assert.Error(t, err)
}

func TestSetDPIWithoutDocument(t *testing.T) {
	store := NewStore(&logger.Nop{}, nil)
	_, err := store.SetDPI(150)
	assert.Error(t, err)
}

func TestLabelsAndTypes(t *testing.T) {
	store := newTestStore(t, 1)
	a, err := store.CreateBox(1, 10, 10, 100, 100)
	require.NoError(t, err)
	b, err := store.CreateBox(1, 200, 200, 300, 300)
	require.NoError(t, err)

	store.UpdateBox(a, "title", "heading", nil)
	store.UpdateBox(b, "body", "", nil)

	assert.Equal(t, []string{"body", "title"}, store.Labels())
	assert.Equal(t, []string{"heading"}, store.Types())
}

func TestColorForCyclesPalette(t *testing.T) {
	store := newTestStore(t, 1)

	red := store.ColorFor("title")
	blue := store.ColorFor("body")
	assert.NotEqual(t, red.Name, blue.Name)

	// Repeated lookups are stable.
	assert.Same(t, red, store.ColorFor("title"))
	assert.Same(t, blue, store.ColorFor("body"))
}

func TestProperties(t *testing.T) {
	store := newTestStore(t, 1)

	require.NoError(t, store.AddProperty("language"))
	assert.Error(t, store.AddProperty("language"))

	store.AddPropertyValue("language", "lv")
	store.AddPropertyValue("language", "en")
	store.AddPropertyValue("language", "lv") // duplicate ignored
	assert.Equal(t, []string{"lv", "en"}, store.PropertyValues("language"))

	store.RemovePropertyValue("language", "lv")
	assert.Equal(t, []string{"en"}, store.PropertyValues("language"))
	store.RemovePropertyValue("language", "missing")

	store.AddPropertyValue("script", "latin")
	assert.Equal(t, []string{"language", "script"}, store.PropertyNames())

	// Properties returns a copy.
	props := store.Properties()
	props["language"] = append(props["language"], "de")
	assert.Equal(t, []string{"en"}, store.PropertyValues("language"))
}

func TestUpdateBox(t *testing.T) {
	store := newTestStore(t, 1)
	box, err := store.CreateBox(1, 10, 10, 100, 100)
	require.NoError(t, err)
	store.MarkSaved()

	store.UpdateBox(box, "title", "heading", map[string]string{
		"language": "lv",
		"quality":  "",
	})

	assert.Equal(t, "title", box.Label)
	assert.Equal(t, "heading", box.Type)
	assert.Equal(t, "lv", box.Properties["language"])
	_, hasQuality := box.Properties["quality"]
	assert.False(t, hasQuality)

	// New values join the document's known-value lists.
	assert.Equal(t, []string{"lv"}, store.PropertyValues("language"))
	assert.True(t, store.Dirty())
}

func TestDirtyTracking(t *testing.T) {
	store := newTestStore(t, 1)
	assert.False(t, store.Dirty())

	_, err := store.CreateBox(1, 10, 10, 100, 100)
	require.NoError(t, err)
	assert.True(t, store.Dirty())

	store.MarkSaved()
	assert.False(t, store.Dirty())

	store.MarkDirty()
	assert.True(t, store.Dirty())

	// A new document starts clean.
	store.SetDocument(&models.Document{DPI: 300})
	assert.False(t, store.Dirty())
}

func TestSnapshotIsIsolatedFromLaterEdits(t *testing.T) {
	store := newTestStore(t, 1)
	box, err := store.CreateBox(1, 10, 10, 100, 100)
	require.NoError(t, err)
	store.UpdateBox(box, "title", "heading", map[string]string{"language": "lv"})

	snap := store.Snapshot()
	require.NotNil(t, snap)
	require.Len(t, snap.Pages[0].Boxes, 1)
	got := snap.Pages[0].Boxes[0]
	assert.Equal(t, [4]float64{10, 10, 100, 100}, got.Coords())

	store.MoveBox(box, 50, 50)
	store.ResizeBox(box, 400, 400)
	store.UpdateBox(box, "body", "", map[string]string{"language": "en"})

	assert.Equal(t, [4]float64{10, 10, 100, 100}, got.Coords())
	assert.Equal(t, "title", got.Label)
	assert.Equal(t, "heading", got.Type)
	assert.Equal(t, "lv", got.Properties["language"])
}

func TestSnapshotWithoutDocument(t *testing.T) {
	store := NewStore(&logger.Nop{}, nil)
	assert.Nil(t, store.Snapshot())
}

func TestSnapshotConcurrentWithMutation(t *testing.T) {
	store := newTestStore(t, 1)
	box, err := store.CreateBox(1, 10, 10, 100, 100)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			store.MoveBox(box, 1, 1)
			store.UpdateBox(box, "title", "heading", map[string]string{"language": "lv"})
		}
	}()

	for i := 0; i < 500; i++ {
		snap := store.Snapshot()
		require.Len(t, snap.Pages[0].Boxes, 1)
		coords := snap.Pages[0].Boxes[0].Coords()
		assert.Equal(t, 90.0, coords[2]-coords[0])
	}
	<-done
}

func TestAppendBoxes(t *testing.T) {
	store := newTestStore(t, 1)
	store.MarkSaved()

	boxes := []*models.BoundingBox{
		models.NewBoundingBox(10, 10, 50, 50, DefaultLabel),
		models.NewBoundingBox(60, 60, 120, 120, DefaultLabel),
	}
	require.NoError(t, store.AppendBoxes(1, boxes))
	assert.Equal(t, 2, store.Document().BoxCount())
	assert.True(t, store.Dirty())

	assert.Error(t, store.AppendBoxes(7, boxes))

	store.MarkSaved()
	require.NoError(t, store.AppendBoxes(1, nil))
	assert.False(t, store.Dirty())
}

// Package pipeline persists annotation documents as JSON and exports
// rendered pages as PNG, zipped PNG, and flat bounding-box JSON.
package pipeline

import "math"

// AnnotationFile is the on-disk save format. Box coordinates are pixel
// positions at the recorded DPI.
type AnnotationFile struct {
	Filename   string              `json:"filename"`
	Date       string              `json:"date"`
	Checksum   string              `json:"checksum"`
	DPI        int                 `json:"dpi"`
	Properties map[string][]string `json:"properties"`
	Pages      []PageRecord        `json:"pages"`
}

type PageRecord struct {
	Page       int         `json:"page"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	BBoxes     []BoxRecord `json:"bboxes"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type BoxRecord struct {
	Label      string           `json:"label"`
	Type       string           `json:"type,omitempty"`
	BBox       [4]float64       `json:"bbox"`
	Properties []PropertyRecord `json:"properties"`
}

type PropertyRecord struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// BoxExport is the flat export format: one entry per box across all
// pages in page order. BBoxes and Labels always have equal length.
type BoxExport struct {
	BBoxes [][4]float64 `json:"bboxes"`
	Labels []string     `json:"labels"`
	Types  []string     `json:"types"`
}

// round2 keeps saved coordinates at two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

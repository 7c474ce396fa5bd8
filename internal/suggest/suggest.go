// Package suggest proposes candidate bounding boxes on rendered pages
// by segmenting ink from background.
package suggest

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
	xdraw "golang.org/x/image/draw"

	"pagemark/internal/annotation"
	"pagemark/internal/config"
	"pagemark/internal/logger"
	"pagemark/internal/models"
)

type Suggester struct {
	cfg    config.SuggestConfig
	logger logger.Logger
}

func NewSuggester(cfg config.SuggestConfig, log logger.Logger) *Suggester {
	return &Suggester{cfg: cfg, logger: log}
}

// Suggest segments the page image and returns one proposed box per
// detected region, in page pixel coordinates, ordered top to bottom.
// Pages render dark ink on light background, so the threshold is
// inverted before contour extraction.
func (s *Suggester) Suggest(page *models.Page) ([]*models.BoundingBox, error) {
	if page == nil || page.Image == nil {
		return nil, fmt.Errorf("no rendered page")
	}

	mat, err := matFromImage(page.Image)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBAToGray)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinaryInv+gocv.ThresholdOtsu)

	kernelSize := s.cfg.CloseKernel
	if kernelSize < 3 {
		kernelSize = 3
	}
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(binary, &closed, gocv.MorphClose, kernel)

	contours := gocv.FindContours(closed, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	pageArea := float64(page.Width * page.Height)
	minArea := s.cfg.MinArea * pageArea
	maxArea := s.cfg.MaxArea * pageArea

	var boxes []*models.BoundingBox
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		area := float64(rect.Dx() * rect.Dy())
		if area < minArea || area > maxArea {
			continue
		}
		boxes = append(boxes, models.NewBoundingBox(
			float64(rect.Min.X), float64(rect.Min.Y),
			float64(rect.Max.X), float64(rect.Max.Y),
			annotation.DefaultLabel,
		))
	}

	sort.Slice(boxes, func(i, j int) bool {
		if boxes[i].Y1 != boxes[j].Y1 {
			return boxes[i].Y1 < boxes[j].Y1
		}
		return boxes[i].X1 < boxes[j].X1
	})

	s.logger.Info("Suggester", "regions proposed", map[string]interface{}{
		"page":     page.Number,
		"contours": contours.Size(),
		"kept":     len(boxes),
	})
	return boxes, nil
}

// matFromImage converts any image into an RGBA Mat.
func matFromImage(img image.Image) (gocv.Mat, error) {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		bounds := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	}
	return gocv.ImageToMatRGBA(rgba)
}

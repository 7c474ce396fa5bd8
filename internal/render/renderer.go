// Package render rasterises PDF pages to images at a configurable DPI.
package render

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/converter"
	"seehuhn.de/go/pdf/pagetree"

	"pagemark/internal/logger"
	"pagemark/internal/models"
)

// ProgressFunc reports rendering progress after each finished page.
type ProgressFunc func(page, total int)

type Renderer struct {
	logger logger.Logger
}

func NewRenderer(log logger.Logger) *Renderer {
	return &Renderer{logger: log}
}

// OpenDocument opens a PDF, renders every page at the given DPI, and
// returns a Document carrying the file's MD5 checksum.
func (r *Renderer) OpenDocument(path string, dpi int, progress ProgressFunc) (*models.Document, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid DPI %d", dpi)
	}

	checksum, err := Checksum(path)
	if err != nil {
		return nil, fmt.Errorf("checksum %s: %w", path, err)
	}

	start := time.Now()
	pages, err := r.RenderPages(path, dpi, progress)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Renderer", "document rendered", map[string]interface{}{
		"path":     path,
		"dpi":      dpi,
		"pages":    len(pages),
		"duration": time.Since(start).String(),
	})

	return &models.Document{
		Path:     path,
		Checksum: checksum,
		DPI:      dpi,
		Pages:    pages,
	}, nil
}

// RenderPages rasterises all pages of the PDF at path. Used both for
// the initial open and for re-rendering after a DPI change.
func (r *Renderer) RenderPages(path string, dpi int, progress ProgressFunc) ([]*models.Page, error) {
	doc, err := pdf.Open(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer doc.Close()

	total, err := pagetree.NumPages(doc)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	if total == 0 {
		return nil, fmt.Errorf("%s has no pages", path)
	}

	conv := converter.NewConverter(doc)
	pages := make([]*models.Page, 0, total)
	for num := 1; num <= total; num++ {
		img, err := conv.RenderPageToImage(num, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", num, err)
		}

		bounds := img.Bounds()
		pages = append(pages, &models.Page{
			Number: num,
			Image:  img,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})

		r.logger.Debug("Renderer", "page rendered", map[string]interface{}{
			"page":   num,
			"width":  bounds.Dx(),
			"height": bounds.Dy(),
		})
		if progress != nil {
			progress(num, total)
		}
	}
	return pages, nil
}

// Checksum returns the hex MD5 digest of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

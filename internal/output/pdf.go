package output

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"slide-extractor/log"
)

// PDFOptions controls document rendering.
type PDFOptions struct {
	// DPI maps pixels to page size; each page is exactly one slide.
	DPI    int
	Rotate int
	Title  string
}

// WritePDF renders one page per slide, sized to the slide at opts.DPI.
func WritePDF(path string, images []image.Image, opts PDFOptions) error {
	pages, err := prepare(images, opts.Rotate)
	if err != nil {
		return err
	}
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return encodeFailed(err)
	}

	first := pageSize(pages[0].Bounds(), dpi)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           first,
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("slide-extractor", true)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}

	imageOpts := fpdf.ImageOptions{ImageType: "PNG"}
	for i, img := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return encodeFailed(fmt.Errorf("encode slide %d: %w", i+1, err))
		}
		size := pageSize(img.Bounds(), dpi)
		name := fmt.Sprintf("slide-%d", i+1)

		pdf.AddPageFormat("P", size)
		pdf.RegisterImageOptionsReader(name, imageOpts, &buf)
		pdf.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, imageOpts, 0, "")
		if pdf.Err() {
			return encodeFailed(pdf.Error())
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		log.GetLogger().Error("write pdf failed", zap.String("path", path), zap.Error(err))
		return encodeFailed(err)
	}
	log.GetLogger().Info("pdf written", zap.String("path", path), zap.Int("pages", len(pages)), zap.Int("dpi", dpi))
	return nil
}

func pageSize(b image.Rectangle, dpi int) fpdf.SizeType {
	scale := 72.0 / float64(dpi)
	return fpdf.SizeType{Wd: float64(b.Dx()) * scale, Ht: float64(b.Dy()) * scale}
}

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultDPI is the raster resolution for scanned PDF pages.
const DefaultDPI = 300

// PageRasterizer renders a single PDF page to an encoded image.
type PageRasterizer interface {
	RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error)
}

// Pdftoppm renders pages with poppler's pdftoppm.
type Pdftoppm struct {
	bin    string
	dpi    int
	runner Runner
	logger *slog.Logger
}

// NewPdftoppm returns a rasterizer. Empty bin means "pdftoppm"; dpi <= 0 means 300.
func NewPdftoppm(bin string, dpi int, runner Runner, logger *slog.Logger) *Pdftoppm {
	if bin == "" {
		bin = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner(logger)
	}
	return &Pdftoppm{bin: bin, dpi: dpi, runner: runner, logger: logger}
}

// RenderPage renders 1-based page of pdfPath to PNG bytes.
func (p *Pdftoppm) RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "ca-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			p.logger.Warn("ocr.raster.cleanup_failed", "dir", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)
	// pdftoppm -r 300 -png -f n -l n -singlefile <in.pdf> <tmp/page>
	_, errb, err := p.runner.Run(ctx, p.bin, "-r", strconv.Itoa(p.dpi), "-png", "-f", n, "-l", n, "-singlefile", pdfPath, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, clip(string(errb), 512))
	}

	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d: %w", page, err)
	}
	return img, nil
}

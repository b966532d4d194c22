package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/ocr"
)

// MinNativeTextLength is the trimmed length below which a page is treated as a scan.
const MinNativeTextLength = 50

// PageTextSource yields native text per PDF page.
type PageTextSource interface {
	NumPages() int
	PageText(page int) string
}

// PDFExtractor reads native page text and OCRs pages that carry too little of it.
type PDFExtractor struct {
	rec    ocr.Recognizer
	raster ocr.PageRasterizer
	open   func(data []byte) (PageTextSource, error)
	logger *slog.Logger
}

func NewPDFExtractor(rec ocr.Recognizer, raster ocr.PageRasterizer, logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{rec: rec, raster: raster, open: openPDF, logger: logger}
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	doc, err := e.open(data)
	if err != nil {
		return Result{Method: "pdf-text"}, err
	}

	total := doc.NumPages()
	e.logger.Debug("extract.pdf.opened", "pages", total)

	// the rasterizer reads from disk; the file is written on the first scanned page
	var pdfPath string
	defer func() {
		if pdfPath != "" {
			_ = os.RemoveAll(filepath.Dir(pdfPath))
		}
	}()

	pages := make([]string, 0, total)
	ocrPages := 0
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return Result{Pages: total, OCRPages: ocrPages}, err
		}

		text := doc.PageText(n)
		if trimmed := strings.TrimSpace(text); len([]rune(trimmed)) < MinNativeTextLength {
			e.logger.Debug("extract.pdf.ocr_fallback", "page", n, "native_chars", len([]rune(trimmed)))
			if pdfPath == "" {
				if pdfPath, err = writeTemp(data); err != nil {
					return Result{Pages: total, OCRPages: ocrPages}, err
				}
			}
			img, err := e.raster.RenderPage(ctx, pdfPath, n)
			if err != nil {
				return Result{Pages: total, OCRPages: ocrPages}, fmt.Errorf("render page %d: %w", n, err)
			}
			if text, err = e.rec.Recognize(ctx, img); err != nil {
				return Result{Pages: total, OCRPages: ocrPages}, fmt.Errorf("ocr page %d: %w", n, err)
			}
			ocrPages++
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", n, text))
	}

	if ocrPages > 0 {
		e.logger.Info("extract.pdf.ocr_used", "ocr_pages", ocrPages, "pages", total)
	}

	method := "pdf-text"
	switch {
	case ocrPages == total && total > 0:
		method = "pdf-ocr"
	case ocrPages > 0:
		method = "pdf-mixed"
	}
	return Result{
		Text:     strings.Join(pages, "\n\n"),
		Method:   method,
		Pages:    total,
		OCRPages: ocrPages,
	}, nil
}

func writeTemp(data []byte) (string, error) {
	dir, err := os.MkdirTemp("", "ca-pdf-*")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("write temp pdf: %w", err)
	}
	return path, nil
}

type ledongthucDoc struct {
	r *pdf.Reader
}

func openPDF(data []byte) (doc PageTextSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open pdf: panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return ledongthucDoc{r: r}, nil
}

func (d ledongthucDoc) NumPages() int { return d.r.NumPage() }

// PageText returns "" for pages the library cannot decode, which routes them to OCR.
func (d ledongthucDoc) PageText(n int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()
	p := d.r.Page(n)
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

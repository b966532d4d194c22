// Package extract turns uploaded documents into plain text, one extractor per
// supported format behind a single extension-based dispatcher.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/counterparty-analyzer/constants"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/ocr"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/textutil"
)

// Extractor converts raw file bytes of one format into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Result, error)
}

// Result is the outcome of extracting one file.
type Result struct {
	Text       string
	Format     string // constants.PDF | IMAGE | SPREADSHEET | DOCUMENT
	Method     string // "pdf-text" | "pdf-mixed" | "pdf-ocr" | "image-ocr" | "xlsx" | "docx"
	Pages      int
	OCRPages   int
	Duration   time.Duration
	RawLength  int
	CleanedLen int
}

// Dispatcher routes files to the extractor for their extension and cleans the output.
type Dispatcher struct {
	extractors map[string]Extractor
	logger     *slog.Logger
}

// NewDispatcher wires the format extractors. The OCR capability is required:
// images and scanned PDF pages cannot be handled without it.
func NewDispatcher(rec ocr.Recognizer, raster ocr.PageRasterizer, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		return nil, common.NewAppError(common.KindConfiguration, "ocr recognizer is required", common.ErrOCRUnavailable)
	}
	if raster == nil {
		return nil, common.NewAppError(common.KindConfiguration, "pdf rasterizer is required", common.ErrInvalidInput)
	}
	return &Dispatcher{
		extractors: map[string]Extractor{
			constants.PDF:         NewPDFExtractor(rec, raster, logger),
			constants.IMAGE:       NewImageExtractor(rec, logger),
			constants.SPREADSHEET: NewSpreadsheetExtractor(logger),
			constants.DOCUMENT:    NewDocxExtractor(logger),
		},
		logger: logger,
	}, nil
}

// Extract dispatches on the extension after the last dot of filename.
func (d *Dispatcher) Extract(ctx context.Context, filename string, data []byte) (Result, error) {
	start := time.Now()
	ext := constants.ExtOf(filename)
	format := constants.MapExtToFormat(ext)
	if format == "" {
		d.logger.Warn("extract.unsupported", "filename", filename, "ext", ext)
		ae := common.NewAppError(common.KindUnsupportedFormat, fmt.Sprintf("unsupported file extension: %q", "."+ext), common.ErrUnsupportedFormat)
		ae.Filename = filename
		return Result{}, ae
	}

	d.logger.Info("extract.start", "filename", filename, "format", format, "bytes", len(data))

	res, err := d.extractors[format].Extract(ctx, data)
	res.Format = format
	res.Duration = time.Since(start)
	if err != nil {
		d.logger.Error("extract.failed", "filename", filename, "format", format, "error", err,
			"elapsed_ms", res.Duration.Milliseconds())
		return res, err
	}

	res.RawLength = len(res.Text)
	res.Text = textutil.Clean(res.Text)
	res.CleanedLen = len(res.Text)

	d.logger.Info("extract.ok",
		"filename", filename,
		"format", format,
		"method", res.Method,
		"pages", res.Pages,
		"ocr_pages", res.OCRPages,
		"chars", res.CleanedLen,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

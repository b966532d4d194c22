package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/ocr"
)

// ImageExtractor hands images to the OCR capability.
type ImageExtractor struct {
	rec    ocr.Recognizer
	logger *slog.Logger
}

func NewImageExtractor(rec ocr.Recognizer, logger *slog.Logger) *ImageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageExtractor{rec: rec, logger: logger}
}

func (e *ImageExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	text, err := e.rec.Recognize(ctx, data)
	if err != nil {
		return Result{Method: "image-ocr"}, err
	}
	return Result{Text: text, Method: "image-ocr", Pages: 1, OCRPages: 1}, nil
}

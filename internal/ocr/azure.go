package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
)

// Azure recognizes printed text through Azure Computer Vision.
type Azure struct {
	client   computervision.BaseClient
	language computervision.OcrLanguages
	maxWidth int
	logger   *slog.Logger
}

// NewAzure builds the Azure engine. Endpoint and key are required.
func NewAzure(cfg Config, logger *slog.Logger) (*Azure, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AzureEndpoint == "" || cfg.AzureKey == "" {
		return nil, fmt.Errorf("azure ocr requires endpoint and key")
	}
	client := computervision.New(cfg.AzureEndpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.AzureKey)

	lang := azureLanguage(cfg.PrimaryLanguage())
	logger.Info("ocr.init.ok", "engine", EngineAzure, "language", string(lang))
	return &Azure{client: client, language: lang, maxWidth: cfg.MaxWidth, logger: logger}, nil
}

// Recognize implements Recognizer.
func (a *Azure) Recognize(ctx context.Context, image []byte) (string, error) {
	start := time.Now()
	prepared, err := Preprocess(image, a.maxWidth)
	if err != nil {
		return "", err
	}

	result, err := a.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(prepared)), a.language)
	if err != nil {
		return "", fmt.Errorf("azure ocr: %w", err)
	}

	var lines []string
	if result.Regions != nil {
		for _, region := range *result.Regions {
			if region.Lines == nil {
				continue
			}
			for _, line := range *region.Lines {
				if line.Words == nil {
					continue
				}
				words := make([]string, 0, len(*line.Words))
				for _, w := range *line.Words {
					if w.Text != nil {
						words = append(words, *w.Text)
					}
				}
				lines = append(lines, strings.Join(words, " "))
			}
		}
	}

	text := joinLines(lines)
	a.logger.Debug("ocr.azure.ok", "chars_out", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}

// azureLanguage maps a configured language onto the service's OCR set.
// Languages the service does not list fall back to auto-detection.
func azureLanguage(l string) computervision.OcrLanguages {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "en":
		return computervision.OcrLanguagesEn
	case "ru":
		return computervision.OcrLanguagesRu
	case "pl":
		return computervision.OcrLanguagesPl
	case "de":
		return computervision.OcrLanguagesDe
	default:
		return computervision.OcrLanguagesUnk
	}
}

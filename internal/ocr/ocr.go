// Package ocr provides the optical character recognition capability used for
// images and scanned PDF pages.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

// Recognizer turns encoded image bytes into newline-joined text lines.
// Implementations are built once at startup and are safe for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Engine names accepted by New.
const (
	EngineTesseract = "tesseract"
	EngineAzure     = "azure"
)

type Config struct {
	Engine    string   // "tesseract" (default) | "azure"
	Languages []string // first entry is the primary language, e.g. ["uk", "en"]
	UseGPU    bool

	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string

	AzureEndpoint string
	AzureKey      string

	MaxWidth int // downscale wider images before recognition; 0 keeps size
}

// PrimaryLanguage returns the first configured language, "uk" when none is set.
func (c Config) PrimaryLanguage() string {
	if len(c.Languages) == 0 {
		return "uk"
	}
	return c.Languages[0]
}

// ConfigFrom maps application configuration onto the OCR config.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Engine:        c.Engine,
		Languages:     c.LanguageList(),
		UseGPU:        c.UseGPU,
		Tesseract:     c.Tesseract,
		TessdataDir:   c.TessdataDir,
		AzureEndpoint: c.AzureEndpoint,
		AzureKey:      c.AzureKey,
		MaxWidth:      c.PreprocessWidth,
	}
}

type options struct {
	runner Runner
}

// Option customizes engine construction.
type Option func(*options)

// WithRunner replaces the command runner used by CLI-backed engines.
func WithRunner(r Runner) Option {
	return func(o *options) { o.runner = r }
}

// New initializes the configured engine. It must be called once at startup;
// the returned Recognizer is then shared by every request.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...Option) (Recognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{runner: ExecRunner(logger)}
	for _, opt := range opts {
		opt(&o)
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"uk"}
	}

	logger.Info("ocr.init.start",
		"engine", cfg.Engine,
		"languages", strings.Join(cfg.Languages, ","),
		"use_gpu", cfg.UseGPU,
	)
	if cfg.UseGPU {
		logger.Warn("ocr.init.gpu_ignored", "engine", cfg.Engine, "hint", "engine runs on CPU")
	}

	switch strings.ToLower(cfg.Engine) {
	case "", EngineTesseract:
		return NewTesseract(ctx, cfg, o.runner, logger)
	case EngineAzure:
		return NewAzure(cfg, logger)
	default:
		return nil, common.NewAppError(common.KindConfiguration, fmt.Sprintf("unknown ocr engine %q", cfg.Engine), common.ErrInvalidInput)
	}
}

type disabled struct {
	cause error
}

// Disabled returns a Recognizer that fails every call with ErrOCRUnavailable.
// It stands in when startup initialization failed.
func Disabled(cause error) Recognizer {
	return disabled{cause: cause}
}

func (d disabled) Recognize(context.Context, []byte) (string, error) {
	if d.cause != nil {
		return "", fmt.Errorf("%w: %v", common.ErrOCRUnavailable, d.cause)
	}
	return "", common.ErrOCRUnavailable
}

// joinLines trims recognized lines, drops empty ones and joins them with newlines.
func joinLines(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// tesseract language packs for the short codes used in configuration
var tessLangCodes = map[string]string{
	"uk": "ukr",
	"en": "eng",
	"ru": "rus",
	"pl": "pol",
	"de": "deu",
}

// Tesseract recognizes text by shelling out to the tesseract CLI.
type Tesseract struct {
	bin         string
	langs       string // e.g. "ukr+eng"
	tessdataDir string
	maxWidth    int
	runner      Runner
	logger      *slog.Logger
}

// NewTesseract verifies the binary and its language packs and returns the engine.
func NewTesseract(ctx context.Context, cfg Config, runner Runner, logger *slog.Logger) (*Tesseract, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner(logger)
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}

	t := &Tesseract{
		bin:         cfg.Tesseract,
		langs:       tesseractLangs(cfg.Languages),
		tessdataDir: cfg.TessdataDir,
		maxWidth:    cfg.MaxWidth,
		runner:      runner,
		logger:      logger,
	}

	args := []string{"--list-langs"}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	out, errb, err := runner.Run(ctx, t.bin, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract unavailable: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	// older builds print the list on stderr
	installed := parseLangList(string(out) + "\n" + string(errb))
	for _, l := range strings.Split(t.langs, "+") {
		if _, ok := installed[l]; !ok {
			return nil, fmt.Errorf("tesseract language pack %q not installed", l)
		}
	}

	logger.Info("ocr.init.ok", "engine", EngineTesseract, "langs", t.langs)
	return t, nil
}

// Recognize implements Recognizer.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	start := time.Now()

	prepared, err := Preprocess(image, t.maxWidth)
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "ca-ocr-*")
	if err != nil {
		return "", err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			t.logger.Warn("ocr.tesseract.cleanup_failed", "dir", path, "error", err)
		}
	}(tmpDir)

	in := filepath.Join(tmpDir, uuid.NewString()+".png")
	if err := os.WriteFile(in, prepared, 0o600); err != nil {
		return "", fmt.Errorf("write ocr input: %w", err)
	}

	// tesseract <file> stdout -l <langs>
	args := []string{in, "stdout", "-l", t.langs}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, clip(strings.TrimSpace(string(errb)), 512))
	}

	text := joinLines(strings.Split(reBoxNoise.ReplaceAllString(string(out), ""), "\n"))
	t.logger.Debug("ocr.tesseract.ok",
		"bytes_in", len(image),
		"chars_out", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func tesseractLangs(langs []string) string {
	seen := map[string]bool{}
	var out []string
	for _, l := range langs {
		code := strings.ToLower(strings.TrimSpace(l))
		if mapped, ok := tessLangCodes[code]; ok {
			code = mapped
		}
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	if len(out) == 0 {
		return "ukr"
	}
	return strings.Join(out, "+")
}

func parseLangList(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, " ") {
			continue // header line: List of available languages in "..." (N):
		}
		out[line] = struct{}{}
	}
	return out
}

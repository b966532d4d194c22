// Command extracttext runs the document extractors on local files and prints
// the combined text the structuring call would receive. No LLM is contacted.
//
//	extracttext [-max-tokens N] file...
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/extract"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/ocr"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/textutil"
)

func main() {
	maxTokens := flag.Int("max-tokens", 0, "truncate combined text to this many estimated tokens (0 uses config)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: extracttext [-max-tokens N] file...")
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	// logs go to stderr so stdout carries only the text
	logger := common.NewLogger(os.Stderr, cfg.Log.Level)

	limit := *maxTokens
	if limit <= 0 {
		limit = cfg.Processing.MaxTotalTokensEstimate
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runner := ocr.ExecRunner(logger)
	rec, err := ocr.New(ctx, ocr.ConfigFrom(cfg.OCR), logger, ocr.WithRunner(runner))
	if err != nil {
		logger.Warn("ocr init failed", "error", err)
		rec = ocr.Disabled(err)
	}
	d, err := extract.NewDispatcher(rec, ocr.NewPdftoppm(cfg.OCR.Pdftoppm, ocr.DefaultDPI, runner, logger), logger)
	if err != nil {
		logger.Error("build extractor", "error", err)
		os.Exit(1)
	}

	var texts []textutil.FileText
	failed := 0
	for _, path := range flag.Args() {
		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", name, err)
			failed++
			continue
		}
		res, err := d.Extract(ctx, name, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stderr, "OK   %s: method=%s pages=%d ocr_pages=%d chars=%d in %s\n",
			name, res.Method, res.Pages, res.OCRPages, res.CleanedLen, res.Duration.Round(time.Millisecond))
		texts = append(texts, textutil.FileText{Filename: name, Text: res.Text})
	}

	if len(texts) == 0 {
		fmt.Fprintln(os.Stderr, "no text extracted")
		os.Exit(1)
	}

	combined := textutil.Combine(texts)
	before := textutil.EstimateTokens(combined)
	combined, truncated := textutil.Truncate(combined, limit)

	fmt.Println(combined)
	fmt.Fprintf(os.Stderr, "files_ok=%d files_failed=%d tokens_estimated=%d truncated=%t (before=%d, limit=%d)\n",
		len(texts), failed, textutil.EstimateTokens(combined), truncated, before, limit)
}

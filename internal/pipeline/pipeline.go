// Package pipeline runs one analysis request end to end: validate uploads,
// extract text, structure it with the LLM, calculate ratios, and produce the
// narrative report.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/counterparty-analyzer/constants"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/analysis"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/dataset"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/extract"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/llm"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/textutil"
)

// FileExtractor turns one named upload into text. *extract.Dispatcher implements it.
type FileExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (extract.Result, error)
}

// Options holds request limits and prompt locations.
type Options struct {
	MaxFiles             int
	MaxUploadSizeMB      int
	MaxTokens            int
	ExtractionPromptFile string
	ReportPromptFile     string
	PromptDir            string // base for relative prompt paths; empty means the working directory
	ExtractWorkers       int
	SanitizeReport       bool
}

// OptionsFrom maps the processing section of the service config.
func OptionsFrom(p common.ProcessingConfig) Options {
	return Options{
		MaxFiles:             constants.MaxFiles,
		MaxUploadSizeMB:      p.MaxUploadSizeMB,
		MaxTokens:            p.MaxTotalTokensEstimate,
		ExtractionPromptFile: p.ExtractionPromptFile,
		ReportPromptFile:     p.ReportPromptFile,
		ExtractWorkers:       p.ExtractWorkers,
		SanitizeReport:       p.SanitizeReport,
	}
}

func (o Options) maxUploadBytes() int64 {
	return int64(o.MaxUploadSizeMB) * 1024 * 1024
}

// Controller sequences the stages of a request. It holds no per-request state
// and is safe for concurrent use.
type Controller struct {
	opts      Options
	extractor FileExtractor
	chat      llm.Chatter
	parser    *dataset.Parser
	engine    analysis.Engine
	prompts   *PromptLoader
	post      *PostProcessor
	logger    *slog.Logger
}

func NewController(opts Options, extractor FileExtractor, chat llm.Chatter, engine analysis.Engine, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = constants.MaxFiles
	}
	if opts.ExtractWorkers <= 0 {
		opts.ExtractWorkers = 1
	}
	return &Controller{
		opts:      opts,
		extractor: extractor,
		chat:      chat,
		parser:    dataset.NewParser(logger),
		engine:    engine,
		prompts:   NewPromptLoader(opts.PromptDir),
		post:      NewPostProcessor(opts.SanitizeReport),
		logger:    logger,
	}
}

// Run executes every stage in order and stops at the first fatal failure.
// Returned errors are *common.AppError tagged with the failing stage.
func (c *Controller) Run(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	r := &run{logger: common.LoggerFromContext(ctx, c.logger), timings: map[string]time.Duration{}}
	r.logger.Info("pipeline.start", "files", len(req.Files))

	if _, err := runStage(ctx, r, StageValidate, common.KindValidation, func(context.Context) (struct{}, error) {
		return struct{}{}, c.validate(req.Files)
	}); err != nil {
		return nil, err
	}

	files, err := runStage(ctx, r, StageReadFiles, common.KindValidation, func(ctx context.Context) ([]fileData, error) {
		return c.readFiles(ctx, req.Files)
	})
	if err != nil {
		return nil, err
	}

	ext, err := runStage(ctx, r, StageExtract, common.KindAllExtractionsFailed, func(ctx context.Context) (extraction, error) {
		return c.extractAll(ctx, r.logger, files)
	})
	if err != nil {
		return nil, err
	}

	if _, err := runStage(ctx, r, StageRequireText, common.KindAllExtractionsFailed, func(context.Context) (struct{}, error) {
		return struct{}{}, requireText(ext)
	}); err != nil {
		return nil, err
	}

	combined, err := runStage(ctx, r, StageCombine, common.KindValidation, func(context.Context) (combinedText, error) {
		return c.combine(r.logger, ext.texts), nil
	})
	if err != nil {
		return nil, err
	}

	raw, err := runStage(ctx, r, StageStructure, common.KindLLMCall, func(ctx context.Context) (string, error) {
		return c.structure(ctx, combined.text)
	})
	if err != nil {
		return nil, err
	}

	ds, err := runStage(ctx, r, StageRepair, common.KindResponseRepair, func(context.Context) (dataset.FinancialDataset, error) {
		return c.repair(raw)
	})
	if err != nil {
		return nil, err
	}

	calc, err := runStage(ctx, r, StageCalculate, common.KindCalculation, func(ctx context.Context) (analysis.CalculationResult, error) {
		res, err := c.engine.Calculate(ctx, ds)
		if err != nil {
			return res, common.NewAppError(common.KindCalculation, "calculation failed", err)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	summary, _ := runStage(ctx, r, StageFormat, common.KindCalculation, func(context.Context) (string, error) {
		return FormatCalculations(calc), nil
	})

	report, err := runStage(ctx, r, StageReport, common.KindLLMCall, func(ctx context.Context) (string, error) {
		return c.report(ctx, summary, req.Instructions)
	})
	if err != nil {
		return nil, err
	}

	report, _ = runStage(ctx, r, StagePostProcess, common.KindValidation, func(context.Context) (string, error) {
		return c.post.Apply(report), nil
	})

	resp := &Response{
		Status:          StatusSuccess,
		Report:          report,
		ExtractedData:   ds,
		FilesProcessed:  ext.processed(),
		FailedFiles:     ext.failed,
		TokensEstimated: combined.tokens,
		PipelineSteps: StepTimings{
			ExtractionSeconds:  round(r.timings[StageStructure].Seconds(), 2),
			CalculationSeconds: round((r.timings[StageCalculate] + r.timings[StageFormat]).Seconds(), 4),
			ReportSeconds:      round(r.timings[StageReport].Seconds(), 2),
		},
		ProcessingTimeSeconds: round(time.Since(start).Seconds(), 2),
	}
	if combined.truncated {
		resp.Warning = constants.TruncationWarning
	}

	r.logger.Info("pipeline.ok",
		"files_processed", len(resp.FilesProcessed),
		"files_failed", len(resp.FailedFiles),
		"tokens", resp.TokensEstimated,
		"truncated", combined.truncated,
		"structure_s", resp.PipelineSteps.ExtractionSeconds,
		"calculate_s", resp.PipelineSteps.CalculationSeconds,
		"report_s", resp.PipelineSteps.ReportSeconds,
		"total_s", resp.ProcessingTimeSeconds,
	)
	return resp, nil
}

type combinedText struct {
	text      string
	tokens    int
	truncated bool
}

func (c *Controller) combine(logger *slog.Logger, texts []textutil.FileText) combinedText {
	out := combinedText{text: textutil.Combine(texts)}
	out.tokens = textutil.EstimateTokens(out.text)
	logger.Info("pipeline.combine", "chars", len(out.text), "tokens", out.tokens, "limit", c.opts.MaxTokens)

	if c.opts.MaxTokens > 0 && out.tokens > c.opts.MaxTokens {
		out.text, out.truncated = textutil.Truncate(out.text, c.opts.MaxTokens)
		before := out.tokens
		out.tokens = textutil.EstimateTokens(out.text)
		logger.Warn("pipeline.combine.truncated", "tokens_before", before, "tokens_after", out.tokens)
	}
	return out
}

func (c *Controller) structure(ctx context.Context, documents string) (string, error) {
	tmpl, err := c.prompts.Load(c.opts.ExtractionPromptFile)
	if err != nil {
		return "", common.NewAppError(common.KindConfiguration, "extraction prompt error", err)
	}
	system, user := SplitPrompt(tmpl, constants.DocumentsMarker, constants.DocumentsPlaceholder, documents)

	raw, err := c.chat.Structure(ctx, system, user)
	if err != nil {
		return "", common.NewAppError(common.KindLLMCall, "data extraction failed", err)
	}
	return raw, nil
}

func (c *Controller) repair(raw string) (dataset.FinancialDataset, error) {
	ds, err := c.parser.Parse(raw)
	if err != nil {
		ae := common.NewAppError(common.KindResponseRepair, "failed to parse extracted data", err)
		ae.Preview = previewRunes(raw, previewLimit)
		return ds, ae
	}
	return ds, nil
}

func (c *Controller) report(ctx context.Context, summary, instructions string) (string, error) {
	tmpl, err := c.prompts.Load(c.opts.ReportPromptFile)
	if err != nil {
		return "", common.NewAppError(common.KindConfiguration, "report prompt error", err)
	}
	system, user := SplitPrompt(tmpl, constants.CalculationsMarker, constants.CalculationsPlaceholder, summary)
	user = AppendInstructions(user, instructions)

	out, err := c.chat.Report(ctx, system, user)
	if err != nil {
		return "", common.NewAppError(common.KindLLMCall, "report generation failed", err)
	}
	return out, nil
}

const previewLimit = 1000

func previewRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

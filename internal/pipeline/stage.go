package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

// Stage names, in execution order. They appear in logs and in error bodies.
const (
	StageValidate    = "validate"
	StageReadFiles   = "read_files"
	StageExtract     = "extract"
	StageRequireText = "require_text"
	StageCombine     = "combine"
	StageStructure   = "structure"
	StageRepair      = "repair_parse"
	StageCalculate   = "calculate"
	StageFormat      = "format_summary"
	StageReport      = "report"
	StagePostProcess = "post_process"
)

// run is the per-request bookkeeping shared by the stages.
type run struct {
	logger  *slog.Logger
	timings map[string]time.Duration
}

// runStage times fn, logs the outcome and tags failures with the stage name.
// Errors that are not already an AppError are wrapped under kind.
func runStage[T any](ctx context.Context, r *run, name string, kind common.Kind, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	out, err := fn(ctx)
	elapsed := time.Since(start)
	r.timings[name] = elapsed

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			kind = common.KindCanceled
		}
		ae := common.AsAppError(err, kind)
		if ae.Stage == "" {
			ae.WithStage(name)
		}
		r.logger.Error("pipeline.stage.failed",
			"stage", name,
			"kind", string(ae.Kind),
			"error", ae.Error(),
			"elapsed_ms", elapsed.Milliseconds(),
		)
		var zero T
		return zero, ae
	}

	r.logger.Debug("pipeline.stage.ok", "stage", name, "elapsed_ms", elapsed.Milliseconds())
	return out, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/textutil"
)

// extraction holds per-file outcomes in upload order.
type extraction struct {
	texts  []textutil.FileText
	failed []common.FileFailure
}

func (e extraction) processed() []string {
	out := make([]string, len(e.texts))
	for i, t := range e.texts {
		out[i] = t.Filename
	}
	return out
}

type fileOutcome struct {
	text string
	err  error
}

// extractAll runs the extractor over every file with at most ExtractWorkers
// in flight. Each goroutine writes only its own slot, and failures are
// collected rather than returned, so one bad file never cancels the others.
// A request context that ends mid-extraction is returned as its own error.
func (c *Controller) extractAll(ctx context.Context, logger *slog.Logger, files []fileData) (extraction, error) {
	outcomes := make([]fileOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.ExtractWorkers)
	for i, f := range files {
		g.Go(func() error {
			res, err := c.extractor.Extract(gctx, f.name, f.data)
			outcomes[i] = fileOutcome{text: res.Text, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		logger.Warn("pipeline.extract.canceled", "files", len(files), "error", err)
		return extraction{}, err
	}

	var out extraction
	for i, o := range outcomes {
		name := files[i].name
		if o.err != nil {
			logger.Error("pipeline.extract.file_failed", "filename", name, "error", o.err)
			out.failed = append(out.failed, common.FileFailure{Filename: name, Error: o.err.Error()})
			continue
		}
		out.texts = append(out.texts, textutil.FileText{Filename: name, Text: o.text})
	}
	logger.Info("pipeline.extract.done", "ok", len(out.texts), "failed", len(out.failed))
	return out, nil
}

func requireText(e extraction) error {
	if len(e.texts) > 0 {
		return nil
	}
	ae := common.NewAppError(common.KindAllExtractionsFailed, "failed to extract text from all uploaded files", nil)
	ae.FailedFiles = e.failed
	return ae
}

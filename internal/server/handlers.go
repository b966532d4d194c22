package server

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/counterparty-analyzer/constants"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/llm"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/pipeline"
)

// Form field names of the analyze endpoint.
const (
	FieldFiles        = "files"
	FieldInstructions = "user_instructions"
)

const defaultFormMemory = 32 << 20

// Analyzer runs the analysis pipeline. *pipeline.Controller implements it.
type Analyzer interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// Handler holds the HTTP handlers.
type Handler struct {
	analyzer Analyzer
	health   llm.HealthChecker
	logger   *slog.Logger

	// formMemory is the in-memory budget for multipart file parts; larger
	// parts spill to temp files that are removed once the request is done.
	formMemory int64
}

func NewHandler(analyzer Analyzer, health llm.HealthChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{analyzer: analyzer, health: health, logger: logger, formMemory: defaultFormMemory}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string           `json:"status"`
	Service string           `json:"service"`
	Version string           `json:"version"`
	Ollama  llm.HealthStatus `json:"ollama"`
}

// HandleHealth reports service identity and LLM backend reachability.
// It always answers 200; backend problems are described in the ollama field.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: constants.ServiceName,
		Version: constants.ServiceVersion,
		Ollama:  h.health.Health(c.Request().Context()),
	})
}

// HandleAnalyze accepts 1-10 files plus optional instructions and returns the report.
func (h *Handler) HandleAnalyze(c echo.Context) error {
	r := c.Request()
	ctx := r.Context()
	logger := common.LoggerFromContext(ctx, h.logger)

	if err := r.ParseMultipartForm(h.formMemory); err != nil {
		return NewBadRequestError("expected a multipart/form-data body", err)
	}
	form := r.MultipartForm
	defer func() {
		if err := form.RemoveAll(); err != nil {
			logger.Warn("http.analyze.cleanup_failed", "error", err)
		}
	}()

	headers := form.File[FieldFiles]
	req := pipeline.Request{Files: make([]pipeline.Upload, 0, len(headers))}
	for _, fh := range headers {
		req.Files = append(req.Files, uploadFrom(fh))
	}
	if v := form.Value[FieldInstructions]; len(v) > 0 {
		req.Instructions = v[0]
	}

	logger.Info("http.analyze.start", "files", len(req.Files), "has_instructions", req.Instructions != "")

	resp, err := h.analyzer.Run(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func uploadFrom(fh *multipart.FileHeader) pipeline.Upload {
	return pipeline.Upload{
		Filename: fh.Filename,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

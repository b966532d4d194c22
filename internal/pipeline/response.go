package pipeline

import (
	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/dataset"
)

const StatusSuccess = "success"

// StepTimings reports the three user-facing steps in seconds.
type StepTimings struct {
	ExtractionSeconds  float64 `json:"extraction_seconds"`
	CalculationSeconds float64 `json:"calculation_seconds"`
	ReportSeconds      float64 `json:"report_seconds"`
}

// Response is the JSON body of a successful analysis.
type Response struct {
	Status                string                   `json:"status"`
	Report                string                   `json:"report"`
	ExtractedData         dataset.FinancialDataset `json:"extracted_data"`
	FilesProcessed        []string                 `json:"files_processed"`
	FailedFiles           []common.FileFailure     `json:"failed_files,omitempty"`
	TokensEstimated       int                      `json:"tokens_estimated"`
	ProcessingTimeSeconds float64                  `json:"processing_time_seconds"`
	PipelineSteps         StepTimings              `json:"pipeline_steps"`
	Warning               string                   `json:"warning,omitempty"`
}

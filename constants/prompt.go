package constants

// Literal markers used to split prompt templates into system and user parts.
const (
	DocumentsMarker    = "--- ДОКУМЕНТИ ---"
	CalculationsMarker = "--- РОЗРАХУНКИ ---"
	InstructionsMarker = "--- ДОДАТКОВІ ІНСТРУКЦІЇ ---"

	DocumentsPlaceholder    = "{documents}"
	CalculationsPlaceholder = "{calculations}"
)

// Dataset placeholders used when the model omits identity fields.
const (
	UnknownCompany = "Невідома компанія"
	UnknownPeriod  = "—"
)

// TruncationWarning is attached to responses whose document text was cut.
const TruncationWarning = "Document text was truncated due to token limit"

const (
	ServiceName    = "counterparty-financial-analyzer"
	ServiceVersion = "1.0.0"
)

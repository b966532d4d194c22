package common

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can branch on them without string matching.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindSizeLimit            Kind = "size_limit"
	KindUnsupportedFormat    Kind = "unsupported_format"
	KindExtractionFailed     Kind = "extraction_failed"
	KindAllExtractionsFailed Kind = "all_extractions_failed"
	KindLLMCall              Kind = "llm_call"
	KindResponseRepair       Kind = "response_repair"
	KindCalculation          Kind = "calculation"
	KindConfiguration        Kind = "configuration"
	KindUnauthorized         Kind = "unauthorized"
	KindCanceled             Kind = "canceled"
)

// FileFailure records a file that produced no text.
type FileFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// AppError represents application-specific errors
type AppError struct {
	Kind    Kind
	Stage   string
	Message string
	Cause   error

	Filename    string
	FailedFiles []FileFailure
	Preview     string
}

func (e *AppError) Error() string {
	prefix := string(e.Kind)
	if e.Stage != "" {
		prefix += "[" + e.Stage + "]"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrOCRUnavailable    = errors.New("ocr engine unavailable")
	ErrEmptyResponse     = errors.New("empty response")
	ErrPromptNotFound    = errors.New("prompt template not found")
)

// Error constructors
func NewAppError(kind Kind, message string, cause error) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// WithStage returns e after recording the pipeline stage it surfaced in.
func (e *AppError) WithStage(stage string) *AppError {
	e.Stage = stage
	return e
}

// KindOf returns the kind of the first AppError in err's chain, or "".
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// AsAppError returns err as an AppError, wrapping it under kind when it is not one.
func AsAppError(err error, kind Kind) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return NewAppError(kind, err.Error(), err)
}

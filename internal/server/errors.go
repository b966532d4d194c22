package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Status      int                  `json:"-"`
	Code        string               `json:"code"`
	Message     string               `json:"message"`
	Stage       string               `json:"stage,omitempty"`
	Details     string               `json:"details,omitempty"`
	FailedFiles []common.FileFailure `json:"failed_files,omitempty"`
	RawPreview  string               `json:"raw_response_preview,omitempty"`
	RequestID   string               `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 for malformed requests that never reach the pipeline.
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    string(common.KindValidation),
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewUnauthorizedError creates a 401.
func NewUnauthorizedError() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Code:    string(common.KindUnauthorized),
		Message: "Invalid API key",
	}
}

// StatusFor maps an error kind to its HTTP status.
// StatusClientClosedRequest is reported when the request context ends mid-pipeline.
const StatusClientClosedRequest = 499

func StatusFor(kind common.Kind) int {
	switch kind {
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindUnauthorized:
		return http.StatusUnauthorized
	case common.KindSizeLimit:
		return http.StatusRequestEntityTooLarge
	case common.KindUnsupportedFormat, common.KindAllExtractionsFailed:
		return http.StatusUnprocessableEntity
	case common.KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// FromAppError converts a pipeline failure into its response body.
func FromAppError(ae *common.AppError) *APIError {
	return &APIError{
		Status:      StatusFor(ae.Kind),
		Code:        string(ae.Kind),
		Message:     ae.Message,
		Stage:       ae.Stage,
		Details:     detailOf(ae),
		FailedFiles: ae.FailedFiles,
		RawPreview:  ae.Preview,
	}
}

// detailOf renders the cause without repeating kind prefixes of nested AppErrors.
func detailOf(ae *common.AppError) string {
	cause := ae.Cause
	if cause == nil || cause == common.ErrInvalidInput {
		return ""
	}
	var inner *common.AppError
	if errors.As(cause, &inner) {
		if inner.Cause != nil {
			return inner.Message + ": " + inner.Cause.Error()
		}
		return inner.Message
	}
	return cause.Error()
}

// ErrorHandler renders every error returned by a handler or middleware.
// Usage: e.HTTPErrorHandler = server.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var appErr *common.AppError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &appErr):
		apiErr = FromAppError(appErr)
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "http_error",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "internal",
			Message: "An unexpected error occurred",
			Details: err.Error(),
		}
	}

	apiErr.RequestID = common.RequestIDFromContext(c.Request().Context())

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}

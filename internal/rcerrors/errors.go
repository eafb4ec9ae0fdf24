// Package rcerrors defines the structured error taxonomy surfaced by the
// root-cause search session: schema validation failures, strategy
// construction failures, missing cache inputs, and the two internal
// consistency errors (NotFound, TypeMismatch) that indicate caller error or
// data corruption rather than bad input.
package rcerrors

import (
	"encoding/json"
	"fmt"
)

// ErrorCategory classifies who is responsible for the error.
type ErrorCategory string

const (
	// ClientError indicates bad input or a malformed dataset.
	ClientError ErrorCategory = "CLIENT_ERROR"
	// ServerError indicates an internal consistency violation.
	ServerError ErrorCategory = "SERVER_ERROR"
)

// ErrorCode identifies one of the taxonomy entries from the specification.
type ErrorCode string

const (
	CodeMissingColumn     ErrorCode = "MISSING_COLUMN"
	CodeBadTimestamp      ErrorCode = "BAD_TIMESTAMP"
	CodeOutOfOrder        ErrorCode = "OUT_OF_ORDER"
	CodeBadStrategy       ErrorCode = "BAD_STRATEGY"
	CodeMissingCacheInput ErrorCode = "MISSING_CACHE_INPUT"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeTypeMismatch      ErrorCode = "TYPE_MISMATCH"
)

// Error is a structured error carrying a taxonomy code, category, message
// and an optional recovery suggestion. It implements the error interface.
type Error struct {
	Code       ErrorCode     `json:"code"`
	Category   ErrorCategory `json:"category"`
	Message    string        `json:"message"`
	Details    interface{}   `json:"details,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// ToJSON renders the error as a JSON string, for structured logging sinks.
func (e *Error) ToJSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"code":"%s","category":"%s","message":"%s"}`, e.Code, e.Category, e.Message)
	}
	return string(data)
}

func New(code ErrorCode, category ErrorCategory, message string) *Error {
	return &Error{Code: code, Category: category, Message: message}
}

func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// NewMissingColumn reports a required column absent after normalization.
func NewMissingColumn(column string) *Error {
	return New(CodeMissingColumn, ClientError, fmt.Sprintf("%s column not found", column)).
		WithSuggestion("ensure the source CSV has timestamp, content and service columns after normalization")
}

// NewBadTimestamp reports a timestamp field that failed to parse.
func NewBadTimestamp(raw string) *Error {
	return New(CodeBadTimestamp, ClientError, fmt.Sprintf("could not parse timestamp %q", raw)).
		WithSuggestion("timestamps must match YYYY-MM-DD HH:MM:SS.ffffff")
}

// NewOutOfOrder reports the ascending-order validation failure. The
// specification's reference implementation mislabels this "descending" in
// its error text; the contract is ascending order (see SPEC_FULL Open
// Questions).
func NewOutOfOrder() *Error {
	return New(CodeOutOfOrder, ClientError, "timestamps are out of order (timestamps must be ascending)").
		WithSuggestion("sort the source CSV by timestamp before loading")
}

// NewBadStrategy reports a Strategy column selector outside the allowed set.
func NewBadStrategy(field, value string) *Error {
	return New(CodeBadStrategy, ClientError, fmt.Sprintf("%s must be one of content, service_template_id, got %q", field, value)).
		WithSuggestion("use content or service_template_id for every strategy column selector")
}

// NewMissingCacheInput reports a source file, storage dir or drain config
// path that does not exist.
func NewMissingCacheInput(what, path string) *Error {
	return New(CodeMissingCacheInput, ClientError, fmt.Sprintf("%s does not exist: %s", what, path)).
		WithSuggestion("check the configured path and permissions")
}

// NewNotFound reports a lookup by line_id for a non-existent row.
func NewNotFound(lineID int) *Error {
	return New(CodeNotFound, ClientError, fmt.Sprintf("no row with line_id %d", lineID)).
		WithSuggestion("verify the line_id against the prepared dataset")
}

// NewTypeMismatch reports a uniqueness-column type disagreement between a
// candidate value and the noise-count keys, which indicates corrupted or
// inconsistent column data rather than a bad request.
func NewTypeMismatch(column string) *Error {
	return New(CodeTypeMismatch, ServerError, fmt.Sprintf("uniqueness column %q has inconsistent value types", column)).
		WithSuggestion("re-run preparation; the dataset likely mixes string and numeric values in this column")
}

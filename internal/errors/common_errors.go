package errors

import (
	"fmt"
	"log/slog"
	"slices"
)

// ErrorType classifies failures raised below the HTTP layer.
type ErrorType string

const (
	// ErrTypeStorage marks a data file that could not be read.
	ErrTypeStorage ErrorType = "STORAGE"
	// ErrTypeParsing marks a data file that is not delimited text.
	ErrTypeParsing ErrorType = "PARSING"
	// ErrTypeExport marks a report that could not be written out.
	ErrTypeExport ErrorType = "EXPORT"
)

// AppError is a dataset or export failure. Fields name the file, table or
// report role involved; they are logged and never sent to clients.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Fields  map[string]any
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// With records a field and returns e for chaining.
func (e *AppError) With(key string, value any) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// LogAttrs returns the fields as log attributes in key order.
func (e *AppError) LogAttrs() []slog.Attr {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, e.Fields[k]))
	}
	return attrs
}

func newAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Cause: cause}
}

// NewStorageError reports an unreadable data file.
func NewStorageError(message string, cause error) *AppError {
	return newAppError(ErrTypeStorage, message, cause)
}

// NewParsingError reports a data file whose content cannot be split into records.
func NewParsingError(message string, cause error) *AppError {
	return newAppError(ErrTypeParsing, message, cause)
}

// NewExportError reports a workbook or CSV that could not be written.
func NewExportError(message string, cause error) *AppError {
	return newAppError(ErrTypeExport, message, cause)
}

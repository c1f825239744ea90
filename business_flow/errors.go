// Package businessflow contains the call-log ingestion pipeline and workforce hierarchy maintenance
package businessflow

import (
	"errors"
	"fmt"
	"strings"
)

// Business flow error constants
var (
	// Input errors
	ErrMissingColumns   = errors.New("required columns missing")
	ErrBlankAgentName   = errors.New("agent name is blank after cleaning")
	ErrEmptyFile        = errors.New("call log file has no data rows")
	ErrSourceRequired   = errors.New("source file name is required")
	ErrReaderRequired   = errors.New("call log reader is required")
	ErrInvalidDate      = errors.New("date must be YYYY-MM-DD")
	ErrAgentNameMissing = errors.New("agent name is required")

	// Pipeline errors
	ErrHistoryLookup = errors.New("history lookup failed")
	ErrBulkWrite     = errors.New("bulk write failed")
	ErrRunAborted    = errors.New("ingestion aborted before write")
	ErrRunLocked     = errors.New("another ingestion is running")
)

// Error codes
const (
	CodeSchemaInvalid       = "SCHEMA_INVALID"
	CodeInvalidRow          = "INVALID_ROW"
	CodeHistoryLookupFailed = "HISTORY_LOOKUP_FAILED"
	CodeWriteFailed         = "WRITE_FAILED"
	CodeRunAborted          = "RUN_ABORTED"
	CodeRunLocked           = "RUN_LOCKED"
	CodeReadFailed          = "READ_FAILED"
	CodePostSyncFailed      = "POST_SYNC_FAILED"
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IngestionError is the failure outcome of a run: what went wrong and the last stage reached
type IngestionError struct {
	*BusinessError
	Stage Stage
}

func (e *IngestionError) Unwrap() error {
	return e.BusinessError
}

func newIngestionError(stage Stage, code, message string, err error) *IngestionError {
	return &IngestionError{
		BusinessError: NewBusinessError(code, message, err),
		Stage:         stage,
	}
}

// SchemaError reports missing required columns verbatim
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissingColumns, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error {
	return ErrMissingColumns
}

// InvalidRowsError lists file lines whose agent name cleans to nothing
type InvalidRowsError struct {
	Lines []int
}

func (e *InvalidRowsError) Error() string {
	shown := e.Lines
	suffix := ""
	if len(shown) > 20 {
		shown = shown[:20]
		suffix = fmt.Sprintf(" and %d more", len(e.Lines)-20)
	}
	parts := make([]string, len(shown))
	for i, l := range shown {
		parts[i] = fmt.Sprint(l)
	}
	return fmt.Sprintf("%v on lines %s%s", ErrBlankAgentName, strings.Join(parts, ", "), suffix)
}

func (e *InvalidRowsError) Unwrap() error {
	return ErrBlankAgentName
}

// PostSyncError is a failed best-effort step after the load committed
type PostSyncError struct {
	Step string
	Err  error
}

func (e *PostSyncError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *PostSyncError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

func IsInvalidRows(err error) bool {
	return errors.Is(err, ErrBlankAgentName)
}

func IsHistoryLookupError(err error) bool {
	return errors.Is(err, ErrHistoryLookup)
}

func IsWriteError(err error) bool {
	return errors.Is(err, ErrBulkWrite)
}

func IsRunAborted(err error) bool {
	return errors.Is(err, ErrRunAborted)
}

func IsRunLocked(err error) bool {
	return errors.Is(err, ErrRunLocked)
}

// ErrorCode returns the business error code carried by err, or ""
func ErrorCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Package errors provides structured error types for the brainscore system.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryBenchmark  ErrorCategory = "BENCHMARK"
	ErrCategoryScore      ErrorCategory = "SCORE"
	ErrCategoryCache      ErrorCategory = "CACHE"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryData       ErrorCategory = "DATA"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeDuplicateBenchmark   = "DUPLICATE_BENCHMARK"
	CodeInvalidIdentifier    = "INVALID_IDENTIFIER"
	CodeUnsupportedCandidate = "UNSUPPORTED_CANDIDATE"
	CodeMissingStimuli       = "MISSING_STIMULI"
	CodeInvalidRequest       = "INVALID_REQUEST"

	// Benchmark codes
	CodeUnknownBenchmark   = "UNKNOWN_BENCHMARK"
	CodeNotImplemented     = "NOT_IMPLEMENTED"
	CodeIdentifierMismatch = "IDENTIFIER_MISMATCH"

	// Score codes
	CodeDegenerateCeiling = "DEGENERATE_CEILING"
	CodeShapeMismatch     = "SHAPE_MISMATCH"

	// Cache codes
	CodeCacheReadFailed  = "CACHE_READ_FAILED"
	CodeCacheWriteFailed = "CACHE_WRITE_FAILED"
	CodeCodecFailed      = "CODEC_FAILED"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Data codes
	CodeAssemblyNotFound = "ASSEMBLY_NOT_FOUND"
	CodeInvalidAssembly  = "INVALID_ASSEMBLY"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// BrainScoreError is the structured error type used throughout the system.
type BrainScoreError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *BrainScoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *BrainScoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *BrainScoreError) Is(target error) bool {
	var t *BrainScoreError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new BrainScoreError.
func New(category ErrorCategory, code, message string) *BrainScoreError {
	return &BrainScoreError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new BrainScoreError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *BrainScoreError {
	return &BrainScoreError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *BrainScoreError) WithDetails(details map[string]interface{}) *BrainScoreError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var be *BrainScoreError
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a BrainScoreError.
func GetCategory(err error) ErrorCategory {
	var be *BrainScoreError
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a BrainScoreError.
func GetCode(err error) string {
	var be *BrainScoreError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// GetDetails extracts the details table from the first BrainScoreError in
// the chain, or nil.
func GetDetails(err error) map[string]interface{} {
	var be *BrainScoreError
	if errors.As(err, &be) {
		return be.Details
	}
	return nil
}

// HasCode reports whether err carries the given category and code.
func HasCode(err error, category ErrorCategory, code string) bool {
	return errors.Is(err, &BrainScoreError{Category: category, Code: code})
}

func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	case category == ErrCategoryCache && code == CodeCacheReadFailed:
		return true
	case category == ErrCategoryCache && code == CodeCacheWriteFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *BrainScoreError {
	return New(ErrCategoryValidation, code, message)
}

func NewBenchmarkError(code, message string) *BrainScoreError {
	return New(ErrCategoryBenchmark, code, message)
}

func NewScoreError(code, message string) *BrainScoreError {
	return New(ErrCategoryScore, code, message)
}

func NewCacheError(code, message string, cause error) *BrainScoreError {
	return Wrap(ErrCategoryCache, code, message, cause)
}

func NewStorageError(code, message string, cause error) *BrainScoreError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewDataError(code, message string, cause error) *BrainScoreError {
	return Wrap(ErrCategoryData, code, message, cause)
}

func NewInternalError(message string, cause error) *BrainScoreError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}

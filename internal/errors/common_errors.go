package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeMissingSource marks an absent curve, stand or area value.
	ErrTypeMissingSource ErrorType = "MISSING_SOURCE"
	// ErrTypeAmbiguousCategory marks an unrecognised removal category or malformed key.
	ErrTypeAmbiguousCategory ErrorType = "AMBIGUOUS_CATEGORY"
	// ErrTypeInvariant marks a scaled matrix whose rows do not sum to one.
	ErrTypeInvariant ErrorType = "INVARIANT_VIOLATION"
	// ErrTypeTransaction marks a failed archive database write.
	ErrTypeTransaction ErrorType = "TRANSACTION"
	ErrTypeParsing     ErrorType = "PARSING"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeConfig      ErrorType = "CONFIG"
)

// Sentinel errors shared across packages.
var (
	ErrCurveNotFound    = stderrors.New("yield curve not found")
	ErrStandNotFound    = stderrors.New("stand not found")
	ErrUnknownCategory  = stderrors.New("unknown removal category")
	ErrMalformedKey     = stderrors.New("malformed trajectory key")
	ErrTemplateNotFound = stderrors.New("template matrix not found")
	ErrSheetNotFound    = stderrors.New("sheet not found")
	ErrColumnNotFound   = stderrors.New("required column not found")
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Step    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Step != "" {
		prefix = fmt.Sprintf("[%s] %s:", e.Type, e.Step)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithStep records the pipeline step the error came from.
func (e *AppError) WithStep(step string) *AppError {
	e.Step = step
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewTransactionError creates an archive write error
func NewTransactionError(message string, cause error) *AppError {
	return NewAppError(ErrTypeTransaction, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}
